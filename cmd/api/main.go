package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/funnelhq/funnel-api/internal/config"
	"github.com/funnelhq/funnel-api/internal/email"
	authHandler "github.com/funnelhq/funnel-api/internal/handler/auth"
	funnelHandler "github.com/funnelhq/funnel-api/internal/handler/funnel"
	healthHandler "github.com/funnelhq/funnel-api/internal/handler/health"
	importHandler "github.com/funnelhq/funnel-api/internal/handler/importer"
	integrationHandler "github.com/funnelhq/funnel-api/internal/handler/integration"
	orgHandler "github.com/funnelhq/funnel-api/internal/handler/organization"
	"github.com/funnelhq/funnel-api/internal/middleware"
	"github.com/funnelhq/funnel-api/internal/repository/postgres"
	"github.com/funnelhq/funnel-api/internal/router"
	authService "github.com/funnelhq/funnel-api/internal/service/auth"
	facebookService "github.com/funnelhq/funnel-api/internal/service/facebook"
	funnelService "github.com/funnelhq/funnel-api/internal/service/funnel"
	importerService "github.com/funnelhq/funnel-api/internal/service/importer"
	integrationService "github.com/funnelhq/funnel-api/internal/service/integration"
	orgService "github.com/funnelhq/funnel-api/internal/service/organization"
	sheetsService "github.com/funnelhq/funnel-api/internal/service/sheets"
	"github.com/funnelhq/funnel-api/pkg/auth"
	"github.com/funnelhq/funnel-api/pkg/logger"
	"github.com/funnelhq/funnel-api/pkg/metrics"
	"github.com/funnelhq/funnel-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Redis is optional; without it the totals cache is skipped.
	var cache *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		cache = redis.NewClient(opts)
	}

	baseLogger := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})

	m := metrics.NewMetrics("funnelapi", "api")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	organizationRepo := postgres.NewOrganizationRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	campaignRepo := postgres.NewCampaignRepository(db)
	funnelRepo := postgres.NewFunnelRepository(db)
	utmRepo := postgres.NewUTMRepository(db)
	integrationRepo := postgres.NewIntegrationRepository(db)

	// Shared infrastructure
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})
	hasher := security.NewBcryptHasher(0)

	var mailer email.Sender
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username,
			cfg.SMTP.Password, cfg.SMTP.From, cfg.AppURL, baseLogger)
	} else {
		mailer = email.NewNoopSender(baseLogger)
	}

	// Provider clients
	fbClient := facebookService.NewClient(cfg.Facebook.AppID, cfg.Facebook.AppSecret, 30*time.Second)
	sheetsClient := sheetsService.NewClient(cfg.Google.ClientID, cfg.Google.ClientSecret)

	// Services
	integrationSvc := integrationService.NewService(integrationRepo, m, baseLogger)
	importSvc := importerService.NewService(funnelRepo, utmRepo, m, baseLogger)
	funnelSvc := funnelService.NewService(funnelRepo, utmRepo, campaignRepo, cache, m, baseLogger)
	authSvc := authService.NewService(userRepo, organizationRepo, membershipRepo, jwtSvc, hasher,
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour, baseLogger)
	organizationSvc := orgService.NewService(organizationRepo, membershipRepo, userRepo, mailer, baseLogger)
	fbSvc := facebookService.NewService(fbClient, campaignRepo, funnelRepo, utmRepo, integrationSvc, m, baseLogger)
	sheetsSvc := sheetsService.NewService(sheetsClient, importSvc, funnelRepo, utmRepo, integrationSvc, m, baseLogger)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, membershipRepo)

	fbRedirect := cfg.Server.BaseURL + "/api/v1/integrations/facebook/callback"
	googleRedirect := cfg.Server.BaseURL + "/api/v1/integrations/google-sheets/callback"

	healthH := healthHandler.NewHandler(db, cache)
	authH := authHandler.NewHandler(authSvc)
	orgH := orgHandler.NewHandler(organizationSvc, authMiddleware)
	funnelH := funnelHandler.NewHandler(funnelSvc, authMiddleware)
	importH := importHandler.NewHandler(importSvc, funnelSvc, authMiddleware)
	fbH := integrationHandler.NewFacebookHandler(fbSvc, funnelSvc, authMiddleware, fbRedirect, cfg.AppURL)
	sheetsH := integrationHandler.NewSheetsHandler(sheetsSvc, funnelSvc, authMiddleware, googleRedirect, cfg.AppURL)

	r := router.New(authMiddleware, healthH, authH, orgH, funnelH, importH, fbH, sheetsH, router.Config{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       middleware.CORSConfigForApp(cfg.AppURL),
		MetricsPrefix:    "funnelapi_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
