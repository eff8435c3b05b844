package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/funnelhq/funnel-api/internal/middleware"
)

// Handler registers routes under a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// CallbackHandler additionally registers routes that providers call
// back without authentication.
type CallbackHandler interface {
	Handler
	RegisterCallbackRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	healthH Handler
	authH   Handler
	orgH    Handler
	funnelH Handler
	importH Handler
	fbH     CallbackHandler
	sheetsH CallbackHandler
	metrics *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	MetricsPrefix    string
}

// ProtectedRegistrar is implemented by handlers that split public and
// authenticated routes.
type ProtectedRegistrar interface {
	RegisterProtectedRoutes(*gin.RouterGroup)
}

func New(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	authH Handler,
	orgH Handler,
	funnelH Handler,
	importH Handler,
	fbH CallbackHandler,
	sheetsH CallbackHandler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		healthH: healthH,
		authH:   authH,
		orgH:    orgH,
		funnelH: funnelH,
		importH: importH,
		fbH:     fbH,
		sheetsH: sheetsH,
		metrics: newRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.DefaultRequestTimeout),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.healthH.RegisterRoutes(api)

	// Public: login/signup plus the provider OAuth callbacks, which
	// arrive as bare browser redirects.
	r.authH.RegisterRoutes(api)
	r.fbH.RegisterCallbackRoutes(api)
	r.sheetsH.RegisterCallbackRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	if reg, ok := r.authH.(ProtectedRegistrar); ok {
		reg.RegisterProtectedRoutes(protected)
	}
	r.orgH.RegisterRoutes(protected)
	r.funnelH.RegisterRoutes(protected)
	r.importH.RegisterRoutes(protected)
	r.fbH.RegisterRoutes(protected)
	r.sheetsH.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func newRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
