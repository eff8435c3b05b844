package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/metrics"
)

// expiryBuffer is the safety window applied before treating a stored
// token as expired: a token that expires in under 5 minutes is
// refreshed now instead of failing mid-sync.
const expiryBuffer = 5 * time.Minute

// TokenRefresher performs a provider's refresh exchange. Providers
// without refresh tokens (Facebook relies on ~60-day long-lived
// tokens) never get called here.
type TokenRefresher interface {
	Provider() string
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, expiresIn int64, err error)
}

// ValidToken is the outcome of EnsureValidToken.
type ValidToken struct {
	AccessToken string
	Refreshed   bool
	NewExpiry   *time.Time
}

type Servicer interface {
	Get(ctx context.Context, orgID uuid.UUID, provider string) (*model.Integration, error)
	GetActive(ctx context.Context, orgID uuid.UUID, provider string) (*model.Integration, error)
	Connect(ctx context.Context, orgID uuid.UUID, provider string, config model.JSONMap) (*model.Integration, error)
	Disconnect(ctx context.Context, orgID uuid.UUID, provider string) error
	EnsureValidToken(ctx context.Context, integration *model.Integration, refresher TokenRefresher) (*ValidToken, error)
	MarkSynced(ctx context.Context, integration *model.Integration) error
	Clock() func() time.Time
}

type Service struct {
	repo    repository.IntegrationRepository
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(repo repository.IntegrationRepository, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests to exercise the
// expiry boundary.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Clock() func() time.Time {
	return s.now
}

func (s *Service) Get(ctx context.Context, orgID uuid.UUID, provider string) (*model.Integration, error) {
	integration, err := s.repo.Get(ctx, orgID, provider)
	if err != nil {
		return nil, apperrors.NotFound("integration", err)
	}
	return integration, nil
}

// GetActive returns the integration only when it is connected.
func (s *Service) GetActive(ctx context.Context, orgID uuid.UUID, provider string) (*model.Integration, error) {
	integration, err := s.repo.Get(ctx, orgID, provider)
	if err != nil || !integration.IsActive {
		return nil, apperrors.BadRequest(provider+" is not connected", err)
	}
	return integration, nil
}

// Connect stores the OAuth-derived config, activating the single row
// per (organization, provider).
func (s *Service) Connect(ctx context.Context, orgID uuid.UUID, provider string, config model.JSONMap) (*model.Integration, error) {
	integration := &model.Integration{
		OrganizationID: orgID,
		Provider:       provider,
		Config:         config,
		IsActive:       true,
	}
	if err := s.repo.Upsert(ctx, integration); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info().
		Str("organization_id", orgID.String()).
		Str("provider", provider).
		Msg("integration connected")
	return integration, nil
}

func (s *Service) Disconnect(ctx context.Context, orgID uuid.UUID, provider string) error {
	if err := s.repo.Deactivate(ctx, orgID, provider); err != nil {
		return apperrors.NotFound("integration", err)
	}

	s.logger.Info().
		Str("organization_id", orgID.String()).
		Str("provider", provider).
		Msg("integration disconnected")
	return nil
}

// EnsureValidToken returns a usable access token for the integration,
// refreshing it through the provider when the stored one is inside the
// expiry buffer. A successful refresh is persisted back into the
// config blob with a partial merge, so provider metadata such as the
// ad account id survives the rotation.
func (s *Service) EnsureValidToken(ctx context.Context, integration *model.Integration, refresher TokenRefresher) (*ValidToken, error) {
	cred := integration.Credential()
	if cred.AccessToken == "" {
		return nil, apperrors.BadRequest("integration has no stored access token", nil)
	}

	now := s.now()
	if cred.TokenExpiresAt == nil || now.Before(cred.TokenExpiresAt.Add(-expiryBuffer)) {
		return &ValidToken{AccessToken: cred.AccessToken}, nil
	}

	if cred.RefreshToken == "" {
		return nil, apperrors.ReconnectRequired(integration.Provider)
	}
	if refresher == nil {
		return nil, apperrors.ReconnectRequired(integration.Provider)
	}

	accessToken, expiresIn, err := refresher.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		s.metrics.TokenRefreshes.WithLabelValues(integration.Provider, "error").Inc()
		return nil, apperrors.TokenRefreshFailed(integration.Provider, err)
	}

	newExpiry := now.Add(time.Duration(expiresIn) * time.Second)
	patch := model.JSONMap{
		"access_token":     accessToken,
		"token_expires_at": newExpiry.Format(time.RFC3339),
	}
	if err := s.repo.MergeConfig(ctx, integration.ID, patch); err != nil {
		return nil, apperrors.Internal(err)
	}
	for k, v := range patch {
		integration.Config[k] = v
	}

	s.metrics.TokenRefreshes.WithLabelValues(integration.Provider, "success").Inc()
	s.logger.Info().
		Str("provider", integration.Provider).
		Time("new_expiry", newExpiry).
		Msg("access token refreshed")

	return &ValidToken{AccessToken: accessToken, Refreshed: true, NewExpiry: &newExpiry}, nil
}

// MarkSynced stamps last_sync_at; called only after every fetch and
// upsert step of a sync succeeded.
func (s *Service) MarkSynced(ctx context.Context, integration *model.Integration) error {
	at := s.now()
	if err := s.repo.TouchLastSync(ctx, integration.ID, at); err != nil {
		return apperrors.Internal(err)
	}
	integration.LastSyncAt = &at
	return nil
}
