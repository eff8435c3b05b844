package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/funnelhq/funnel-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	Get(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	Update(ctx context.Context, org *model.Organization) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Organization, error)
}

type MembershipRepository interface {
	Create(ctx context.Context, m *model.Membership) error
	GetRole(ctx context.Context, orgID, userID uuid.UUID) (string, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*model.Member, error)
	UpdateRole(ctx context.Context, orgID, userID uuid.UUID, role string) error
	Delete(ctx context.Context, orgID, userID uuid.UUID) error
	CountByRole(ctx context.Context, orgID uuid.UUID, role string) (int, error)
}

type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) error
	// UpsertByExternalID inserts or updates on (organization_id, external_id).
	UpsertByExternalID(ctx context.Context, c *model.Campaign) error
	GetByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (*model.Campaign, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*model.Campaign, error)
}

type FunnelRepository interface {
	// Insert appends a row with no uniqueness guarantee (CSV import path).
	Insert(ctx context.Context, row *model.FunnelData) error
	// Upsert inserts or overwrites on
	// (organization_id, campaign_id, period_start, period_end).
	Upsert(ctx context.Context, row *model.FunnelData) error
	List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.FunnelData, error)
	Totals(ctx context.Context, orgID uuid.UUID, month string) (*model.FunnelTotals, error)
	CountForPeriod(ctx context.Context, orgID uuid.UUID, periodStart, periodEnd string) (int, error)
}

type UTMRepository interface {
	// Insert appends a row with no uniqueness guarantee (CSV import path).
	Insert(ctx context.Context, row *model.UTMData) error
	// Upsert inserts or overwrites on
	// (organization_id, month, utm_campaign, utm_term, utm_content).
	Upsert(ctx context.Context, row *model.UTMData) error
	List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.UTMData, error)
}

type IntegrationRepository interface {
	Get(ctx context.Context, orgID uuid.UUID, provider string) (*model.Integration, error)
	// Upsert inserts or replaces the config on (organization_id, provider).
	Upsert(ctx context.Context, integration *model.Integration) error
	// MergeConfig partially merges patch keys into the stored config
	// blob, leaving all other keys intact, and stamps updated_at.
	MergeConfig(ctx context.Context, id uuid.UUID, patch model.JSONMap) error
	TouchLastSync(ctx context.Context, id uuid.UUID, at time.Time) error
	// Deactivate clears the config and flips is_active off.
	Deactivate(ctx context.Context, orgID uuid.UUID, provider string) error
}
