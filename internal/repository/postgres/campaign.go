package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
)

type campaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) repository.CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, organization_id, name, source, external_id, status, config,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.OrganizationID,
		c.Name,
		c.Source,
		c.ExternalID,
		c.Status,
		c.Config,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) UpsertByExternalID(ctx context.Context, c *model.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, organization_id, name, source, external_id, status, config,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (organization_id, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			source = EXCLUDED.source,
			status = EXCLUDED.status,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	now := time.Now()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.OrganizationID,
		c.Name,
		c.Source,
		c.ExternalID,
		c.Status,
		c.Config,
		now,
		now,
	).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) GetByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (*model.Campaign, error) {
	query := `
		SELECT * FROM campaigns
		WHERE organization_id = $1 AND external_id = $2 AND deleted_at IS NULL
	`
	var c model.Campaign
	if err := r.db.GetContext(ctx, &c, query, orgID, externalID); err != nil {
		return nil, fmt.Errorf("failed to get campaign by external id: %w", err)
	}
	return &c, nil
}

func (r *campaignRepository) List(ctx context.Context, orgID uuid.UUID) ([]*model.Campaign, error) {
	query := `
		SELECT * FROM campaigns
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	var campaigns []*model.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}
