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

type integrationRepository struct {
	db *sqlx.DB
}

func NewIntegrationRepository(db *sqlx.DB) repository.IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) Get(ctx context.Context, orgID uuid.UUID, provider string) (*model.Integration, error) {
	query := `
		SELECT * FROM integrations
		WHERE organization_id = $1 AND provider = $2
	`
	var integration model.Integration
	if err := r.db.GetContext(ctx, &integration, query, orgID, provider); err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return &integration, nil
}

func (r *integrationRepository) Upsert(ctx context.Context, integration *model.Integration) error {
	query := `
		INSERT INTO integrations (
			id, organization_id, provider, config, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id, provider) DO UPDATE SET
			config = EXCLUDED.config,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	now := time.Now()
	if integration.ID == uuid.Nil {
		integration.ID = uuid.New()
		integration.CreatedAt = now
	}
	integration.UpdatedAt = now

	if err := r.db.QueryRowxContext(ctx, query,
		integration.ID,
		integration.OrganizationID,
		integration.Provider,
		integration.Config,
		integration.IsActive,
		now,
		now,
	).Scan(&integration.ID); err != nil {
		return fmt.Errorf("failed to upsert integration: %w", err)
	}
	return nil
}

// MergeConfig relies on Postgres jsonb concatenation so a token
// rotation only touches the patched keys.
func (r *integrationRepository) MergeConfig(ctx context.Context, id uuid.UUID, patch model.JSONMap) error {
	query := `
		UPDATE integrations
		SET config = config || $1::jsonb, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, patch, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to merge integration config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("integration not found")
	}

	return nil
}

func (r *integrationRepository) TouchLastSync(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE integrations
		SET last_sync_at = $1, updated_at = $2
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, at, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update last_sync_at: %w", err)
	}
	return nil
}

func (r *integrationRepository) Deactivate(ctx context.Context, orgID uuid.UUID, provider string) error {
	query := `
		UPDATE integrations
		SET is_active = false, config = '{}'::jsonb, updated_at = $1
		WHERE organization_id = $2 AND provider = $3
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), orgID, provider)
	if err != nil {
		return fmt.Errorf("failed to deactivate integration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("integration not found")
	}

	return nil
}
