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

type utmRepository struct {
	db *sqlx.DB
}

func NewUTMRepository(db *sqlx.DB) repository.UTMRepository {
	return &utmRepository{db: db}
}

func (r *utmRepository) Insert(ctx context.Context, row *model.UTMData) error {
	query := `
		INSERT INTO utm_data (
			id, organization_id, month, utm_source, utm_medium, utm_campaign,
			utm_term, utm_content, interactions, leads, qualified_leads, visits,
			sales, spent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	row.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		row.ID,
		row.OrganizationID,
		row.Month,
		row.UTMSource,
		row.UTMMedium,
		row.UTMCampaign,
		row.UTMTerm,
		row.UTMContent,
		row.Interactions,
		row.Leads,
		row.QualifiedLeads,
		row.Visits,
		row.Sales,
		row.Spent,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert utm row: %w", err)
	}
	return nil
}

func (r *utmRepository) Upsert(ctx context.Context, row *model.UTMData) error {
	query := `
		INSERT INTO utm_data (
			id, organization_id, month, utm_source, utm_medium, utm_campaign,
			utm_term, utm_content, interactions, leads, qualified_leads, visits,
			sales, spent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (organization_id, month, utm_campaign, utm_term, utm_content) DO UPDATE SET
			utm_source = EXCLUDED.utm_source,
			utm_medium = EXCLUDED.utm_medium,
			interactions = EXCLUDED.interactions,
			leads = EXCLUDED.leads,
			qualified_leads = EXCLUDED.qualified_leads,
			visits = EXCLUDED.visits,
			sales = EXCLUDED.sales,
			spent = EXCLUDED.spent,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		row.ID,
		row.OrganizationID,
		row.Month,
		row.UTMSource,
		row.UTMMedium,
		row.UTMCampaign,
		row.UTMTerm,
		row.UTMContent,
		row.Interactions,
		row.Leads,
		row.QualifiedLeads,
		row.Visits,
		row.Sales,
		row.Spent,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert utm row: %w", err)
	}
	return nil
}

func (r *utmRepository) List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.UTMData, error) {
	query := `
		SELECT * FROM utm_data
		WHERE organization_id = $1
	`
	args := []interface{}{orgID}
	if month != "" {
		query += ` AND month = $2`
		args = append(args, month)
	}
	query += ` ORDER BY created_at DESC`

	var rows []*model.UTMData
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list utm data: %w", err)
	}
	return rows, nil
}
