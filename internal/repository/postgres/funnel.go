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

type funnelRepository struct {
	db *sqlx.DB
}

func NewFunnelRepository(db *sqlx.DB) repository.FunnelRepository {
	return &funnelRepository{db: db}
}

func (r *funnelRepository) Insert(ctx context.Context, row *model.FunnelData) error {
	query := `
		INSERT INTO funnel_data (
			id, organization_id, campaign_id, month, week, period_start, period_end,
			spent, impressions, reach, clicks, leads, qualified_leads, visits,
			follow_up, sales, source, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	row.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		row.ID,
		row.OrganizationID,
		row.CampaignID,
		row.Month,
		row.Week,
		row.PeriodStart,
		row.PeriodEnd,
		row.Spent,
		row.Impressions,
		row.Reach,
		row.Clicks,
		row.Leads,
		row.QualifiedLeads,
		row.Visits,
		row.FollowUp,
		row.Sales,
		row.Source,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert funnel row: %w", err)
	}
	return nil
}

// Upsert reconciles a synced row by its natural key. campaign_id is
// nullable and NULL keys never match the conflict target, so a row
// stored without a campaign is re-inserted on the next sync instead of
// updated. The backing unique index must be declared NULLS NOT DISTINCT
// to close that gap.
func (r *funnelRepository) Upsert(ctx context.Context, row *model.FunnelData) error {
	query := `
		INSERT INTO funnel_data (
			id, organization_id, campaign_id, month, week, period_start, period_end,
			spent, impressions, reach, clicks, leads, qualified_leads, visits,
			follow_up, sales, source, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (organization_id, campaign_id, period_start, period_end) DO UPDATE SET
			month = EXCLUDED.month,
			week = EXCLUDED.week,
			spent = EXCLUDED.spent,
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			clicks = EXCLUDED.clicks,
			leads = EXCLUDED.leads,
			qualified_leads = EXCLUDED.qualified_leads,
			visits = EXCLUDED.visits,
			follow_up = EXCLUDED.follow_up,
			sales = EXCLUDED.sales,
			source = EXCLUDED.source,
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
		row.CampaignID,
		row.Month,
		row.Week,
		row.PeriodStart,
		row.PeriodEnd,
		row.Spent,
		row.Impressions,
		row.Reach,
		row.Clicks,
		row.Leads,
		row.QualifiedLeads,
		row.Visits,
		row.FollowUp,
		row.Sales,
		row.Source,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert funnel row: %w", err)
	}
	return nil
}

func (r *funnelRepository) List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.FunnelData, error) {
	query := `
		SELECT * FROM funnel_data
		WHERE organization_id = $1
	`
	args := []interface{}{orgID}
	if month != "" {
		query += ` AND month = $2`
		args = append(args, month)
	}
	query += ` ORDER BY period_start ASC`

	var rows []*model.FunnelData
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list funnel data: %w", err)
	}
	return rows, nil
}

func (r *funnelRepository) Totals(ctx context.Context, orgID uuid.UUID, month string) (*model.FunnelTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(spent), 0) AS spent,
			COALESCE(SUM(impressions), 0) AS impressions,
			COALESCE(SUM(reach), 0) AS reach,
			COALESCE(SUM(clicks), 0) AS clicks,
			COALESCE(SUM(leads), 0) AS leads,
			COALESCE(SUM(qualified_leads), 0) AS qualified_leads,
			COALESCE(SUM(visits), 0) AS visits,
			COALESCE(SUM(follow_up), 0) AS follow_up,
			COALESCE(SUM(sales), 0) AS sales
		FROM funnel_data
		WHERE organization_id = $1
	`
	args := []interface{}{orgID}
	if month != "" {
		query += ` AND month = $2`
		args = append(args, month)
	}

	var totals model.FunnelTotals
	if err := r.db.GetContext(ctx, &totals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to aggregate funnel totals: %w", err)
	}
	return &totals, nil
}

func (r *funnelRepository) CountForPeriod(ctx context.Context, orgID uuid.UUID, periodStart, periodEnd string) (int, error) {
	query := `
		SELECT COUNT(*) FROM funnel_data
		WHERE organization_id = $1 AND period_start >= $2 AND period_end <= $3
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, orgID, periodStart, periodEnd); err != nil {
		return 0, fmt.Errorf("failed to count funnel rows: %w", err)
	}
	return count, nil
}
