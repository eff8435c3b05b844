package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/metrics"
)

const totalsCacheTTL = 60 * time.Second

// TotalsResponse carries the aggregate metrics plus the conversion
// rates the dashboard charts.
type TotalsResponse struct {
	Totals model.FunnelTotals `json:"totals"`
	Rates  ConversionRates    `json:"rates"`
}

// ConversionRates are step-to-step percentages; a zero denominator
// yields a zero rate.
type ConversionRates struct {
	ClickToLead      float64 `json:"click_to_lead"`
	LeadToQualified  float64 `json:"lead_to_qualified"`
	QualifiedToVisit float64 `json:"qualified_to_visit"`
	VisitToSale      float64 `json:"visit_to_sale"`
	LeadToSale       float64 `json:"lead_to_sale"`
	CostPerLead      float64 `json:"cost_per_lead"`
	CostPerSale      float64 `json:"cost_per_sale"`
}

type Servicer interface {
	List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.FunnelData, error)
	ListUTM(ctx context.Context, orgID uuid.UUID, month string) ([]*model.UTMData, error)
	Totals(ctx context.Context, orgID uuid.UUID, month string) (*TotalsResponse, error)
	InvalidateTotals(ctx context.Context, orgID uuid.UUID)
	ListCampaigns(ctx context.Context, orgID uuid.UUID) ([]*model.Campaign, error)
	CreateCampaign(ctx context.Context, orgID uuid.UUID, name, status string) (*model.Campaign, error)
	CreateRow(ctx context.Context, orgID uuid.UUID, row *model.FunnelData) error
	CreateUTMRow(ctx context.Context, orgID uuid.UUID, row *model.UTMData) error
}

type Service struct {
	funnelRepo   repository.FunnelRepository
	utmRepo      repository.UTMRepository
	campaignRepo repository.CampaignRepository
	cache        *redis.Client
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewService(
	funnelRepo repository.FunnelRepository,
	utmRepo repository.UTMRepository,
	campaignRepo repository.CampaignRepository,
	cache *redis.Client,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		funnelRepo:   funnelRepo,
		utmRepo:      utmRepo,
		campaignRepo: campaignRepo,
		cache:        cache,
		metrics:      m,
		logger:       logger,
	}
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.FunnelData, error) {
	rows, err := s.funnelRepo.List(ctx, orgID, month)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return rows, nil
}

func (s *Service) ListUTM(ctx context.Context, orgID uuid.UUID, month string) ([]*model.UTMData, error) {
	rows, err := s.utmRepo.List(ctx, orgID, month)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return rows, nil
}

func (s *Service) ListCampaigns(ctx context.Context, orgID uuid.UUID) ([]*model.Campaign, error) {
	campaigns, err := s.campaignRepo.List(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return campaigns, nil
}

// CreateCampaign registers a manually tracked campaign; synced
// campaigns arrive through the provider reconciliation instead.
func (s *Service) CreateCampaign(ctx context.Context, orgID uuid.UUID, name, status string) (*model.Campaign, error) {
	if status == "" {
		status = model.CampaignStatusActive
	}
	campaign := &model.Campaign{
		OrganizationID: orgID,
		Name:           name,
		Source:         model.SourceManual,
		Status:         status,
		Config:         model.JSONMap{},
	}
	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, apperrors.Internal(err)
	}
	return campaign, nil
}

// CreateRow appends a manually entered funnel row and drops the cached
// totals so the dashboard reflects it immediately.
func (s *Service) CreateRow(ctx context.Context, orgID uuid.UUID, row *model.FunnelData) error {
	if row.Month == "" {
		return apperrors.BadRequest("month is required", nil)
	}
	row.OrganizationID = orgID
	row.Source = model.SourceManual
	if err := s.funnelRepo.Insert(ctx, row); err != nil {
		return apperrors.Internal(err)
	}
	s.metrics.RowsUpserted.WithLabelValues("funnel_data", model.SourceManual).Inc()
	s.InvalidateTotals(ctx, orgID)
	return nil
}

func (s *Service) CreateUTMRow(ctx context.Context, orgID uuid.UUID, row *model.UTMData) error {
	if row.UTMCampaign == "" {
		return apperrors.BadRequest("utm_campaign is required", nil)
	}
	row.OrganizationID = orgID
	if err := s.utmRepo.Insert(ctx, row); err != nil {
		return apperrors.Internal(err)
	}
	s.metrics.RowsUpserted.WithLabelValues("utm_data", model.SourceManual).Inc()
	return nil
}

// Totals aggregates the metric columns, read through a short-lived
// Redis cache. The cache is best effort: a Redis failure falls through
// to the database.
func (s *Service) Totals(ctx context.Context, orgID uuid.UUID, month string) (*TotalsResponse, error) {
	key := totalsKey(orgID, month)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached TotalsResponse
			if json.Unmarshal(raw, &cached) == nil {
				s.metrics.CacheHits.WithLabelValues("funnel_totals").Inc()
				return &cached, nil
			}
		}
		s.metrics.CacheMisses.WithLabelValues("funnel_totals").Inc()
	}

	totals, err := s.funnelRepo.Totals(ctx, orgID, month)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	resp := &TotalsResponse{
		Totals: *totals,
		Rates:  computeRates(totals),
	}

	if s.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, raw, totalsCacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache funnel totals")
			}
		}
	}
	return resp, nil
}

// InvalidateTotals drops every cached totals window for the org; calls
// after imports and syncs so the dashboard never shows a stale total
// for longer than one request.
func (s *Service) InvalidateTotals(ctx context.Context, orgID uuid.UUID) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("funnel:totals:%s:*", orgID)
	iter := s.cache.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		s.cache.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate funnel totals cache")
	}
}

func totalsKey(orgID uuid.UUID, month string) string {
	if month == "" {
		month = "all"
	}
	return fmt.Sprintf("funnel:totals:%s:%s", orgID, month)
}

func computeRates(t *model.FunnelTotals) ConversionRates {
	return ConversionRates{
		ClickToLead:      percentage(t.Leads, t.Clicks),
		LeadToQualified:  percentage(t.QualifiedLeads, t.Leads),
		QualifiedToVisit: percentage(t.Visits, t.QualifiedLeads),
		VisitToSale:      percentage(t.Sales, t.Visits),
		LeadToSale:       percentage(t.Sales, t.Leads),
		CostPerLead:      divide(t.Spent, t.Leads),
		CostPerSale:      divide(t.Spent, t.Sales),
	}
}

func percentage(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

func divide(spent float64, den int64) float64 {
	if den == 0 {
		return 0
	}
	return spent / float64(den)
}
