package facebook

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	"github.com/funnelhq/funnel-api/internal/service/integration"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/metrics"
)

// ErrNoAdAccounts means the OAuth exchange worked but the Facebook
// user has no ad accounts to sync from. The callback reports it as its
// own error code so the frontend can explain it.
var ErrNoAdAccounts = apperrors.BadRequest("no ad accounts available for this user", nil)

// GraphAPI abstracts the Graph client for tests.
type GraphAPI interface {
	BuildOAuthURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error)
	GetUserAndAdAccounts(ctx context.Context, accessToken string) (*UserInfo, []AdAccount, error)
	ListCampaigns(ctx context.Context, accessToken, adAccountID string) ([]Campaign, error)
	GetCampaignInsights(ctx context.Context, accessToken, adAccountID, dateStart, dateEnd string) ([]InsightRow, error)
	ListAdsWithUTM(ctx context.Context, accessToken, adAccountID string) ([]Ad, error)
}

// SyncResults counts what a sync run wrote.
type SyncResults struct {
	Campaigns  int `json:"campaigns"`
	FunnelRows int `json:"funnel_rows"`
	UTMRows    int `json:"utm_rows"`
}

// SyncResponse is the sync endpoint's payload.
type SyncResponse struct {
	Results SyncResults `json:"results"`
	Period  Period      `json:"period"`
}

type Period struct {
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
}

// Status reports the integration's connection state.
type Status struct {
	Connected     bool        `json:"connected"`
	IsExpired     bool        `json:"is_expired"`
	AdAccountID   string      `json:"ad_account_id,omitempty"`
	AdAccountName string      `json:"ad_account_name,omitempty"`
	UserName      string      `json:"user_name,omitempty"`
	LastSyncAt    *time.Time  `json:"last_sync_at,omitempty"`
	ConnectedAt   *time.Time  `json:"connected_at,omitempty"`
	AdAccounts    interface{} `json:"ad_accounts,omitempty"`
}

type Servicer interface {
	OAuthURL(orgID, userID uuid.UUID, redirectURI string) string
	CompleteConnect(ctx context.Context, orgID uuid.UUID, code, redirectURI string) error
	Sync(ctx context.Context, orgID uuid.UUID, dateStart, dateEnd string) (*SyncResponse, error)
	Status(ctx context.Context, orgID uuid.UUID) (*Status, error)
	Disconnect(ctx context.Context, orgID uuid.UUID) error
}

type Service struct {
	client         GraphAPI
	campaignRepo   repository.CampaignRepository
	funnelRepo     repository.FunnelRepository
	utmRepo        repository.UTMRepository
	integrationSvc integration.Servicer
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

func NewService(
	client GraphAPI,
	campaignRepo repository.CampaignRepository,
	funnelRepo repository.FunnelRepository,
	utmRepo repository.UTMRepository,
	integrationSvc integration.Servicer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		client:         client,
		campaignRepo:   campaignRepo,
		funnelRepo:     funnelRepo,
		utmRepo:        utmRepo,
		integrationSvc: integrationSvc,
		metrics:        m,
		logger:         logger,
	}
}

// OAuthURL builds the dialog redirect carrying org and user identity
// in the state parameter.
func (s *Service) OAuthURL(orgID, userID uuid.UUID, redirectURI string) string {
	return s.client.BuildOAuthURL(redirectURI, integration.EncodeState(orgID, userID))
}

// CompleteConnect finishes the OAuth callback: exchanges the code,
// looks up the user's ad accounts and stores the credential. The first
// ad account becomes the default; the user can switch later. Nothing
// is persisted when any step fails.
func (s *Service) CompleteConnect(ctx context.Context, orgID uuid.UUID, code, redirectURI string) error {
	token, err := s.client.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return err
	}

	user, accounts, err := s.client.GetUserAndAdAccounts(ctx, token.AccessToken)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return ErrNoAdAccounts
	}

	primary := accounts[0]
	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	config := model.JSONMap{
		"access_token":     token.AccessToken,
		"ad_account_id":    primary.ID,
		"ad_account_name":  primary.Name,
		"token_expires_at": expiresAt.Format(time.RFC3339),
		"user_id":          user.ID,
		"user_name":        user.Name,
		"ad_accounts":      accounts,
	}

	_, err = s.integrationSvc.Connect(ctx, orgID, model.ProviderFacebookAds, config)
	return err
}

// Sync pulls campaigns, insights and ad UTM metadata and reconciles
// them into canonical storage. Steps run sequentially; an error aborts
// the run at that point but earlier upserts stay committed, so a
// partial sync is possible and reported as the top-level error.
// last_sync_at moves only after every step succeeded.
func (s *Service) Sync(ctx context.Context, orgID uuid.UUID, dateStart, dateEnd string) (*SyncResponse, error) {
	started := time.Now()

	integ, err := s.integrationSvc.GetActive(ctx, orgID, model.ProviderFacebookAds)
	if err != nil {
		return nil, err
	}

	cred := integ.Credential()
	if cred.AccessToken == "" || cred.AdAccountID == "" {
		return nil, apperrors.BadRequest("facebook integration configuration is incomplete", nil)
	}

	// Facebook has no refresh token; an expired long-lived token
	// means the user has to reconnect.
	valid, err := s.integrationSvc.EnsureValidToken(ctx, integ, nil)
	if err != nil {
		return nil, err
	}
	accessToken := valid.AccessToken

	now := s.integrationSvc.Clock()()
	if dateEnd == "" {
		dateEnd = now.Format("2006-01-02")
	}
	if dateStart == "" {
		dateStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	}

	results := SyncResults{}
	monthName := PortugueseMonth(now.Month())

	campaigns, err := s.client.ListCampaigns(ctx, accessToken, cred.AdAccountID)
	if err != nil {
		s.recordSyncError(err)
		return nil, err
	}
	for _, fc := range campaigns {
		externalID := fc.ID
		status := model.CampaignStatusPaused
		if fc.Status == "ACTIVE" {
			status = model.CampaignStatusActive
		}
		campaign := &model.Campaign{
			OrganizationID: orgID,
			Name:           fc.Name,
			Source:         model.SourceFacebookAds,
			ExternalID:     &externalID,
			Status:         status,
			Config: model.JSONMap{
				"objective":       fc.Objective,
				"daily_budget":    fc.DailyBudget,
				"lifetime_budget": fc.LifetimeBudget,
			},
		}
		if err := s.campaignRepo.UpsertByExternalID(ctx, campaign); err != nil {
			s.recordSyncError(err)
			return nil, apperrors.Internal(err)
		}
		results.Campaigns++
		s.metrics.RowsUpserted.WithLabelValues("campaigns", model.SourceFacebookAds).Inc()
	}

	insights, err := s.client.GetCampaignInsights(ctx, accessToken, cred.AdAccountID, dateStart, dateEnd)
	if err != nil {
		s.recordSyncError(err)
		return nil, err
	}
	for _, insight := range insights {
		row := s.insightToFunnelRow(ctx, orgID, monthName, insight)
		if err := s.funnelRepo.Upsert(ctx, row); err != nil {
			s.recordSyncError(err)
			return nil, apperrors.Internal(err)
		}
		results.FunnelRows++
		s.metrics.RowsUpserted.WithLabelValues("funnel_data", model.SourceFacebookAds).Inc()
	}

	ads, err := s.client.ListAdsWithUTM(ctx, accessToken, cred.AdAccountID)
	if err != nil {
		s.recordSyncError(err)
		return nil, err
	}
	for _, ad := range ads {
		row, ok := s.adToUTMRow(orgID, monthName, ad)
		if !ok {
			continue
		}
		if err := s.utmRepo.Upsert(ctx, row); err != nil {
			s.recordSyncError(err)
			return nil, apperrors.Internal(err)
		}
		results.UTMRows++
		s.metrics.RowsUpserted.WithLabelValues("utm_data", model.SourceFacebookAds).Inc()
	}

	if err := s.integrationSvc.MarkSynced(ctx, integ); err != nil {
		return nil, err
	}

	// Stored rows for the window; on a re-sync this stays flat while
	// funnel_rows counts the upserts, which makes duplicate growth
	// visible in the logs.
	periodRows, err := s.funnelRepo.CountForPeriod(ctx, orgID, dateStart, dateEnd)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to count funnel rows for sync window")
	}

	s.metrics.SyncRuns.WithLabelValues(model.ProviderFacebookAds, "success").Inc()
	s.metrics.SyncDuration.WithLabelValues(model.ProviderFacebookAds).Observe(time.Since(started).Seconds())
	s.logger.Info().
		Str("organization_id", orgID.String()).
		Int("campaigns", results.Campaigns).
		Int("funnel_rows", results.FunnelRows).
		Int("period_rows", periodRows).
		Int("utm_rows", results.UTMRows).
		Str("date_start", dateStart).
		Str("date_end", dateEnd).
		Msg("facebook sync finished")

	return &SyncResponse{
		Results: results,
		Period:  Period{DateStart: dateStart, DateEnd: dateEnd},
	}, nil
}

// insightToFunnelRow maps a Graph insight onto the canonical funnel
// row. Leads come from the "lead" action; sales from "purchase",
// falling back to the pixel purchase conversion. Qualified leads and
// visits are not reported by this provider and stay 0.
func (s *Service) insightToFunnelRow(ctx context.Context, orgID uuid.UUID, monthName string, insight InsightRow) *model.FunnelData {
	leads := ExtractActionMetric(insight.Actions, "lead")
	sales := ExtractActionMetric(insight.Actions, "purchase")
	if sales == 0 {
		sales = ExtractActionMetric(insight.Actions, "offsite_conversion.fb_pixel_purchase")
	}

	var campaignID *uuid.UUID
	if campaign, err := s.campaignRepo.GetByExternalID(ctx, orgID, insight.CampaignID); err == nil {
		campaignID = &campaign.ID
	}

	periodStart := insight.DateStart
	periodEnd := insight.DateStop
	week := ""
	if start, err := time.Parse("2006-01-02", insight.DateStart); err == nil {
		week = fmt.Sprintf("Semana %d", WeekOfMonth(start))
	}

	return &model.FunnelData{
		OrganizationID: orgID,
		CampaignID:     campaignID,
		Month:          monthName,
		Week:           week,
		PeriodStart:    &periodStart,
		PeriodEnd:      &periodEnd,
		Spent:          parseDecimal(insight.Spend),
		Impressions:    parseCount(insight.Impressions),
		Reach:          parseCount(insight.Reach),
		Clicks:         parseCount(insight.Clicks),
		Leads:          leads,
		QualifiedLeads: 0,
		Visits:         0,
		Sales:          sales,
		Source:         model.SourceFacebookAds,
	}
}

// adToUTMRow extracts attribution dimensions from an ad's creative
// tags, falling back to campaign/adset/ad names. Ads with neither UTM
// tags nor a campaign name are dropped.
func (s *Service) adToUTMRow(orgID uuid.UUID, monthName string, ad Ad) (*model.UTMData, bool) {
	params := ParseUTMTags(ad.Creative.URLTags)
	if len(params) == 0 && ad.Campaign.Name == "" {
		return nil, false
	}

	row := &model.UTMData{
		OrganizationID: orgID,
		Month:          monthName,
		UTMCampaign:    fallback(params["utm_campaign"], ad.Campaign.Name, "Sem campanha"),
		UTMTerm:        fallback(params["utm_term"], ad.Adset.Name, ""),
		UTMContent:     fallback(params["utm_content"], ad.Name, ""),
		UTMSource:      fallback(params["utm_source"], "facebook", ""),
		UTMMedium:      fallback(params["utm_medium"], "paid-social", ""),
	}
	return row, true
}

func (s *Service) Status(ctx context.Context, orgID uuid.UUID) (*Status, error) {
	integ, err := s.integrationSvc.Get(ctx, orgID, model.ProviderFacebookAds)
	if err != nil {
		return &Status{Connected: false}, nil
	}

	cred := integ.Credential()
	expired := cred.IsExpired(s.integrationSvc.Clock()())
	connectedAt := integ.CreatedAt

	return &Status{
		Connected:     integ.IsActive && !expired,
		IsExpired:     expired,
		AdAccountID:   cred.AdAccountID,
		AdAccountName: cred.AdAccountName,
		UserName:      cred.UserName,
		LastSyncAt:    integ.LastSyncAt,
		ConnectedAt:   &connectedAt,
		AdAccounts:    integ.Config["ad_accounts"],
	}, nil
}

func (s *Service) Disconnect(ctx context.Context, orgID uuid.UUID) error {
	return s.integrationSvc.Disconnect(ctx, orgID, model.ProviderFacebookAds)
}

func (s *Service) recordSyncError(err error) {
	s.metrics.SyncRuns.WithLabelValues(model.ProviderFacebookAds, "error").Inc()
	if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrProvider {
		s.metrics.ProviderErrors.WithLabelValues(model.ProviderFacebookAds).Inc()
	}
}

func fallback(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseDecimal(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseCount(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
