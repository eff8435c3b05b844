package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	"github.com/funnelhq/funnel-api/internal/service/importer"
	"github.com/funnelhq/funnel-api/internal/service/integration"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/metrics"
)

// SheetsAPI abstracts the Google client for tests. RefreshToken makes
// it the provider's integration.TokenRefresher.
type SheetsAPI interface {
	integration.TokenRefresher
	BuildOAuthURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error)
	ListSpreadsheets(ctx context.Context, accessToken string) ([]Spreadsheet, error)
	ListSheetTitles(ctx context.Context, accessToken, spreadsheetID string) ([]string, error)
	GetValues(ctx context.Context, accessToken, spreadsheetID, readRange string) (*ValueRange, error)
	UpdateValues(ctx context.Context, accessToken, spreadsheetID, writeRange string, values [][]interface{}) error
	AppendValues(ctx context.Context, accessToken, spreadsheetID, writeRange string, values [][]interface{}) error
}

// Status reports the integration's connection state.
type Status struct {
	Connected   bool       `json:"connected"`
	IsExpired   bool       `json:"is_expired"`
	CanRefresh  bool       `json:"can_refresh"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// ImportRequest selects what to pull from a spreadsheet.
type ImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" binding:"required"`
	SheetName     string `json:"sheet_name" binding:"required"`
	TargetTable   string `json:"target_table" binding:"required,oneof=funnel_data utm_data"`
}

// ExportRequest selects what to push into a spreadsheet.
type ExportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" binding:"required"`
	SheetName     string `json:"sheet_name" binding:"required"`
	SourceTable   string `json:"source_table" binding:"required,oneof=funnel_data utm_data"`
	Month         string `json:"month"`
	Append        bool   `json:"append"`
}

// ExportResult counts what an export wrote.
type ExportResult struct {
	Exported     int `json:"exported"`
	UpdatedCells int `json:"updated_cells"`
}

type Servicer interface {
	OAuthURL(orgID, userID uuid.UUID, redirectURI string) string
	CompleteConnect(ctx context.Context, orgID uuid.UUID, code, redirectURI string) error
	Status(ctx context.Context, orgID uuid.UUID) (*Status, error)
	Disconnect(ctx context.Context, orgID uuid.UUID) error
	ListSpreadsheets(ctx context.Context, orgID uuid.UUID) ([]Spreadsheet, error)
	ListSheets(ctx context.Context, orgID uuid.UUID, spreadsheetID string) ([]string, error)
	Import(ctx context.Context, orgID uuid.UUID, req *ImportRequest) (*importer.Result, error)
	Export(ctx context.Context, orgID uuid.UUID, req *ExportRequest) (*ExportResult, error)
}

type Service struct {
	client         SheetsAPI
	importSvc      importer.ImportServicer
	funnelRepo     repository.FunnelRepository
	utmRepo        repository.UTMRepository
	integrationSvc integration.Servicer
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

func NewService(
	client SheetsAPI,
	importSvc importer.ImportServicer,
	funnelRepo repository.FunnelRepository,
	utmRepo repository.UTMRepository,
	integrationSvc integration.Servicer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		client:         client,
		importSvc:      importSvc,
		funnelRepo:     funnelRepo,
		utmRepo:        utmRepo,
		integrationSvc: integrationSvc,
		metrics:        m,
		logger:         logger,
	}
}

func (s *Service) OAuthURL(orgID, userID uuid.UUID, redirectURI string) string {
	return s.client.BuildOAuthURL(redirectURI, integration.EncodeState(orgID, userID))
}

// CompleteConnect stores both tokens. A missing refresh token is
// tolerated here (Google omits it on re-consent when one is already
// outstanding); token refresh will then require reconnecting once the
// access token expires.
func (s *Service) CompleteConnect(ctx context.Context, orgID uuid.UUID, code, redirectURI string) error {
	token, err := s.client.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	config := model.JSONMap{
		"access_token":     token.AccessToken,
		"token_expires_at": expiresAt.Format(time.RFC3339),
	}
	if token.RefreshToken != "" {
		config["refresh_token"] = token.RefreshToken
	}

	_, err = s.integrationSvc.Connect(ctx, orgID, model.ProviderGoogleSheets, config)
	return err
}

func (s *Service) Status(ctx context.Context, orgID uuid.UUID) (*Status, error) {
	integ, err := s.integrationSvc.Get(ctx, orgID, model.ProviderGoogleSheets)
	if err != nil {
		return &Status{Connected: false}, nil
	}

	cred := integ.Credential()
	expired := cred.IsExpired(s.integrationSvc.Clock()())
	connectedAt := integ.CreatedAt

	return &Status{
		Connected:   integ.IsActive,
		IsExpired:   expired,
		CanRefresh:  cred.RefreshToken != "",
		LastSyncAt:  integ.LastSyncAt,
		ConnectedAt: &connectedAt,
	}, nil
}

func (s *Service) Disconnect(ctx context.Context, orgID uuid.UUID) error {
	return s.integrationSvc.Disconnect(ctx, orgID, model.ProviderGoogleSheets)
}

func (s *Service) ListSpreadsheets(ctx context.Context, orgID uuid.UUID) ([]Spreadsheet, error) {
	accessToken, err := s.validToken(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.client.ListSpreadsheets(ctx, accessToken)
}

func (s *Service) ListSheets(ctx context.Context, orgID uuid.UUID, spreadsheetID string) ([]string, error) {
	accessToken, err := s.validToken(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return s.client.ListSheetTitles(ctx, accessToken, spreadsheetID)
}

// Import pulls a sheet's rows and runs them through the positional
// importer. The first row is treated as the header; remaining rows are
// data. last_sync_at moves only when the whole import succeeded.
func (s *Service) Import(ctx context.Context, orgID uuid.UUID, req *ImportRequest) (*importer.Result, error) {
	started := time.Now()

	integ, err := s.integrationSvc.GetActive(ctx, orgID, model.ProviderGoogleSheets)
	if err != nil {
		return nil, err
	}
	valid, err := s.integrationSvc.EnsureValidToken(ctx, integ, s.client)
	if err != nil {
		return nil, err
	}

	// Open-ended column range so the sheet's full row count comes back.
	readRange := fmt.Sprintf("%s!A:Z", req.SheetName)
	values, err := s.client.GetValues(ctx, valid.AccessToken, req.SpreadsheetID, readRange)
	if err != nil {
		s.metrics.SyncRuns.WithLabelValues(model.ProviderGoogleSheets, "error").Inc()
		return nil, err
	}
	if len(values.Values) < 2 {
		return nil, apperrors.BadRequest("sheet has no data rows", nil)
	}

	headers := stringifyRow(values.Values[0])
	rows := make([][]string, 0, len(values.Values)-1)
	for _, raw := range values.Values[1:] {
		rows = append(rows, stringifyRow(raw))
	}

	var result *importer.Result
	switch req.TargetTable {
	case "utm_data":
		result, err = s.importSvc.ImportUTMRows(ctx, orgID, headers, rows)
	default:
		result, err = s.importSvc.ImportFunnelRows(ctx, orgID, headers, rows)
	}
	if err != nil {
		s.metrics.SyncRuns.WithLabelValues(model.ProviderGoogleSheets, "error").Inc()
		return nil, err
	}

	if err := s.integrationSvc.MarkSynced(ctx, integ); err != nil {
		return nil, err
	}

	s.metrics.SyncRuns.WithLabelValues(model.ProviderGoogleSheets, "success").Inc()
	s.metrics.SyncDuration.WithLabelValues(model.ProviderGoogleSheets).Observe(time.Since(started).Seconds())
	s.logger.Info().
		Str("organization_id", orgID.String()).
		Str("spreadsheet_id", req.SpreadsheetID).
		Str("sheet", req.SheetName).
		Str("target_table", req.TargetTable).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("sheet import finished")

	return result, nil
}

// Export writes the org's current funnel or UTM rows into a sheet,
// header first. Update overwrites from A1; append adds after the
// existing table.
func (s *Service) Export(ctx context.Context, orgID uuid.UUID, req *ExportRequest) (*ExportResult, error) {
	integ, err := s.integrationSvc.GetActive(ctx, orgID, model.ProviderGoogleSheets)
	if err != nil {
		return nil, err
	}
	valid, err := s.integrationSvc.EnsureValidToken(ctx, integ, s.client)
	if err != nil {
		return nil, err
	}

	var values [][]interface{}
	switch req.SourceTable {
	case "utm_data":
		values, err = s.buildUTMValues(ctx, orgID, req.Month)
	default:
		values, err = s.buildFunnelValues(ctx, orgID, req.Month)
	}
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, apperrors.BadRequest("no data to export", nil)
	}

	writeRange := fmt.Sprintf("%s!A1", req.SheetName)
	written := values
	if req.Append {
		// Append skips the header row; the table already has one.
		written = values[1:]
		err = s.client.AppendValues(ctx, valid.AccessToken, req.SpreadsheetID, writeRange, written)
	} else {
		err = s.client.UpdateValues(ctx, valid.AccessToken, req.SpreadsheetID, writeRange, written)
	}
	if err != nil {
		s.metrics.SyncRuns.WithLabelValues(model.ProviderGoogleSheets, "error").Inc()
		return nil, err
	}

	if err := s.integrationSvc.MarkSynced(ctx, integ); err != nil {
		return nil, err
	}

	return &ExportResult{
		Exported:     len(values) - 1,
		UpdatedCells: len(written) * len(values[0]),
	}, nil
}

func (s *Service) buildFunnelValues(ctx context.Context, orgID uuid.UUID, month string) ([][]interface{}, error) {
	rows, err := s.funnelRepo.List(ctx, orgID, month)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	values := [][]interface{}{{
		"Mês", "Semana", "Início", "Fim", "Investido", "Impressões",
		"Alcance", "Cliques", "Leads", "Leads Qualificados", "Agendamentos", "Vendas",
	}}
	for _, r := range rows {
		values = append(values, []interface{}{
			r.Month, r.Week, deref(r.PeriodStart), deref(r.PeriodEnd),
			r.Spent, r.Impressions, r.Reach, r.Clicks,
			r.Leads, r.QualifiedLeads, r.Visits, r.Sales,
		})
	}
	return values, nil
}

func (s *Service) buildUTMValues(ctx context.Context, orgID uuid.UUID, month string) ([][]interface{}, error) {
	rows, err := s.utmRepo.List(ctx, orgID, month)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	values := [][]interface{}{{
		"Mês", "Campanha", "Termo", "Conteúdo", "Origem", "Mídia",
		"Investido", "Interações", "Leads", "Vendas",
	}}
	for _, r := range rows {
		values = append(values, []interface{}{
			r.Month, r.UTMCampaign, r.UTMTerm, r.UTMContent, r.UTMSource, r.UTMMedium,
			r.Spent, r.Interactions, r.Leads, r.Sales,
		})
	}
	return values, nil
}

// validToken resolves the org's active integration to a usable access
// token, refreshing when needed.
func (s *Service) validToken(ctx context.Context, orgID uuid.UUID) (string, error) {
	integ, err := s.integrationSvc.GetActive(ctx, orgID, model.ProviderGoogleSheets)
	if err != nil {
		return "", err
	}
	valid, err := s.integrationSvc.EnsureValidToken(ctx, integ, s.client)
	if err != nil {
		return "", err
	}
	return valid.AccessToken, nil
}

func stringifyRow(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, cell := range raw {
		out[i] = fmt.Sprintf("%v", cell)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
