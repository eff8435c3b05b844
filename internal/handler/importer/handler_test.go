package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/service/funnel"
	"github.com/funnelhq/funnel-api/internal/service/importer"
)

type fakeImportService struct {
	importType string
	records    []map[string]string
}

func (f *fakeImportService) ImportRecords(ctx context.Context, orgID uuid.UUID, importType string, rows []map[string]string) (*importer.Result, error) {
	f.importType = importType
	f.records = rows
	return &importer.Result{Imported: len(rows), TotalRows: len(rows)}, nil
}

func (f *fakeImportService) ImportFunnelRows(ctx context.Context, orgID uuid.UUID, headers []string, rows [][]string) (*importer.Result, error) {
	return &importer.Result{}, nil
}

func (f *fakeImportService) ImportUTMRows(ctx context.Context, orgID uuid.UUID, headers []string, rows [][]string) (*importer.Result, error) {
	return &importer.Result{}, nil
}

type stubFunnelService struct{}

func (stubFunnelService) List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.FunnelData, error) {
	return nil, nil
}

func (stubFunnelService) ListUTM(ctx context.Context, orgID uuid.UUID, month string) ([]*model.UTMData, error) {
	return nil, nil
}

func (stubFunnelService) Totals(ctx context.Context, orgID uuid.UUID, month string) (*funnel.TotalsResponse, error) {
	return &funnel.TotalsResponse{}, nil
}

func (stubFunnelService) InvalidateTotals(ctx context.Context, orgID uuid.UUID) {}

func (stubFunnelService) ListCampaigns(ctx context.Context, orgID uuid.UUID) ([]*model.Campaign, error) {
	return nil, nil
}

func (stubFunnelService) CreateCampaign(ctx context.Context, orgID uuid.UUID, name, status string) (*model.Campaign, error) {
	return nil, nil
}

func (stubFunnelService) CreateRow(ctx context.Context, orgID uuid.UUID, row *model.FunnelData) error {
	return nil
}

func (stubFunnelService) CreateUTMRow(ctx context.Context, orgID uuid.UUID, row *model.UTMData) error {
	return nil
}

func newImportRouter(svc *fakeImportService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(svc, stubFunnelService{}, nil)
	engine.POST("/import", h.ImportRows)
	return engine
}

func TestImportRowsBindsDataField(t *testing.T) {
	svc := &fakeImportService{}
	router := newImportRouter(svc)

	body := `{"type":"funnel","data":[{"mês":"Janeiro","leads":"10"}]}`
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "funnel", svc.importType)
	require.Len(t, svc.records, 1)
	assert.Equal(t, "Janeiro", svc.records[0]["mês"])
}

func TestImportRowsRejectsMissingData(t *testing.T) {
	svc := &fakeImportService{}
	router := newImportRouter(svc)

	body := `{"type":"funnel","rows":[{"mês":"Janeiro"}]}`
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.records)
}
