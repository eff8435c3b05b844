package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel-api/internal/model"
	funnelsvc "github.com/funnelhq/funnel-api/internal/service/funnel"
	"github.com/funnelhq/funnel-api/pkg/httputil"
)

type stubFunnelService struct {
	rows    []*model.FunnelData
	utmRows []*model.UTMData
}

func (s stubFunnelService) List(context.Context, uuid.UUID, string) ([]*model.FunnelData, error) {
	return s.rows, nil
}

func (s stubFunnelService) ListUTM(context.Context, uuid.UUID, string) ([]*model.UTMData, error) {
	return s.utmRows, nil
}

func (s stubFunnelService) Totals(context.Context, uuid.UUID, string) (*funnelsvc.TotalsResponse, error) {
	return &funnelsvc.TotalsResponse{}, nil
}

func (s stubFunnelService) InvalidateTotals(context.Context, uuid.UUID) {}

func (s stubFunnelService) ListCampaigns(context.Context, uuid.UUID) ([]*model.Campaign, error) {
	return nil, nil
}

func (s stubFunnelService) CreateCampaign(context.Context, uuid.UUID, string, string) (*model.Campaign, error) {
	return &model.Campaign{}, nil
}

func (s stubFunnelService) CreateRow(context.Context, uuid.UUID, *model.FunnelData) error {
	return nil
}

func (s stubFunnelService) CreateUTMRow(context.Context, uuid.UUID, *model.UTMData) error {
	return nil
}

func newListRouter(svc funnelsvc.Servicer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, nil)
	engine := gin.New()
	engine.GET("/funnel", h.List)
	engine.GET("/utm", h.ListUTM)
	return engine
}

func weeklyRows(n int) []*model.FunnelData {
	rows := make([]*model.FunnelData, n)
	for i := range rows {
		rows[i] = &model.FunnelData{Month: "Janeiro", Week: fmt.Sprintf("Semana %d", i+1)}
	}
	return rows
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) httputil.PaginatedResponse {
	t.Helper()
	var resp struct {
		Success bool                       `json:"success"`
		Data    httputil.PaginatedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp.Data
}

func TestListDefaultsToFirstPage(t *testing.T) {
	engine := newListRouter(stubFunnelService{rows: weeklyRows(3)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/funnel", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 50, page.Pagination.PageSize)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPage)
	assert.Len(t, page.Data.([]any), 3)
}

func TestListWindowsRows(t *testing.T) {
	engine := newListRouter(stubFunnelService{rows: weeklyRows(5)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/funnel?page=2&page_size=2", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 5, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPage)

	rows := page.Data.([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "Semana 3", rows[0].(map[string]any)["week"])
	assert.Equal(t, "Semana 4", rows[1].(map[string]any)["week"])
}

func TestListPageBeyondEndIsEmpty(t *testing.T) {
	engine := newListRouter(stubFunnelService{rows: weeklyRows(2)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/funnel?page=9&page_size=10", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Len(t, page.Data.([]any), 0)
}

func TestListUTMWindowsRows(t *testing.T) {
	engine := newListRouter(stubFunnelService{utmRows: []*model.UTMData{
		{Month: "Janeiro"}, {Month: "Fevereiro"}, {Month: "Março"},
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/utm?page=1&page_size=2", nil)
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPage)
	assert.Len(t, page.Data.([]any), 2)
}
