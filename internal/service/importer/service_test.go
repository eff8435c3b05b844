package importer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("importer_test", "test")

type memFunnelRepo struct {
	rows []*model.FunnelData
}

func (r *memFunnelRepo) Insert(_ context.Context, row *model.FunnelData) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *memFunnelRepo) Upsert(_ context.Context, row *model.FunnelData) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *memFunnelRepo) List(_ context.Context, orgID uuid.UUID, month string) ([]*model.FunnelData, error) {
	var out []*model.FunnelData
	for _, row := range r.rows {
		if row.OrganizationID == orgID && (month == "" || row.Month == month) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memFunnelRepo) Totals(_ context.Context, orgID uuid.UUID, month string) (*model.FunnelTotals, error) {
	totals := &model.FunnelTotals{}
	for _, row := range r.rows {
		if row.OrganizationID != orgID || (month != "" && row.Month != month) {
			continue
		}
		totals.Spent += row.Spent
		totals.Impressions += row.Impressions
		totals.Reach += row.Reach
		totals.Clicks += row.Clicks
		totals.Leads += row.Leads
		totals.QualifiedLeads += row.QualifiedLeads
		totals.Visits += row.Visits
		totals.FollowUp += row.FollowUp
		totals.Sales += row.Sales
	}
	return totals, nil
}

func (r *memFunnelRepo) CountForPeriod(_ context.Context, orgID uuid.UUID, start, end string) (int, error) {
	n := 0
	for _, row := range r.rows {
		if row.OrganizationID == orgID &&
			row.PeriodStart != nil && *row.PeriodStart == start &&
			row.PeriodEnd != nil && *row.PeriodEnd == end {
			n++
		}
	}
	return n, nil
}

type memUTMRepo struct {
	rows []*model.UTMData
}

func (r *memUTMRepo) Insert(_ context.Context, row *model.UTMData) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *memUTMRepo) Upsert(_ context.Context, row *model.UTMData) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *memUTMRepo) List(_ context.Context, orgID uuid.UUID, month string) ([]*model.UTMData, error) {
	var out []*model.UTMData
	for _, row := range r.rows {
		if row.OrganizationID == orgID && (month == "" || row.Month == month) {
			out = append(out, row)
		}
	}
	return out, nil
}

func newTestService() (*Service, *memFunnelRepo, *memUTMRepo) {
	funnelRepo := &memFunnelRepo{}
	utmRepo := &memUTMRepo{}
	svc := NewService(funnelRepo, utmRepo, testMetrics, zerolog.Nop())
	return svc, funnelRepo, utmRepo
}

func TestImportRecordsFunnel(t *testing.T) {
	svc, funnelRepo, _ := newTestService()
	orgID := uuid.New()

	result, err := svc.ImportRecords(context.Background(), orgID, TypeFunnel, []map[string]string{
		{"Mês": "Janeiro", "Investido": "100,50", "Leads": "10", "Vendas": "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.TotalRows)

	require.Len(t, funnelRepo.rows, 1)
	row := funnelRepo.rows[0]
	assert.Equal(t, "Janeiro", row.Month)
	assert.InDelta(t, 100.5, row.Spent, 0.0001)
	assert.Equal(t, int64(10), row.Leads)
	assert.Equal(t, int64(2), row.Sales)
	assert.Equal(t, model.SourceCSVImport, row.Source)
}

func TestImportRecordsSkipsRowsWithoutMonth(t *testing.T) {
	svc, funnelRepo, _ := newTestService()

	result, err := svc.ImportRecords(context.Background(), uuid.New(), TypeFunnel, []map[string]string{
		{"Investido": "50", "Leads": "5"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.TotalRows)
	require.Len(t, result.SkippedReasons, 1)
	assert.Contains(t, result.SkippedReasons[0], "missing month")
	assert.Empty(t, funnelRepo.rows)
}

func TestImportRecordsAppendsNotUpserts(t *testing.T) {
	svc, funnelRepo, _ := newTestService()
	orgID := uuid.New()
	rows := []map[string]string{
		{"Mês": "Janeiro", "Semana": "Semana 1", "Leads": "10"},
	}

	// The same file imported twice yields duplicate rows: CSV import
	// is a backfill append, not a reconciliation.
	for i := 0; i < 2; i++ {
		result, err := svc.ImportRecords(context.Background(), orgID, TypeFunnel, rows)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
	}
	assert.Len(t, funnelRepo.rows, 2)
}

func TestImportRecordsUTM(t *testing.T) {
	svc, _, utmRepo := newTestService()

	result, err := svc.ImportRecords(context.Background(), uuid.New(), TypeUTM, []map[string]string{
		{"Mês": "Março", "Campanha": "lancamento-q1", "Fonte": "facebook", "Leads": "42"},
		{"Mês": "Março", "Fonte": "google"}, // no campaign, skipped
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, utmRepo.rows, 1)
	assert.Equal(t, "lancamento-q1", utmRepo.rows[0].UTMCampaign)
	assert.Equal(t, int64(42), utmRepo.rows[0].Leads)
}

func TestImportRecordsUnknownType(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ImportRecords(context.Background(), uuid.New(), "pivot", nil)
	assert.Error(t, err)
}

func TestImportFunnelRowsPositional(t *testing.T) {
	svc, funnelRepo, _ := newTestService()

	headers := []string{"Mês", "Início", "Fim", "Investido", "Leads"}
	rows := [][]string{
		{"Janeiro", "2026-01-01", "2026-01-07", "R$ 1.234,56", "15"},
		{"Janeiro", "", "", "100", "5"}, // missing period, skipped
	}

	result, err := svc.ImportFunnelRows(context.Background(), uuid.New(), headers, rows)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, funnelRepo.rows, 1)
	assert.InDelta(t, 1234.56, funnelRepo.rows[0].Spent, 0.0001)
	require.NotNil(t, funnelRepo.rows[0].PeriodStart)
	assert.Equal(t, "2026-01-01", *funnelRepo.rows[0].PeriodStart)
}

func TestImportUTMRowsPositional(t *testing.T) {
	svc, _, utmRepo := newTestService()

	headers := []string{"Campanha", "Conjunto", "Criativo", "Interações"}
	rows := [][]string{
		{"verao-2026", "publico-frio", "video-a", "1.200"},
	}

	result, err := svc.ImportUTMRows(context.Background(), uuid.New(), headers, rows)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	require.Len(t, utmRepo.rows, 1)
	assert.Equal(t, "verao-2026", utmRepo.rows[0].UTMCampaign)
	assert.Equal(t, "publico-frio", utmRepo.rows[0].UTMTerm)
	assert.Equal(t, "video-a", utmRepo.rows[0].UTMContent)
	assert.Equal(t, int64(1200), utmRepo.rows[0].Interactions)
}
