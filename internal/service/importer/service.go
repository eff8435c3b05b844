package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	"github.com/funnelhq/funnel-api/pkg/metrics"
)

// Import types accepted by the CSV import endpoint
const (
	TypeFunnel = "funnel"
	TypeUTM    = "utm"
)

// Result is the structured outcome of an import run. Skipped rows are
// counted, never raised as errors: lenient imports are intentional.
type Result struct {
	Imported       int      `json:"imported"`
	Skipped        int      `json:"skipped"`
	SkippedReasons []string `json:"skipped_reasons,omitempty"`
	TotalRows      int      `json:"total_rows"`
}

type ImportServicer interface {
	ImportRecords(ctx context.Context, orgID uuid.UUID, importType string, rows []map[string]string) (*Result, error)
	ImportFunnelRows(ctx context.Context, orgID uuid.UUID, headers []string, rows [][]string) (*Result, error)
	ImportUTMRows(ctx context.Context, orgID uuid.UUID, headers []string, rows [][]string) (*Result, error)
}

type Service struct {
	funnelRepo repository.FunnelRepository
	utmRepo    repository.UTMRepository
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewService(funnelRepo repository.FunnelRepository, utmRepo repository.UTMRepository, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		funnelRepo: funnelRepo,
		utmRepo:    utmRepo,
		metrics:    m,
		logger:     logger,
	}
}

// ImportRecords handles the CSV import endpoint: rows arrive as keyed
// records whose keys are arbitrary header aliases. Rows are appended,
// not upserted: CSV import is historical backfill, so duplicate
// imports of the same week intentionally produce duplicate rows,
// unlike provider sync which reconciles by natural key.
func (s *Service) ImportRecords(ctx context.Context, orgID uuid.UUID, importType string, rows []map[string]string) (*Result, error) {
	switch importType {
	case TypeFunnel:
		return s.importFunnelRecords(ctx, orgID, rows)
	case TypeUTM:
		return s.importUTMRecords(ctx, orgID, rows)
	default:
		return nil, fmt.Errorf("unknown import type %q", importType)
	}
}

func (s *Service) importFunnelRecords(ctx context.Context, orgID uuid.UUID, rows []map[string]string) (*Result, error) {
	result := &Result{TotalRows: len(rows)}

	for i, record := range rows {
		row := s.buildFunnelRow(orgID, canonicalize(record, funnelColumnMap))
		if row.Month == "" {
			result.Skipped++
			result.SkippedReasons = append(result.SkippedReasons, fmt.Sprintf("row %d: missing month", i+1))
			s.metrics.RowsSkipped.WithLabelValues("funnel_data").Inc()
			continue
		}
		if err := s.funnelRepo.Insert(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to import funnel row %d: %w", i+1, err)
		}
		result.Imported++
		s.metrics.RowsUpserted.WithLabelValues("funnel_data", model.SourceCSVImport).Inc()
	}

	s.logger.Info().
		Str("organization_id", orgID.String()).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("funnel CSV import finished")
	return result, nil
}

func (s *Service) importUTMRecords(ctx context.Context, orgID uuid.UUID, rows []map[string]string) (*Result, error) {
	result := &Result{TotalRows: len(rows)}

	for i, record := range rows {
		row := s.buildUTMRow(orgID, canonicalize(record, utmColumnMap))
		if row.UTMCampaign == "" {
			result.Skipped++
			result.SkippedReasons = append(result.SkippedReasons, fmt.Sprintf("row %d: missing utm_campaign", i+1))
			s.metrics.RowsSkipped.WithLabelValues("utm_data").Inc()
			continue
		}
		if err := s.utmRepo.Insert(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to import utm row %d: %w", i+1, err)
		}
		result.Imported++
		s.metrics.RowsUpserted.WithLabelValues("utm_data", model.SourceCSVImport).Inc()
	}

	s.logger.Info().
		Str("organization_id", orgID.String()).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("utm CSV import finished")
	return result, nil
}

// ImportFunnelRows handles positional rows from a spreadsheet. Rows
// below the minimum-field threshold (month + period dates) are skipped
// silently and only counted.
func (s *Service) ImportFunnelRows(ctx context.Context, orgID uuid.UUID, headers []string, rows [][]string) (*Result, error) {
	mapped := MapFunnelHeaders(headers)
	result := &Result{TotalRows: len(rows)}

	for i, row := range rows {
		record := buildRecord(mapped, row)
		funnelRow := s.buildFunnelRow(orgID, record)
		if funnelRow.Month == "" || funnelRow.PeriodStart == nil || funnelRow.PeriodEnd == nil {
			result.Skipped++
			result.SkippedReasons = append(result.SkippedReasons, fmt.Sprintf("row %d: missing month or period dates", i+1))
			s.metrics.RowsSkipped.WithLabelValues("funnel_data").Inc()
			continue
		}
		if err := s.funnelRepo.Insert(ctx, funnelRow); err != nil {
			return nil, fmt.Errorf("failed to import funnel row %d: %w", i+1, err)
		}
		result.Imported++
		s.metrics.RowsUpserted.WithLabelValues("funnel_data", model.SourceCSVImport).Inc()
	}

	return result, nil
}

// ImportUTMRows handles positional UTM rows from a spreadsheet; a row
// without a campaign name is skipped.
func (s *Service) ImportUTMRows(ctx context.Context, orgID uuid.UUID, headers []string, rows [][]string) (*Result, error) {
	mapped := MapUTMHeaders(headers)
	result := &Result{TotalRows: len(rows)}

	for i, row := range rows {
		record := buildRecord(mapped, row)
		utmRow := s.buildUTMRow(orgID, record)
		if utmRow.UTMCampaign == "" {
			result.Skipped++
			result.SkippedReasons = append(result.SkippedReasons, fmt.Sprintf("row %d: missing utm_campaign", i+1))
			s.metrics.RowsSkipped.WithLabelValues("utm_data").Inc()
			continue
		}
		if err := s.utmRepo.Insert(ctx, utmRow); err != nil {
			return nil, fmt.Errorf("failed to import utm row %d: %w", i+1, err)
		}
		result.Imported++
		s.metrics.RowsUpserted.WithLabelValues("utm_data", model.SourceCSVImport).Inc()
	}

	return result, nil
}

// buildRecord turns a positional row into a canonical-field record.
// Later positions overwrite earlier ones when duplicate headers map to
// the same field.
func buildRecord(mappedHeaders []string, row []string) map[string]string {
	record := make(map[string]string, len(row))
	for i, cell := range row {
		if i >= len(mappedHeaders) {
			break
		}
		field := mappedHeaders[i]
		if field == "" || cell == "" {
			continue
		}
		record[field] = cell
	}
	return record
}

// canonicalize maps a keyed record's arbitrary header keys onto
// canonical fields via the alias table.
func canonicalize(record map[string]string, table map[string]string) map[string]string {
	out := make(map[string]string, len(record))
	for key, value := range record {
		field := table[normalizeKey(key)]
		if field == "" || value == "" {
			continue
		}
		out[field] = value
	}
	return out
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *Service) buildFunnelRow(orgID uuid.UUID, record map[string]string) *model.FunnelData {
	row := &model.FunnelData{
		OrganizationID: orgID,
		Source:         model.SourceCSVImport,
		Month:          CoerceText(record[FieldMonth]),
		Week:           CoerceText(record[FieldWeek]),
		Spent:          CoerceDecimal(record[FieldSpent]),
		Impressions:    CoerceCount(record[FieldImpressions]),
		Reach:          CoerceCount(record[FieldReach]),
		Clicks:         CoerceCount(record[FieldClicks]),
		Leads:          CoerceCount(record[FieldLeads]),
		QualifiedLeads: CoerceCount(record[FieldQualifiedLeads]),
		Visits:         CoerceCount(record[FieldVisits]),
		FollowUp:       CoerceCount(record[FieldFollowUp]),
		Sales:          CoerceCount(record[FieldSales]),
	}
	if v := CoerceText(record[FieldPeriodStart]); v != "" {
		row.PeriodStart = &v
	}
	if v := CoerceText(record[FieldPeriodEnd]); v != "" {
		row.PeriodEnd = &v
	}
	return row
}

func (s *Service) buildUTMRow(orgID uuid.UUID, record map[string]string) *model.UTMData {
	return &model.UTMData{
		OrganizationID: orgID,
		Month:          CoerceText(record[FieldMonth]),
		UTMSource:      CoerceText(record[FieldUTMSource]),
		UTMMedium:      CoerceText(record[FieldUTMMedium]),
		UTMCampaign:    CoerceText(record[FieldUTMCampaign]),
		UTMTerm:        CoerceText(record[FieldUTMTerm]),
		UTMContent:     CoerceText(record[FieldUTMContent]),
		Interactions:   CoerceCount(record[FieldInteractions]),
		Leads:          CoerceCount(record[FieldLeads]),
		QualifiedLeads: CoerceCount(record[FieldQualifiedLeads]),
		Visits:         CoerceCount(record[FieldVisits]),
		Sales:          CoerceCount(record[FieldSales]),
		Spent:          CoerceDecimal(record[FieldSpent]),
	}
}
