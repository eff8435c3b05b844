package importer

import (
	"strings"
)

// Canonical funnel field names
const (
	FieldMonth          = "month"
	FieldWeek           = "week"
	FieldPeriodStart    = "period_start"
	FieldPeriodEnd      = "period_end"
	FieldSpent          = "spent"
	FieldImpressions    = "impressions"
	FieldReach          = "reach"
	FieldClicks         = "clicks"
	FieldLeads          = "leads"
	FieldQualifiedLeads = "qualified_leads"
	FieldVisits         = "visits"
	FieldFollowUp       = "follow_up"
	FieldSales          = "sales"
)

// Canonical UTM field names
const (
	FieldUTMSource    = "utm_source"
	FieldUTMMedium    = "utm_medium"
	FieldUTMCampaign  = "utm_campaign"
	FieldUTMTerm      = "utm_term"
	FieldUTMContent   = "utm_content"
	FieldInteractions = "interactions"
)

// funnelColumnMap maps lowercased header aliases (Portuguese and
// English, as they appear in customer spreadsheets) to canonical
// funnel field names.
var funnelColumnMap = map[string]string{
	"mês": FieldMonth, "mes": FieldMonth, "month": FieldMonth,
	"semana": FieldWeek, "week": FieldWeek,
	"início": FieldPeriodStart, "inicio": FieldPeriodStart, "period_start": FieldPeriodStart, "data_inicio": FieldPeriodStart,
	"fim": FieldPeriodEnd, "period_end": FieldPeriodEnd, "data_fim": FieldPeriodEnd,
	"investido": FieldSpent, "investimento": FieldSpent, "gasto": FieldSpent, "spent": FieldSpent, "valor": FieldSpent,
	"impressões": FieldImpressions, "impressoes": FieldImpressions, "impressions": FieldImpressions,
	"alcance": FieldReach, "reach": FieldReach,
	"cliques": FieldClicks, "clicks": FieldClicks,
	"leads": FieldLeads,
	"leads qualificados": FieldQualifiedLeads, "qualified_leads": FieldQualifiedLeads, "qualificados": FieldQualifiedLeads, "mql": FieldQualifiedLeads,
	"visitas": FieldVisits, "visits": FieldVisits, "agendamentos": FieldVisits,
	"follow up": FieldFollowUp, "follow_up": FieldFollowUp, "followup": FieldFollowUp, "follow-up": FieldFollowUp,
	"vendas": FieldSales, "sales": FieldSales, "matriculas": FieldSales, "matrículas": FieldSales,
}

// utmColumnMap is the alias table for UTM imports.
var utmColumnMap = map[string]string{
	"mês": FieldMonth, "mes": FieldMonth, "month": FieldMonth,
	"campanha": FieldUTMCampaign, "utm_campaign": FieldUTMCampaign, "campaign": FieldUTMCampaign,
	"conjunto": FieldUTMTerm, "utm_term": FieldUTMTerm, "adset": FieldUTMTerm, "adset_name": FieldUTMTerm, "term": FieldUTMTerm,
	"criativo": FieldUTMContent, "utm_content": FieldUTMContent, "content": FieldUTMContent, "anúncio": FieldUTMContent, "anuncio": FieldUTMContent, "ad_name": FieldUTMContent,
	"fonte": FieldUTMSource, "utm_source": FieldUTMSource, "source": FieldUTMSource,
	"mídia": FieldUTMMedium, "midia": FieldUTMMedium, "utm_medium": FieldUTMMedium, "medium": FieldUTMMedium, "meio": FieldUTMMedium,
	"interações": FieldInteractions, "interacoes": FieldInteractions, "interactions": FieldInteractions,
	"leads": FieldLeads,
	"leads qualificados": FieldQualifiedLeads, "qualified_leads": FieldQualifiedLeads, "qualificados": FieldQualifiedLeads,
	"visitas": FieldVisits, "visits": FieldVisits,
	"vendas": FieldSales, "sales": FieldSales,
	"investido": FieldSpent, "investimento": FieldSpent, "gasto": FieldSpent, "spent": FieldSpent,
}

// MapFunnelHeaders maps raw header strings to canonical funnel field
// names, keeping positions. Unrecognized headers map to "".
func MapFunnelHeaders(headers []string) []string {
	return mapHeaders(headers, funnelColumnMap)
}

// MapUTMHeaders maps raw header strings to canonical UTM field names.
func MapUTMHeaders(headers []string) []string {
	return mapHeaders(headers, utmColumnMap)
}

// mapHeaders is pure and deterministic: the same header list always
// yields the same mapping. No fuzzy matching; unmapped columns keep
// their position as "" so row building can skip them. When duplicate
// headers map to the same field, the later column wins at row build
// time because positional writes overwrite earlier ones.
func mapHeaders(headers []string, table map[string]string) []string {
	mapped := make([]string, len(headers))
	for i, h := range headers {
		mapped[i] = table[strings.ToLower(strings.TrimSpace(h))]
	}
	return mapped
}
