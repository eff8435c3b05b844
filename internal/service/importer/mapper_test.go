package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapFunnelHeaders(t *testing.T) {
	headers := []string{"Mês", "Semana", "Investido", "Leads", "Coluna Misteriosa", "Vendas"}
	mapped := MapFunnelHeaders(headers)

	assert.Equal(t, []string{
		FieldMonth, FieldWeek, FieldSpent, FieldLeads, "", FieldSales,
	}, mapped)
}

func TestMapFunnelHeadersAliases(t *testing.T) {
	// Portuguese and English aliases land on the same field.
	for _, h := range []string{"Investido", "investimento", "GASTO", "spent", "Valor"} {
		mapped := MapFunnelHeaders([]string{h})
		assert.Equal(t, FieldSpent, mapped[0], "alias %q", h)
	}
	for _, h := range []string{"Matrículas", "matriculas", "Vendas", "sales"} {
		mapped := MapFunnelHeaders([]string{h})
		assert.Equal(t, FieldSales, mapped[0], "alias %q", h)
	}
	// Agendamentos are visits in the funnel vocabulary.
	assert.Equal(t, FieldVisits, MapFunnelHeaders([]string{"Agendamentos"})[0])
}

func TestMapHeadersDeterministic(t *testing.T) {
	headers := []string{"Mês", "Leads", "Cliques", "Vendas"}
	first := MapFunnelHeaders(headers)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, MapFunnelHeaders(headers))
	}
}

func TestMapHeadersPermutation(t *testing.T) {
	// Column order must not affect which field each header maps to.
	a := MapFunnelHeaders([]string{"Leads", "Vendas", "Mês"})
	b := MapFunnelHeaders([]string{"Mês", "Leads", "Vendas"})

	assert.Equal(t, []string{FieldLeads, FieldSales, FieldMonth}, a)
	assert.Equal(t, []string{FieldMonth, FieldLeads, FieldSales}, b)
}

func TestMapUTMHeaders(t *testing.T) {
	headers := []string{"Campanha", "Conjunto", "Criativo", "Fonte", "Mídia", "Interações"}
	mapped := MapUTMHeaders(headers)

	assert.Equal(t, []string{
		FieldUTMCampaign, FieldUTMTerm, FieldUTMContent,
		FieldUTMSource, FieldUTMMedium, FieldInteractions,
	}, mapped)
}

func TestBuildRecordLaterPositionWins(t *testing.T) {
	// Two columns both mapping to spent: the later cell wins.
	mapped := MapFunnelHeaders([]string{"Mês", "Investido", "Gasto"})
	record := buildRecord(mapped, []string{"Janeiro", "100", "200"})

	assert.Equal(t, "200", record[FieldSpent])
	assert.Equal(t, "Janeiro", record[FieldMonth])
}

func TestBuildRecordSkipsUnmappedAndEmpty(t *testing.T) {
	mapped := MapFunnelHeaders([]string{"Mês", "Coluna X", "Leads"})
	record := buildRecord(mapped, []string{"Janeiro", "ignorado", ""})

	assert.Equal(t, "Janeiro", record[FieldMonth])
	_, hasLeads := record[FieldLeads]
	assert.False(t, hasLeads)
	assert.Len(t, record, 1)
}

func TestBuildRecordRowShorterThanHeaders(t *testing.T) {
	mapped := MapFunnelHeaders([]string{"Mês", "Leads", "Vendas"})
	record := buildRecord(mapped, []string{"Fevereiro"})

	assert.Equal(t, "Fevereiro", record[FieldMonth])
	assert.Len(t, record, 1)
}
