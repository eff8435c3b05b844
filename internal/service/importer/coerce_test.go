package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"decimal comma", "100,50", 100.5},
		{"thousands period with decimal comma", "1.234,56", 1234.56},
		{"currency prefix", "R$ 1.500,00", 1500},
		{"plain integer", "200", 200},
		{"plain float with period", "99.9", 99.9},
		{"negative", "-10,5", -10.5},
		{"empty", "", 0},
		{"garbage", "n/a", 0},
		{"spaces around", "  42,25  ", 42.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CoerceDecimal(tt.in), 0.0001)
		})
	}
}

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"plain", "123", 123},
		{"thousands separator", "1.234", 1234},
		{"currency noise", "R$ 500", 500},
		{"empty", "", 0},
		{"text", "muitos", 0},
		{"float truncates separators", "10,5", 105},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceCount(tt.in))
		})
	}
}

func TestFieldKinds(t *testing.T) {
	assert.True(t, IsDecimalField(FieldSpent))
	assert.False(t, IsDecimalField(FieldLeads))
	assert.True(t, IsCountField(FieldLeads))
	assert.True(t, IsCountField(FieldInteractions))
	assert.False(t, IsCountField(FieldMonth))
}
