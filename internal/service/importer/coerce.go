package importer

import (
	"strconv"
	"strings"
)

// decimalFields are coerced with locale-aware float parsing.
var decimalFields = map[string]bool{
	FieldSpent: true,
}

// countFields are coerced to non-negative integers.
var countFields = map[string]bool{
	FieldImpressions:    true,
	FieldReach:          true,
	FieldClicks:         true,
	FieldLeads:          true,
	FieldQualifiedLeads: true,
	FieldVisits:         true,
	FieldFollowUp:       true,
	FieldSales:          true,
	FieldInteractions:   true,
}

// CoerceDecimal parses a currency/decimal cell. Everything that is not
// a digit, comma, period or minus sign is stripped, then the decimal
// comma is normalized to a period ("1.234,56" becomes 1234.56).
// Malformed or empty input degrades to 0; coercion never fails.
func CoerceDecimal(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if strings.Contains(cleaned, ",") {
		// Thousands periods go, the comma becomes the decimal point.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// CoerceCount parses an integer cell, stripping every non-digit
// character first. Malformed or empty input degrades to 0.
func CoerceCount(raw string) int64 {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// CoerceText trims whitespace; empty strings are allowed.
func CoerceText(raw string) string {
	return strings.TrimSpace(raw)
}

// IsDecimalField reports whether the canonical field takes a decimal value.
func IsDecimalField(field string) bool {
	return decimalFields[field]
}

// IsCountField reports whether the canonical field takes an integer count.
func IsCountField(field string) bool {
	return countFields[field]
}
