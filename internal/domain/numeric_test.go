package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected float64
		ok       bool
	}{
		{"float passthrough", 12.5, 12.5, true},
		{"int passthrough", 40, 40, true},
		{"NaN", math.NaN(), 0, false},
		{"nil", nil, 0, false},
		{"point decimal", "12.5", 12.5, true},
		{"comma decimal", "12,5", 12.5, true},
		{"surrounding spaces", "  7 ", 7, true},
		{"negative", "-3.25", -3.25, true},
		{"explicit plus", "+4", 4, true},
		{"embedded unit", "40 MVA", 40, true},
		{"embedded with comma", "aprox. 12,75 MW", 12.75, true},
		{"first number wins", "10 a 20", 10, true},
		{"thousands point, comma decimal", "1.234,56", 1234.56, true},
		{"thousands comma, point decimal", "1,234.56", 1234.56, true},
		{"empty", "", 0, false},
		{"blank", "   ", 0, false},
		{"text only", "n/d", 0, false},
		{"nan text", "NaN", 0, false},
		{"inf text", "Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumeric(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 1e-12)
			}
		})
	}
}

func TestParseNumeric_SeparatorConventionsAgree(t *testing.T) {
	a, okA := ParseNumeric("1.234,56")
	b, okB := ParseNumeric("1234.56")
	assert.True(t, okA)
	assert.True(t, okB)
	assert.InDelta(t, b, a, 1e-12)
}
