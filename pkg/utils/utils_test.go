package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		value    decimal.Decimal
		expected string
	}{
		{
			name:     "integer drops decimals",
			value:    decimal.NewFromInt(50),
			expected: "50",
		},
		{
			name:     "half keeps one decimal",
			value:    decimal.RequireFromString("50.5"),
			expected: "50.5",
		},
		{
			name:     "rounds to one decimal",
			value:    decimal.RequireFromString("33.349"),
			expected: "33.3",
		},
		{
			name:     "rounds up to integer",
			value:    decimal.RequireFromString("49.96"),
			expected: "50",
		},
		{
			name:     "zero",
			value:    decimal.Zero,
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatAmount(tt.value))
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		total    decimal.Decimal
		expected string
	}{
		{
			name:     "even share",
			amount:   decimal.NewFromInt(100),
			total:    decimal.NewFromInt(200),
			expected: "50",
		},
		{
			name:     "fractional share keeps one decimal",
			amount:   decimal.NewFromInt(91),
			total:    decimal.NewFromInt(182),
			expected: "50",
		},
		{
			name:     "uneven share",
			amount:   decimal.NewFromInt(98),
			total:    decimal.NewFromInt(200),
			expected: "49",
		},
		{
			name:     "one decimal",
			amount:   decimal.RequireFromString("60.85"),
			total:    decimal.RequireFromString("182.55"),
			expected: "33.3",
		},
		{
			name:     "zero total",
			amount:   decimal.NewFromInt(10),
			total:    decimal.Zero,
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPercentage(tt.amount, tt.total))
		})
	}
}

func TestHalveAmount(t *testing.T) {
	tests := []struct {
		name   string
		value  decimal.Decimal
		first  string
		second string
	}{
		{
			name:   "even value",
			value:  decimal.NewFromInt(200),
			first:  "100",
			second: "100",
		},
		{
			name:   "odd cents",
			value:  decimal.RequireFromString("33.33"),
			first:  "16.67",
			second: "16.66",
		},
		{
			name:   "single cent stays conserved",
			value:  decimal.RequireFromString("0.03"),
			first:  "0.02",
			second: "0.01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := HalveAmount(tt.value)
			assert.True(t, first.Equal(decimal.RequireFromString(tt.first)),
				"first: expected %s, got %s", tt.first, first)
			assert.True(t, second.Equal(decimal.RequireFromString(tt.second)),
				"second: expected %s, got %s", tt.second, second)
			assert.True(t, first.Add(second).Equal(tt.value))
		})
	}
}
