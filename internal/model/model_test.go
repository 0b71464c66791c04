package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalizeReferrerCode(t *testing.T) {
	require.Equal(t, "anna", NormalizeReferrerCode("  ANNA "))
	require.Equal(t, "anna", NormalizeReferrerCode("Anna"))
	require.Equal(t, "", NormalizeReferrerCode("   "))
}

func TestCommission(t *testing.T) {
	tests := []struct {
		revenue string
		rate    string
		want    string
	}{
		{"80", "10", "8"},
		{"0", "15", "0"},
		{"10.05", "50", "5.03"}, // 5.025 -> 5.03
		{"33.33", "7.5", "2.5"}, // 2.49975 -> 2.50
		{"100", "12.345", "12.35"},
	}
	for _, tt := range tests {
		got := Commission(decimal.RequireFromString(tt.revenue), decimal.RequireFromString(tt.rate))
		require.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s*%s%%: got %s", tt.revenue, tt.rate, got)
	}
}
