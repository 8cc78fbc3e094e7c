package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSense/internal/model"
)

func TestEvaluate_TierBoundaries(t *testing.T) {
	tests := []struct {
		score int
		label string
		color string
	}{
		{100, "Strong Buy", "#14532d"},
		{61, "Strong Buy", "#14532d"},
		{60, "Buy", "#16a34a"},
		{21, "Buy", "#16a34a"},
		{20, "Hold", "#ca8a04"},
		{0, "Hold", "#ca8a04"},
		{-19, "Hold", "#ca8a04"},
		{-20, "Sell", "#dc2626"},
		{-59, "Sell", "#dc2626"},
		{-60, "Strong Sell", "#7f1d1d"},
		{-100, "Strong Sell", "#7f1d1d"},
	}
	for _, tt := range tests {
		rec := Evaluate(tt.score)
		assert.Equal(t, tt.label, rec.Label, "score %d", tt.score)
		assert.Equal(t, tt.color, rec.Color, "score %d", tt.score)
	}
}

func TestEvaluate_RiskLevel(t *testing.T) {
	tests := []struct {
		score int
		risk  string
	}{
		{41, RiskLow},
		{40, RiskMedium},
		{1, RiskMedium},
		{0, RiskHigh},
		{-80, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.risk, Evaluate(tt.score).RiskLevel, "score %d", tt.score)
	}
}

func TestFactors_NormalMarket(t *testing.T) {
	tech := model.Technicals{SMA20: 100, RSI14: 50, High30d: 110, Low30d: 90, Position30d: 0.5}
	factors := Factors(101, tech, nil)
	require.Len(t, factors, 3)
	for _, f := range factors {
		assert.Equal(t, 0.0, f.Bias, f.Name)
	}
	assert.Empty(t, RiskFactors(factors, 0.8))
}

func TestFactors_Overbought(t *testing.T) {
	pe, beta := 75.0, 1.8
	tech := model.Technicals{SMA20: 100, RSI14: 84, Position30d: 0.97}
	f := &model.Fundamentals{PERatio: model.Metric{Value: &pe}, Beta: model.Metric{Value: &beta}}

	factors := Factors(115, tech, f)
	require.Len(t, factors, 5)
	for _, fac := range factors {
		assert.Less(t, fac.Bias, 0.0, fac.Name)
	}
	risks := RiskFactors(factors, 0.2)
	assert.Len(t, risks, 6)
	assert.Contains(t, risks[1], "RSI=84")
	assert.Contains(t, risks[5], "20%")
}

func TestFactors_Oversold(t *testing.T) {
	tech := model.Technicals{SMA20: 100, RSI14: 22, Position30d: 0.05}
	factors := Factors(85, tech, &model.Fundamentals{})
	require.Len(t, factors, 3)
	assert.Equal(t, 1.5, factors[0].Bias)
	assert.Equal(t, 2.0, factors[1].Bias)
	assert.Equal(t, 1.0, factors[2].Bias)
}

func TestFactors_MissingSMA(t *testing.T) {
	f := scoreSMADeviation(100, 0)
	assert.Equal(t, 0.0, f.Bias)
	assert.Equal(t, "SMA20 unavailable", f.Commentary)
}
