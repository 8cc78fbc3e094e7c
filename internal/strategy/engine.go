package strategy

import "StockSense/internal/model"

// Tiers maps a sentiment score to a recommendation. A score belongs to the
// first tier whose MinScore it exceeds.
var Tiers = []struct {
	MinScore int
	Label    string
	Color    string
}{
	{60, "Strong Buy", "#14532d"},
	{20, "Buy", "#16a34a"},
	{-20, "Hold", "#ca8a04"},
	{-60, "Sell", "#dc2626"},
}

// DefaultTier applies to scores of -60 and below.
var DefaultTier = struct{ Label, Color string }{"Strong Sell", "#7f1d1d"}

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Evaluate maps a sentiment score in [-100, 100] to a recommendation.
func Evaluate(score int) model.Recommendation {
	rec := model.Recommendation{
		Label:     DefaultTier.Label,
		Color:     DefaultTier.Color,
		RiskLevel: riskLevel(score),
	}
	for _, t := range Tiers {
		if score > t.MinScore {
			rec.Label, rec.Color = t.Label, t.Color
			break
		}
	}
	return rec
}

func riskLevel(score int) string {
	switch {
	case score > 40:
		return RiskLow
	case score > 0:
		return RiskMedium
	default:
		return RiskHigh
	}
}
