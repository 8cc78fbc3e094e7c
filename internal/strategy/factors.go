package strategy

import (
	"fmt"
	"math"

	"StockSense/internal/model"
)

// Factors scores the technical and valuation readings of a stock. Each
// factor's Bias is in [-2, 2]; positive readings are bullish.
func Factors(price float64, t model.Technicals, f *model.Fundamentals) []model.Factor {
	factors := []model.Factor{
		scoreSMADeviation(price, t.SMA20),
		scoreRSI(t.RSI14),
		scoreRangePosition(t.Position30d),
	}
	if f != nil {
		if f.PERatio.Set() {
			factors = append(factors, scorePE(*f.PERatio.Value))
		}
		if f.Beta.Set() {
			factors = append(factors, scoreBeta(*f.Beta.Value))
		}
	}
	return factors
}

// RiskFactors lists the commentary of every bearish factor, plus a warning
// when the forecast confidence is low.
func RiskFactors(factors []model.Factor, confidence float64) []string {
	var risks []string
	for _, f := range factors {
		if f.Bias < 0 {
			risks = append(risks, f.Name+": "+f.Commentary)
		}
	}
	if confidence < 0.4 {
		risks = append(risks, fmt.Sprintf("Forecast confidence is low (%.0f%%)", confidence*100))
	}
	return risks
}

// scoreSMADeviation scores how far price sits from its 20-day average.
// Stretched moves in either direction tend to revert.
func scoreSMADeviation(price, sma float64) model.Factor {
	if sma == 0 {
		return model.Factor{Name: "SMA20 deviation", Commentary: "SMA20 unavailable"}
	}
	deviation := (price - sma) / sma * 100

	var bias float64
	switch {
	case deviation <= -10:
		bias = 1.5
	case deviation <= -5:
		bias = 1.0
	case deviation <= 0:
		bias = 0.5
	case deviation <= 5:
		bias = 0
	case deviation <= 10:
		bias = -0.5
	default:
		bias = -1.5
	}
	return model.Factor{
		Name:       "SMA20 deviation",
		Bias:       bias,
		Commentary: fmt.Sprintf("%+.1f%% vs 20-day average", deviation),
	}
}

func scoreRSI(rsi float64) model.Factor {
	var bias float64
	var state string
	switch {
	case rsi <= 25:
		bias, state = 2.0, "deeply oversold"
	case rsi <= 30:
		bias, state = 1.5, "oversold"
	case rsi <= 45:
		bias, state = 0.5, "weak"
	case rsi <= 55:
		bias, state = 0, "neutral"
	case rsi <= 70:
		bias, state = -0.5, "strong"
	case rsi <= 80:
		bias, state = -1.5, "overbought"
	default:
		bias, state = -2.0, "extremely overbought"
	}
	return model.Factor{
		Name:       "RSI(14)",
		Bias:       bias,
		Commentary: fmt.Sprintf("RSI=%.0f, %s", rsi, state),
	}
}

func scoreRangePosition(pos float64) model.Factor {
	var bias float64
	switch {
	case pos <= 0.1:
		bias = 1.0
	case pos <= 0.3:
		bias = 0.5
	case pos < 0.7:
		bias = 0
	case pos < 0.9:
		bias = -0.5
	default:
		bias = -1.0
	}
	return model.Factor{
		Name:       "30-day range",
		Bias:       bias,
		Commentary: fmt.Sprintf("at %.0f%% of the 30-day range", pos*100),
	}
}

func scorePE(pe float64) model.Factor {
	var bias float64
	var note string
	switch {
	case pe <= 0:
		bias, note = -1.0, "negative earnings"
	case pe < 15:
		bias, note = 1.0, "inexpensive"
	case pe < 30:
		bias, note = 0, "fairly valued"
	case pe < 60:
		bias, note = -0.5, "rich valuation"
	default:
		bias, note = -1.5, "very rich valuation"
	}
	return model.Factor{
		Name:       "P/E",
		Bias:       bias,
		Commentary: fmt.Sprintf("P/E %.1f, %s", pe, note),
	}
}

func scoreBeta(beta float64) model.Factor {
	bias := 0.0
	note := "market-like volatility"
	if math.Abs(beta) >= 1.5 {
		bias, note = -1.0, "high volatility"
	} else if math.Abs(beta) < 0.8 {
		note = "low volatility"
	}
	return model.Factor{
		Name:       "Beta",
		Bias:       bias,
		Commentary: fmt.Sprintf("beta %.2f, %s", beta, note),
	}
}
