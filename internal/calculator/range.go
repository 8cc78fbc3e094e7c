package calculator

import (
	"errors"
	"math"

	"StockSense/internal/model"
)

// ChartValueRange returns the min and max over every non-null historical and
// forecast value of the records.
func ChartValueRange(records []model.ForecastRecord) (lo, hi float64, err error) {
	lo, hi = math.Inf(1), math.Inf(-1)
	seen := false
	observe := func(v *float64) {
		if v == nil {
			return
		}
		seen = true
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
	}
	for _, r := range records {
		observe(r.HistoricalValue)
		observe(r.ForecastValue)
	}
	if !seen {
		return 0, 0, errors.New("no values in chart")
	}
	return lo, hi, nil
}

// RecentRange scans the most recent `days` bars and returns the high and low.
func RecentRange(bars []model.OHLCV, days int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	start := len(bars) - days
	if start < 0 {
		start = 0
	}
	high, low = math.Inf(-1), math.Inf(1)
	for _, b := range bars[start:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	if high == low {
		return 0.5, nil
	}
	return clamp((current-low)/(high-low), 0, 1), nil
}
