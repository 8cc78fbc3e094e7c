package calculator

import "math"

// PenaltyFunc returns the confidence reduction for a market move from prev
// to last under a sentiment score. It must return 0 when the move agrees
// with the sentiment direction.
type PenaltyFunc func(prev, last float64, score int) float64

// AdjustConfidence lowers confidence when the last market move disagrees
// with the sentiment direction. values are in time order; fewer than two
// values leave confidence untouched. The result is clamped to [0, 1] and
// rounded to 3 decimals.
func AdjustConfidence(confidence float64, values []float64, score int) float64 {
	return AdjustConfidenceWith(confidence, values, score, RawDeltaPenalty)
}

// AdjustConfidenceWith is AdjustConfidence with a custom penalty.
func AdjustConfidenceWith(confidence float64, values []float64, score int, penalty PenaltyFunc) float64 {
	if len(values) < 2 {
		return confidence
	}
	if penalty == nil {
		penalty = RawDeltaPenalty
	}
	prev := values[len(values)-2]
	last := values[len(values)-1]

	adjusted := confidence - penalty(prev, last, score)
	return round3(clamp(adjusted, 0, 1))
}

// RawDeltaPenalty is |last-prev| * |score|/100 on disagreement. The delta is
// in raw price units, so the same dollar move costs the same confidence on
// a $20 stock and on a $2000 stock.
func RawDeltaPenalty(prev, last float64, score int) float64 {
	delta := last - prev
	if !disagrees(delta, score) {
		return 0
	}
	return math.Abs(delta) * scoreMagnitude(score)
}

// PercentDeltaPenalty is RawDeltaPenalty with the delta expressed as a
// fraction of prev, which makes the penalty independent of the price level.
func PercentDeltaPenalty(prev, last float64, score int) float64 {
	delta := last - prev
	if !disagrees(delta, score) || prev == 0 {
		return 0
	}
	return math.Abs(delta/prev) * scoreMagnitude(score)
}

// PenaltyByName resolves a configured penalty name; unknown names fall back
// to the raw-unit penalty.
func PenaltyByName(name string) PenaltyFunc {
	if name == "percent" {
		return PercentDeltaPenalty
	}
	return RawDeltaPenalty
}

func disagrees(delta float64, score int) bool {
	return (delta > 0 && score < 0) || (delta < 0 && score > 0)
}

func scoreMagnitude(score int) float64 {
	s := math.Abs(float64(score))
	if s > 100 {
		s = 100
	}
	return s / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
