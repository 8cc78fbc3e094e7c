package calculator

import "math"

// niceFactors are the mantissas a tick step may be rounded up to.
var niceFactors = []float64{1, 2, 2.5, 5, 10}

// NiceStep rounds raw up to the nearest of 1, 2, 2.5, 5 or 10 times a power
// of ten. Non-positive input yields 1.
func NiceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	base := math.Pow(10, math.Floor(math.Log10(raw)))
	fraction := raw / base
	for _, f := range niceFactors {
		// tolerate float noise such as 2.0000000000000004
		if fraction <= f*(1+1e-9) {
			return f * base
		}
	}
	return 10 * base
}

// AxisTicks picks a readable Y axis for values in [lo, hi]: the step is
// (hi-lo)/(tickCount-1) rounded by NiceStep, the domain is snapped outwards
// to multiples of the step, and tickCount evenly spaced ticks span it.
func AxisTicks(lo, hi float64, tickCount int) (domainMin, domainMax float64, ticks []float64) {
	if tickCount < 2 {
		tickCount = DefaultTickCount
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		pad := math.Abs(hi) * 0.05
		if pad == 0 {
			pad = 1
		}
		lo, hi = lo-pad, hi+pad
	}

	step := NiceStep((hi - lo) / float64(tickCount-1))
	domainMin = math.Floor(lo/step) * step
	domainMax = math.Ceil(hi/step) * step

	ticks = make([]float64, tickCount)
	spacing := (domainMax - domainMin) / float64(tickCount-1)
	for i := range ticks {
		ticks[i] = cleanFloat(domainMin + spacing*float64(i))
	}
	ticks[tickCount-1] = cleanFloat(domainMax)
	return cleanFloat(domainMin), cleanFloat(domainMax), ticks
}

// cleanFloat trims binary noise (e.g. 0.30000000000000004) to 10 decimals.
func cleanFloat(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}
