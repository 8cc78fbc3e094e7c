package calculator

import (
	"time"

	"StockSense/internal/model"
)

// Chart colors.
const (
	ColorPositive = "#22c55e"
	ColorNegative = "#ef4444"
	ColorNeutral  = "#9ca3af"
	ColorForecast = "#9ca3af"
)

const (
	DefaultMinHistory = 2
	LegacyMinHistory  = 7
	DefaultTickCount  = 5
)

// ForecastOptions tunes BuildForecastSeries.
type ForecastOptions struct {
	// Today is the calendar date treated as "today" (its UTC date is used).
	// Zero means time.Now().
	Today time.Time
	// MinHistory is the minimum number of past-and-today entries needed to
	// build a chart. Zero means DefaultMinHistory.
	MinHistory int
	// Window keeps only the most recent N past-and-today entries. Zero keeps all.
	Window int
	// TickCount is the number of Y-axis ticks. Zero means DefaultTickCount.
	TickCount int
}

func (o ForecastOptions) withDefaults() ForecastOptions {
	if o.Today.IsZero() {
		o.Today = time.Now()
	}
	if o.MinHistory <= 0 {
		o.MinHistory = DefaultMinHistory
	}
	if o.TickCount < 2 {
		o.TickCount = DefaultTickCount
	}
	return o
}

// BuildForecastSeries turns a date->price map holding history, today and at
// least one future date into a chart: past records carry HistoricalValue,
// today's record carries both values, and the first future date is the
// single prediction record carrying only ForecastValue. It returns nil when
// there are fewer than MinHistory past-and-today entries or no future entry.
func BuildForecastSeries(series model.PriceMap, opts ForecastOptions) *model.ForecastChart {
	opts = opts.withDefaults()
	today := opts.Today.UTC().Format(model.DateLayout)

	var past []datedValue
	var prediction *datedValue
	for _, p := range model.SortedPoints(series) {
		d, err := time.Parse(model.DateLayout, p.Date)
		if err != nil {
			continue
		}
		dv := datedValue{date: p.Date, day: d, value: p.Value}
		if p.Date <= today {
			past = append(past, dv)
		} else if prediction == nil {
			prediction = &dv
		}
	}

	if opts.Window > 0 && len(past) > opts.Window {
		past = past[len(past)-opts.Window:]
	}
	if len(past) < opts.MinHistory || prediction == nil {
		return nil
	}

	records := make([]model.ForecastRecord, 0, len(past)+1)
	for _, dv := range past {
		rec := model.ForecastRecord{
			Date:            dv.date,
			Label:           dayMonthLabel(dv.day),
			HistoricalValue: dv.value,
			IsToday:         dv.date == today,
		}
		if rec.IsToday {
			rec.ForecastValue = dv.value
		}
		records = append(records, rec)
	}
	records = append(records, model.ForecastRecord{
		Date:          prediction.date,
		Label:         dayMonthLabel(prediction.day),
		ForecastValue: prediction.value,
		IsPrediction:  true,
	})

	chart := &model.ForecastChart{
		Records:       records,
		LineColor:     trendColor(past),
		ForecastColor: ColorForecast,
	}
	if lo, hi, err := ChartValueRange(records); err == nil {
		chart.DomainMin, chart.DomainMax, chart.Ticks = AxisTicks(lo, hi, opts.TickCount)
	}
	return chart
}

type datedValue struct {
	date  string
	day   time.Time
	value *float64
}

// trendColor compares the last past value against the nearest earlier
// non-null value. A missing last value never counts as a rise.
func trendColor(past []datedValue) string {
	last := past[len(past)-1].value
	for i := len(past) - 2; i >= 0; i-- {
		if past[i].value == nil {
			continue
		}
		if last != nil && *last > *past[i].value {
			return ColorPositive
		}
		return ColorNegative
	}
	return ColorNeutral
}

func dayMonthLabel(d time.Time) string {
	return d.Format("02/01")
}

// HistoryValues returns the non-null values dated on or before today, in
// date order.
func HistoryValues(series model.PriceMap, today time.Time) []float64 {
	cutoff := today.UTC().Format(model.DateLayout)
	var values []float64
	for _, p := range model.SortedPoints(series) {
		if p.Date > cutoff || p.Value == nil {
			continue
		}
		values = append(values, *p.Value)
	}
	return values
}
