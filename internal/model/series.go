package model

import "sort"

// DateLayout is the calendar-date format used for every series key.
const DateLayout = "2006-01-02"

// PriceMap maps a calendar date (YYYY-MM-DD) to a price. A nil value is an
// unobserved day and must stay nil rather than become zero.
type PriceMap map[string]*float64

// PricePoint is one entry of a PriceMap in ordered form.
type PricePoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// SortedPoints returns the entries of m ordered by ascending date.
func SortedPoints(m PriceMap) []PricePoint {
	points := make([]PricePoint, 0, len(m))
	for d, v := range m {
		points = append(points, PricePoint{Date: d, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// ForecastRecord is one plotting-ready point of a forecast chart.
type ForecastRecord struct {
	Date            string   `json:"date"`
	Label           string   `json:"label"`
	HistoricalValue *float64 `json:"historical_value"`
	ForecastValue   *float64 `json:"forecast_value"`
	IsToday         bool     `json:"is_today"`
	IsPrediction    bool     `json:"is_prediction"`
}

// ForecastChart is a dual-line chart: a solid historical line joined at
// today's record to a dashed forecast segment.
type ForecastChart struct {
	Records       []ForecastRecord `json:"records"`
	DomainMin     float64          `json:"domain_min"`
	DomainMax     float64          `json:"domain_max"`
	Ticks         []float64        `json:"ticks"`
	LineColor     string           `json:"line_color"`
	ForecastColor string           `json:"forecast_color"`
}
