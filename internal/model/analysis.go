package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sentiment is the external sentiment verdict for a symbol. Score is in [-100, 100].
type Sentiment struct {
	Symbol string `json:"stock_symbol"`
	Score  int    `json:"sentiment"`
}

// Prediction is the next-day price forecast for a symbol.
type Prediction struct {
	Symbol     string  `json:"symbol"`
	Date       string  `json:"date"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

// Metric is an optional numeric company metric. The upstream service sends
// "---" (or null) when a value is unknown; both decode to an unset Metric.
type Metric struct {
	Value *float64
}

// Set reports whether the metric holds a value.
func (m Metric) Set() bool { return m.Value != nil }

// Or returns the metric value, or def when unset.
func (m Metric) Or(def float64) float64 {
	if m.Value == nil {
		return def
	}
	return *m.Value
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		m.Value = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || s == "---" {
			m.Value = nil
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("metric %q is not numeric", s)
		}
		m.Value = &f
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		m.Value = nil
		return nil
	}
	m.Value = &f
	return nil
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if m.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*m.Value)
}

// Text is an optional string field; "---" decodes to empty.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch s := v.(type) {
	case nil:
		*t = ""
	case string:
		if s == "---" {
			s = ""
		}
		*t = Text(s)
	default:
		*t = Text(fmt.Sprint(s))
	}
	return nil
}

// Fundamentals holds the company metrics shown on the analysis card.
type Fundamentals struct {
	CurrentPrice  Metric `json:"currentPrice"`
	LongName      Text   `json:"longName"`
	Sector        Text   `json:"sector"`
	Open          Metric `json:"open"`
	LastClose     Metric `json:"lastClose"`
	High          Metric `json:"high"`
	Low           Metric `json:"low"`
	DayRange      Text   `json:"dayRange"`
	Volume        Metric `json:"volume"`
	AvgVolume     Metric `json:"avgVolume"`
	Bid           Metric `json:"bid"`
	Ask           Metric `json:"ask"`
	MarketCap     Metric `json:"marketCap"`
	PERatio       Metric `json:"peRatio"`
	EPS           Metric `json:"eps"`
	RevenueGrowth Metric `json:"revenueGrowth"`
	ProfitMargin  Metric `json:"profitMargin"`
	ROE           Metric `json:"roe"`
	DebtToEquity  Metric `json:"dte"`
	Beta          Metric `json:"beta"`
	Summary       Text   `json:"summary"`
	Change        Metric `json:"change"`
	ChangePercent Metric `json:"changePS"`
}

// Recommendation maps a sentiment score to an action label and a risk level.
type Recommendation struct {
	Label     string `json:"label"`
	RiskLevel string `json:"risk_level"`
	Color     string `json:"color"`
}

// Factor is one technical or valuation reading shown next to the
// recommendation. Bias is in [-2, 2]; positive is bullish.
type Factor struct {
	Name       string  `json:"name"`
	Bias       float64 `json:"bias"`
	Commentary string  `json:"commentary"`
}

// NewsArticle is one headline from the news feed.
type NewsArticle struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
}

// StockAnalysis is the full result of one search action.
type StockAnalysis struct {
	Symbol         string         `json:"symbol"`
	CompanyName    string         `json:"company_name"`
	CurrentPrice   float64        `json:"current_price"`
	PriceChange    float64        `json:"price_change"`
	ChangePercent  float64        `json:"price_change_percent"`
	Score          int            `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
	BaseConfidence float64        `json:"base_confidence"`
	Confidence     float64        `json:"confidence"`
	Prediction     *Prediction    `json:"prediction,omitempty"`
	Chart          *ForecastChart `json:"chart"`
	Fundamentals   *Fundamentals  `json:"fundamentals,omitempty"`
	Technicals     Technicals     `json:"technicals"`
	Factors        []Factor       `json:"factors"`
	RiskFactors    []string       `json:"risk_factors"`
	News           []NewsArticle  `json:"news"`
	AnalyzedAt     time.Time      `json:"analyzed_at"`
}

// AnalysisRecord is a stored analysis row, as listed in "recent analyses".
type AnalysisRecord struct {
	Symbol         string    `json:"symbol"`
	CompanyName    string    `json:"company_name"`
	Price          float64   `json:"price"`
	ChangePercent  float64   `json:"price_change_percent"`
	Score          int       `json:"score"`
	Confidence     float64   `json:"confidence"`
	Recommendation string    `json:"recommendation"`
	RiskLevel      string    `json:"risk_level"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// PopularEntry is the latest sentiment of one of the tracked popular symbols.
type PopularEntry struct {
	Symbol    string    `json:"symbol"`
	Sentiment int       `json:"sentiment"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}
