package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Quote is the latest trading snapshot of a symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	Change        float64 `json:"change"`
	MarketOpen    bool    `json:"market_open"`
}

// Technicals holds indicators derived from recent daily bars.
type Technicals struct {
	SMA20       float64 `json:"sma20"`
	RSI14       float64 `json:"rsi14"`
	High30d     float64 `json:"high_30d"`
	Low30d      float64 `json:"low_30d"`
	Position30d float64 `json:"position_30d"` // 0.0 ~ 1.0
}

// MarketSnapshot is the price side of one analysis: the date->price graph
// (history, today's live price and optionally tomorrow's prediction).
// Today is the UTC midnight the graph was built around.
type MarketSnapshot struct {
	Symbol       string
	Graph        PriceMap
	Today        time.Time
	CurrentPrice float64
	Quote        Quote
	Technicals   Technicals
	FetchedAt    time.Time
}

// IndexQuote is one entry of the market overview.
type IndexQuote struct {
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

// MarketOverview summarizes the major US indexes.
type MarketOverview struct {
	MarketOpen bool         `json:"market_open"`
	Indexes    []IndexQuote `json:"indexes"`
	FetchedAt  time.Time    `json:"fetched_at"`
}
