package collector

import (
	"context"

	"StockSense/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns up to `days` most recent daily bars, oldest first.
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
	Name() string
}
