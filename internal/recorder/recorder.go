// Package recorder keeps the analysis history and the popular-symbol board.
package recorder

import (
	"context"

	"StockSense/internal/model"
)

// Recorder persists historical data for the dashboard.
type Recorder interface {
	RecordAnalysis(ctx context.Context, a *model.StockAnalysis) error
	// RecordPopular inserts or replaces the entry for e.Symbol.
	RecordPopular(ctx context.Context, e model.PopularEntry) error
	// RecentAnalyses returns the newest analyses first.
	RecentAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error)
	// PopularSentiments returns the board ordered by sentiment, highest first.
	PopularSentiments(ctx context.Context) ([]model.PopularEntry, error)
	Close() error
}
