package recorder

import (
	"context"

	"StockSense/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(context.Context, *model.StockAnalysis) error { return nil }
func (n *NoopRecorder) RecordPopular(context.Context, model.PopularEntry) error    { return nil }
func (n *NoopRecorder) Close() error                                               { return nil }

func (n *NoopRecorder) RecentAnalyses(context.Context, int) ([]model.AnalysisRecord, error) {
	return []model.AnalysisRecord{}, nil
}

func (n *NoopRecorder) PopularSentiments(context.Context) ([]model.PopularEntry, error) {
	return []model.PopularEntry{}, nil
}
