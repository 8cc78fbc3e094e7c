package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSense/internal/calculator"
	"StockSense/internal/model"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeSentiment struct {
	score int
	err   error
}

func (f *fakeSentiment) Sentiment(_ context.Context, symbol string) (*model.Sentiment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Sentiment{Symbol: symbol, Score: f.score}, nil
}

type fakeFundamentals struct{ err error }

func (f *fakeFundamentals) Fundamentals(context.Context, string) (*model.Fundamentals, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Fundamentals{LongName: "Apple Inc."}, nil
}

type fakePredictor struct {
	price, confidence float64
	err               error
}

func (f *fakePredictor) Predict(_ context.Context, symbol string) (*model.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Prediction{Symbol: symbol, Date: "2024-06-11", Price: f.price, Confidence: f.confidence}, nil
}

type fakeNews struct{ err error }

func (f *fakeNews) Headlines(_ context.Context, _ string, limit int) ([]model.NewsArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.NewsArticle{{Title: "Headline"}}, nil
}

type fakeMarket struct {
	mu         sync.Mutex
	prediction *float64
	today      time.Time
	err        error
}

func (f *fakeMarket) Collect(_ context.Context, symbol string, prediction *float64) (*model.MarketSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.prediction = prediction
	f.mu.Unlock()

	graph := model.PriceMap{
		"2024-06-06": model.Float(100),
		"2024-06-07": model.Float(102),
		"2024-06-08": nil,
		"2024-06-09": nil,
		"2024-06-10": model.Float(101),
	}
	if prediction != nil {
		graph["2024-06-11"] = prediction
	}
	return &model.MarketSnapshot{
		Symbol:       symbol,
		Graph:        graph,
		Today:        f.today,
		CurrentPrice: 101,
		Quote:        model.Quote{Symbol: symbol, Price: 101, PreviousClose: 102},
		Technicals:   model.Technicals{SMA20: 100, RSI14: 50, Position30d: 0.5},
	}, nil
}

type fakeRecorder struct {
	records []*model.StockAnalysis
	err     error
}

func (f *fakeRecorder) RecordAnalysis(_ context.Context, a *model.StockAnalysis) error {
	f.records = append(f.records, a)
	return f.err
}

func newTestService(deps Deps) *Service {
	svc := NewService(deps, Options{
		DefaultConfidence: 0.5,
		Penalty:           calculator.RawDeltaPenalty,
		Forecast:          calculator.ForecastOptions{MinHistory: 2},
	})
	svc.now = func() time.Time { return testNow }
	return svc
}

func fullDeps() (Deps, *fakeMarket, *fakeRecorder) {
	market := &fakeMarket{}
	rec := &fakeRecorder{}
	return Deps{
		Sentiment:    &fakeSentiment{score: 50},
		Fundamentals: &fakeFundamentals{},
		Predictor:    &fakePredictor{price: 104, confidence: 0.8},
		News:         &fakeNews{},
		Market:       market,
		Recorder:     rec,
	}, market, rec
}

func TestAnalyze_FullResult(t *testing.T) {
	deps, market, rec := fullDeps()
	a, err := newTestService(deps).Analyze(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, "Apple Inc.", a.CompanyName)
	assert.Equal(t, 50, a.Score)
	assert.Equal(t, "Buy", a.Recommendation.Label)
	assert.Equal(t, "low", a.Recommendation.RiskLevel)
	assert.Equal(t, -1.0, a.PriceChange)
	assert.Equal(t, -0.98, a.ChangePercent)

	// history 102 -> 101 falls while sentiment is positive: 0.8 - 1*0.5
	assert.Equal(t, 0.8, a.BaseConfidence)
	assert.Equal(t, 0.3, a.Confidence)
	assert.Contains(t, a.RiskFactors, "Forecast confidence is low (30%)")

	require.NotNil(t, market.prediction)
	assert.Equal(t, 104.0, *market.prediction)

	require.NotNil(t, a.Chart)
	records := a.Chart.Records
	require.Len(t, records, 6)
	assert.True(t, records[4].IsToday)
	assert.True(t, records[5].IsPrediction)
	assert.Equal(t, 104.0, *records[5].ForecastValue)
	assert.Equal(t, calculator.ColorNegative, a.Chart.LineColor)

	assert.Len(t, a.News, 1)
	require.Len(t, rec.records, 1)
	assert.Same(t, a, rec.records[0])
}

func TestAnalyze_GraphBuiltBeforeMidnight(t *testing.T) {
	deps, market, _ := fullDeps()
	market.today = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	svc := newTestService(deps)
	// the clock has moved past midnight since the graph was assembled
	svc.now = func() time.Time { return time.Date(2024, 6, 11, 0, 0, 1, 0, time.UTC) }

	a, err := svc.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)

	require.NotNil(t, a.Chart)
	records := a.Chart.Records
	require.Len(t, records, 6)
	assert.Equal(t, "2024-06-10", records[4].Date)
	assert.True(t, records[4].IsToday)
	assert.True(t, records[5].IsPrediction)
	assert.Equal(t, 104.0, *records[5].ForecastValue)
	// the prediction is not mistaken for history
	assert.Equal(t, 0.3, a.Confidence)
}

func TestAnalyze_InvalidSymbol(t *testing.T) {
	deps, _, rec := fullDeps()
	svc := newTestService(deps)

	for _, sym := range []string{"", "   ", "AAPL;DROP", "WAYTOOLONGSYMBOL1"} {
		_, err := svc.Analyze(context.Background(), sym)
		assert.ErrorIs(t, err, ErrInvalidSymbol, sym)
	}
	assert.Empty(t, rec.records)
}

func TestAnalyze_SentimentRequired(t *testing.T) {
	deps, _, rec := fullDeps()
	deps.Sentiment = &fakeSentiment{err: errors.New("upstream down")}

	_, err := newTestService(deps).Analyze(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Empty(t, rec.records)
}

func TestAnalyze_MarketRequired(t *testing.T) {
	deps, _, _ := fullDeps()
	deps.Market = &fakeMarket{err: errors.New("yahoo down")}

	_, err := newTestService(deps).Analyze(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestAnalyze_WithoutPrediction(t *testing.T) {
	deps, market, _ := fullDeps()
	deps.Predictor = &fakePredictor{err: errors.New("model unavailable")}

	a, err := newTestService(deps).Analyze(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Nil(t, market.prediction)
	assert.Nil(t, a.Chart)
	assert.Nil(t, a.Prediction)
	assert.Equal(t, 0.5, a.Confidence)
	assert.Equal(t, 0.5, a.BaseConfidence)
}

func TestAnalyze_OptionalSourcesDegrade(t *testing.T) {
	deps, _, rec := fullDeps()
	deps.Fundamentals = &fakeFundamentals{err: errors.New("timeout")}
	deps.News = &fakeNews{err: errors.New("feed down")}
	rec.err = errors.New("disk full")

	a, err := newTestService(deps).Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", a.CompanyName)
	assert.Nil(t, a.Fundamentals)
	assert.Empty(t, a.News)
	assert.NotNil(t, a.Chart)
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{" msft ", "MSFT", true},
		{"^GSPC", "^GSPC", true},
		{"BRK.B", "BRK.B", true},
		{"EURUSD=X", "EURUSD=X", true},
		{"", "", false},
		{"AA PL", "", false},
		{"<script>", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeSymbol(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidSymbol, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
