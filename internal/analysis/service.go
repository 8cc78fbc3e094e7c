// Package analysis runs one stock search end to end: sentiment, prediction,
// price graph, forecast chart, adjusted confidence and recommendation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"StockSense/internal/calculator"
	"StockSense/internal/metrics"
	"StockSense/internal/model"
	"StockSense/internal/strategy"
)

// ErrInvalidSymbol is returned for empty or malformed ticker symbols.
var ErrInvalidSymbol = errors.New("invalid stock symbol")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.^=-]{1,15}$`)

// NormalizeSymbol trims and upper-cases s and checks it looks like a ticker.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if !symbolPattern.MatchString(sym) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return sym, nil
}

// SentimentSource scores market sentiment for a symbol.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string) (*model.Sentiment, error)
}

// FundamentalsSource returns company metrics for a symbol.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
}

// Predictor forecasts the next-day price of a symbol.
type Predictor interface {
	Predict(ctx context.Context, symbol string) (*model.Prediction, error)
}

// NewsSource returns recent headlines about a symbol.
type NewsSource interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]model.NewsArticle, error)
}

// MarketSource builds the price graph for a symbol, placing prediction on
// tomorrow when it is set.
type MarketSource interface {
	Collect(ctx context.Context, symbol string, prediction *float64) (*model.MarketSnapshot, error)
}

// Recorder stores finished analyses.
type Recorder interface {
	RecordAnalysis(ctx context.Context, a *model.StockAnalysis) error
}

// Deps are the collaborators of a Service. Fundamentals, News, Recorder and
// Metrics are optional.
type Deps struct {
	Sentiment    SentimentSource
	Fundamentals FundamentalsSource
	Predictor    Predictor
	News         NewsSource
	Market       MarketSource
	Recorder     Recorder
	Metrics      *metrics.Registry
}

// Options tunes the analysis.
type Options struct {
	DefaultConfidence float64
	Penalty           calculator.PenaltyFunc
	Forecast          calculator.ForecastOptions
	NewsLimit         int
}

// Service performs stock analyses.
type Service struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// NewService creates a Service.
func NewService(deps Deps, opts Options) *Service {
	if opts.Penalty == nil {
		opts.Penalty = calculator.RawDeltaPenalty
	}
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = 10
	}
	return &Service{deps: deps, opts: opts, now: time.Now}
}

// Analyze runs a full analysis of symbol.
func (s *Service) Analyze(ctx context.Context, symbol string) (*model.StockAnalysis, error) {
	a, err := s.analyze(ctx, symbol)
	confidence := 0.0
	if a != nil {
		confidence = a.Confidence
	}
	s.deps.Metrics.AnalysisDone(confidence, err)
	return a, err
}

func (s *Service) analyze(ctx context.Context, symbol string) (*model.StockAnalysis, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("symbol", sym).Logger()

	var (
		sentiment    *model.Sentiment
		fundamentals *model.Fundamentals
		prediction   *model.Prediction
		snapshot     *model.MarketSnapshot
		headlines    []model.NewsArticle
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sentiment, err = s.deps.Sentiment.Sentiment(gctx, sym)
		if err != nil {
			return fmt.Errorf("sentiment: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// the prediction becomes tomorrow's point of the price graph
		var predicted *float64
		if s.deps.Predictor != nil {
			p, err := s.deps.Predictor.Predict(gctx, sym)
			if err != nil {
				logger.Warn().Err(err).Msg("prediction unavailable, charting without forecast")
			} else {
				prediction = p
				predicted = &p.Price
			}
		}
		var err error
		snapshot, err = s.deps.Market.Collect(gctx, sym, predicted)
		if err != nil {
			return fmt.Errorf("market data: %w", err)
		}
		return nil
	})
	if s.deps.Fundamentals != nil {
		g.Go(func() error {
			f, err := s.deps.Fundamentals.Fundamentals(gctx, sym)
			if err != nil {
				logger.Warn().Err(err).Msg("fundamentals unavailable")
				return nil
			}
			fundamentals = f
			return nil
		})
	}
	if s.deps.News != nil {
		g.Go(func() error {
			n, err := s.deps.News.Headlines(gctx, sym, s.opts.NewsLimit)
			if err != nil {
				logger.Warn().Err(err).Msg("news unavailable")
				return nil
			}
			headlines = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", sym, err)
	}

	now := s.now()
	a := &model.StockAnalysis{
		Symbol:         sym,
		CompanyName:    sym,
		CurrentPrice:   snapshot.CurrentPrice,
		Score:          sentiment.Score,
		Recommendation: strategy.Evaluate(sentiment.Score),
		Prediction:     prediction,
		Fundamentals:   fundamentals,
		Technicals:     snapshot.Technicals,
		News:           headlines,
		AnalyzedAt:     now.UTC(),
	}
	if fundamentals != nil && fundamentals.LongName != "" {
		a.CompanyName = string(fundamentals.LongName)
	}
	a.PriceChange, a.ChangePercent = priceChange(snapshot.Quote, fundamentals)

	// the graph's own today, so a run across midnight keeps tomorrow's point
	graphDay := snapshot.Today
	if graphDay.IsZero() {
		graphDay = now
	}
	forecast := s.opts.Forecast
	forecast.Today = graphDay
	a.Chart = calculator.BuildForecastSeries(snapshot.Graph, forecast)

	a.BaseConfidence = s.opts.DefaultConfidence
	a.Confidence = s.opts.DefaultConfidence
	if prediction != nil {
		a.BaseConfidence = prediction.Confidence
		history := calculator.HistoryValues(snapshot.Graph, graphDay)
		a.Confidence = calculator.AdjustConfidenceWith(prediction.Confidence, history, sentiment.Score, s.opts.Penalty)
	}

	a.Factors = strategy.Factors(a.CurrentPrice, a.Technicals, fundamentals)
	a.RiskFactors = strategy.RiskFactors(a.Factors, a.Confidence)

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.RecordAnalysis(ctx, a); err != nil {
			logger.Error().Err(err).Msg("failed to record analysis")
		}
	}
	logger.Info().
		Int("score", a.Score).
		Str("recommendation", a.Recommendation.Label).
		Float64("confidence", a.Confidence).
		Bool("chart", a.Chart != nil).
		Msg("analysis complete")
	return a, nil
}

// priceChange prefers the live quote and falls back to the fundamentals.
func priceChange(q model.Quote, f *model.Fundamentals) (change, percent float64) {
	if q.PreviousClose != 0 {
		change = q.Price - q.PreviousClose
		return round2(change), round2(change / q.PreviousClose * 100)
	}
	if f != nil {
		return round2(f.Change.Or(0)), round2(f.ChangePercent.Or(0))
	}
	return 0, 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
