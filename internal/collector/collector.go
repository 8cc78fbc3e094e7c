package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"StockSense/internal/calculator"
	"StockSense/internal/model"
)

// ErrInsufficientHistory is returned when fewer trading days than required
// could be found in the lookback window.
var ErrInsufficientHistory = errors.New("insufficient price history")

const (
	// DefaultHistoryDays is the number of trading days the graph covers.
	DefaultHistoryDays = 6
	// technicalBars is enough daily bars for SMA20, RSI14 and a 30-day range.
	technicalBars = 60
	// maxLookbackDays bounds the backwards walk over calendar days.
	maxLookbackDays = 45
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	Quote     *model.Quote
	Err       error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return GenerateMockBars(m.Price, days, time.Now()), nil
}

func (m *MockFetcher) FetchQuote(_ context.Context, symbol string) (*model.Quote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Quote != nil {
		q := *m.Quote
		return &q, nil
	}
	return &model.Quote{Symbol: symbol, Price: m.Price, PreviousClose: m.Price}, nil
}

// GenerateMockBars builds `count` consecutive daily bars ending the day
// before end, drifting gently around basePrice.
func GenerateMockBars(basePrice float64, count int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector assembles price graphs and technicals from a Fetcher.
type Collector struct {
	Fetcher     Fetcher
	HistoryDays int
	now         func() time.Time
}

// NewCollector creates a new Collector. historyDays <= 0 uses DefaultHistoryDays.
func NewCollector(fetcher Fetcher, historyDays int) *Collector {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &Collector{Fetcher: fetcher, HistoryDays: historyDays, now: time.Now}
}

func (c *Collector) today() time.Time {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Collect fetches daily bars and the live quote for symbol and builds its
// price graph: every calendar day from the start of the last HistoryDays
// trading days through today (days without a close are nil), today's entry
// set to the live price, and tomorrow's entry set to prediction when given.
func (c *Collector) Collect(ctx context.Context, symbol string, prediction *float64) (*model.MarketSnapshot, error) {
	var (
		bars  []model.OHLCV
		quote *model.Quote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bars, err = c.Fetcher.FetchDailyBars(gctx, symbol, technicalBars)
		if err != nil {
			return fmt.Errorf("fetch daily bars: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		quote, err = c.Fetcher.FetchQuote(gctx, symbol)
		if err != nil {
			return fmt.Errorf("fetch quote: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	today := c.today()
	graph, err := BuildGraph(bars, quote.Price, prediction, today, c.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	return &model.MarketSnapshot{
		Symbol:       symbol,
		Graph:        graph,
		Today:        today,
		CurrentPrice: quote.Price,
		Quote:        *quote,
		Technicals:   technicals(symbol, bars, quote.Price),
		FetchedAt:    time.Now().UTC(),
	}, nil
}

// BuildGraph assembles the date->price map described on Collect. today must
// be a UTC midnight.
func BuildGraph(bars []model.OHLCV, current float64, prediction *float64, today time.Time, historyDays int) (model.PriceMap, error) {
	closes := make(map[string]float64, len(bars))
	for _, b := range bars {
		closes[b.Time.UTC().Format(model.DateLayout)] = round2(b.Close)
	}
	if len(closes) == 0 {
		return nil, ErrInsufficientHistory
	}

	found := 0
	cursor := today
	for i := 0; found < historyDays; i++ {
		if i > maxLookbackDays {
			return nil, fmt.Errorf("%w: %d of %d trading days", ErrInsufficientHistory, found, historyDays)
		}
		if _, ok := closes[cursor.Format(model.DateLayout)]; ok {
			found++
		}
		cursor = cursor.AddDate(0, 0, -1)
	}
	start := cursor.AddDate(0, 0, 1)

	graph := make(model.PriceMap)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		if v, ok := closes[key]; ok {
			graph[key] = model.Float(v)
		} else {
			graph[key] = nil
		}
	}
	graph[today.Format(model.DateLayout)] = model.Float(round2(current))
	if prediction != nil {
		graph[today.AddDate(0, 0, 1).Format(model.DateLayout)] = model.Float(round2(*prediction))
	}
	return graph, nil
}

func technicals(symbol string, bars []model.OHLCV, current float64) model.Technicals {
	var t model.Technicals
	closes := calculator.Closes(bars)

	if v, err := calculator.SMA(closes, 20); err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("SMA20 calculation failed, using current price")
		t.SMA20 = current
	} else {
		t.SMA20 = v
	}

	if v, err := calculator.RSI(closes, 14); err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("RSI14 calculation failed, defaulting to 50")
		t.RSI14 = 50
	} else {
		t.RSI14 = v
	}

	if h, l, err := calculator.RecentRange(bars, 30); err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("30-day range calculation failed")
		t.High30d, t.Low30d = current, current
	} else {
		t.High30d, t.Low30d = h, l
	}

	if pos, err := calculator.RangePosition(current, t.High30d, t.Low30d); err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("30-day position calculation failed")
		t.Position30d = 0.5
	} else {
		t.Position30d = pos
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
