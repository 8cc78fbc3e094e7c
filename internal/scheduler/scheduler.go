package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"StockSense/internal/metrics"
	"StockSense/internal/model"
	"StockSense/internal/notifier"
	"StockSense/internal/recorder"
)

// concurrency bounds parallel analyses within one task.
const concurrency = 3

// Analyzer runs a full analysis of one symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*model.StockAnalysis, error)
}

// MarketOverviewer reports the major index quotes.
type MarketOverviewer interface {
	MarketOverview(ctx context.Context) (*model.MarketOverview, error)
}

// Watchlist lists every symbol watched by any user.
type Watchlist interface {
	Symbols() []string
}

// Notifier delivers HTML messages to the configured chat.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks and answers bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Analyzer  Analyzer
	Market    MarketOverviewer
	Watchlist Watchlist
	Notifier  Notifier // nil disables notifications
	Recorder  recorder.Recorder
	Metrics   *metrics.Registry
	Popular   []string
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, an Analyzer, market MarketOverviewer, wl Watchlist, n Notifier, rec recorder.Recorder, popular []string) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Analyzer:  an,
		Market:    market,
		Watchlist: wl,
		Notifier:  n,
		Recorder:  rec,
		Popular:   popular,
		Ctx:       ctx,
	}
}

// RegisterAll registers the popular refresh and the watchlist digest.
func (s *Scheduler) RegisterAll(popularCron, digestCron string) error {
	if _, err := s.Cron.AddFunc(popularCron, func() { s.RefreshPopular(s.Ctx) }); err != nil {
		return fmt.Errorf("register popular refresh: %w", err)
	}
	if _, err := s.Cron.AddFunc(digestCron, func() { s.SendDigest(s.Ctx) }); err != nil {
		return fmt.Errorf("register watchlist digest: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RefreshPopular analyzes every popular symbol and updates the popular
// board. Symbols that fail are logged and skipped.
func (s *Scheduler) RefreshPopular(ctx context.Context) ([]model.PopularEntry, error) {
	log.Info().Strs("symbols", s.Popular).Msg("refreshing popular symbols")
	analyses, failed := s.analyzeAll(ctx, s.Popular)

	entries := make([]model.PopularEntry, 0, len(analyses))
	for _, a := range analyses {
		e := model.PopularEntry{Symbol: a.Symbol, Sentiment: a.Score, Price: a.CurrentPrice, UpdatedAt: a.AnalyzedAt}
		if err := s.Recorder.RecordPopular(ctx, e); err != nil {
			log.Error().Str("symbol", a.Symbol).Err(err).Msg("record popular sentiment failed")
			continue
		}
		entries = append(entries, e)
	}

	var err error
	if len(entries) == 0 && len(s.Popular) > 0 {
		err = fmt.Errorf("popular refresh: all %d symbols failed", len(s.Popular))
	}
	s.Metrics.SchedulerRun("popular_refresh", err)
	log.Info().Int("updated", len(entries)).Strs("failed", failed).Msg("popular refresh finished")
	return entries, err
}

// Digest analyzes every watched symbol and formats the digest message.
func (s *Scheduler) Digest(ctx context.Context) string {
	var symbols []string
	if s.Watchlist != nil {
		symbols = s.Watchlist.Symbols()
	}
	analyses, failed := s.analyzeAll(ctx, symbols)
	return notifier.FormatWatchlistDigest(analyses, failed, time.Now())
}

// SendDigest sends the watchlist digest. It is skipped without a notifier.
func (s *Scheduler) SendDigest(ctx context.Context) {
	if s.Notifier == nil {
		log.Debug().Msg("no notifier configured, skipping watchlist digest")
		return
	}
	err := s.Notifier.SendWithRetry(ctx, s.Digest(ctx), 3)
	if err != nil {
		log.Error().Err(err).Msg("send watchlist digest failed")
	}
	s.Metrics.SchedulerRun("watchlist_digest", err)
}

// analyzeAll runs analyses with bounded concurrency. Results keep the input
// order; failed lists the symbols whose analysis errored.
func (s *Scheduler) analyzeAll(ctx context.Context, symbols []string) ([]*model.StockAnalysis, []string) {
	results := make([]*model.StockAnalysis, len(symbols))
	var (
		mu     sync.Mutex
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			a, err := s.Analyzer.Analyze(gctx, sym)
			if err != nil {
				log.Warn().Str("symbol", sym).Err(err).Msg("scheduled analysis failed")
				mu.Lock()
				failed = append(failed, sym)
				mu.Unlock()
				return nil
			}
			results[i] = a
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*model.StockAnalysis, 0, len(results))
	for _, a := range results {
		if a != nil {
			out = append(out, a)
		}
	}
	sort.Strings(failed)
	return out, failed
}

const helpText = "Available commands:\n" +
	"• /analyze SYMBOL - full analysis\n" +
	"• /market - index overview\n" +
	"• /popular - popular symbol sentiment\n" +
	"• /watchlist - digest of watched symbols"

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// commands may arrive as /cmd@BotName in group chats
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/analyze":
		if len(fields) < 2 {
			return "Usage: /analyze SYMBOL"
		}
		a, err := s.Analyzer.Analyze(ctx, fields[1])
		if err != nil {
			return "❌ " + errorText(err)
		}
		return notifier.FormatAnalysis(a)
	case "/market":
		ov, err := s.Market.MarketOverview(ctx)
		if err != nil {
			return "❌ " + errorText(err)
		}
		return notifier.FormatMarketOverview(ov)
	case "/popular":
		entries, err := s.Recorder.PopularSentiments(ctx)
		if err != nil {
			return "❌ " + errorText(err)
		}
		return notifier.FormatPopular(entries)
	case "/watchlist":
		return s.Digest(ctx)
	default:
		return helpText
	}
}

// errorText renders err for an HTML-mode reply.
func errorText(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	return html.EscapeString(err.Error())
}
