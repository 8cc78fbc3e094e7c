package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"StockSense/internal/analysis"
	"StockSense/internal/cache"
	"StockSense/internal/calculator"
	"StockSense/internal/collector"
	"StockSense/internal/config"
	"StockSense/internal/httpapi"
	"StockSense/internal/metrics"
	"StockSense/internal/news"
	"StockSense/internal/notifier"
	"StockSense/internal/provider"
	"StockSense/internal/recorder"
	"StockSense/internal/scheduler"
	"StockSense/internal/watchlist"
)

// app is the fully wired service.
type app struct {
	service  *analysis.Service
	sched    *scheduler.Scheduler
	server   *httpapi.Server
	notifier scheduler.Notifier
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	reg := metrics.New()

	// Prediction cache
	var store cache.Store = cache.NoopStore{}
	if cfg.Redis.URL != "" {
		rc, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, predictions are not cached")
		} else {
			store = cache.NewRedisStore(rc)
			a.closers = append(a.closers, rc.Close)
		}
	}

	// History recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			a.closers = append(a.closers, sr.Close)
		}
	}

	wl, err := watchlist.NewManager(cfg.Watchlist.StateFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init watchlist: %w", err)
	}

	client := provider.New(provider.Options{
		BaseURL:           cfg.Provider.BaseURL,
		Timeout:           cfg.Provider.Timeout,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
		MaxRetries:        cfg.Provider.MaxRetries,
		DefaultConfidence: cfg.Confidence.Default,
		ProxyURL:          cfg.Proxy,
		Metrics:           reg,
	})
	predictor := provider.NewCachedPredictor(client, store, reg)

	fetcher := collector.NewYahooFetcher(cfg.Proxy, cfg.Provider.Timeout)
	fetcher.Metrics = reg
	col := collector.NewCollector(fetcher, cfg.Forecast.HistoryDays)
	log.Info().Str("fetcher", fetcher.Name()).Int("history_days", col.HistoryDays).Msg("market data source ready")

	feed := news.NewFeed(cfg.News.FeedURL, cfg.News.Limit, reg)

	a.service = analysis.NewService(analysis.Deps{
		Sentiment:    client,
		Fundamentals: client,
		Predictor:    predictor,
		News:         feed,
		Market:       col,
		Recorder:     rec,
		Metrics:      reg,
	}, analysis.Options{
		DefaultConfidence: cfg.Confidence.Default,
		Penalty:           calculator.PenaltyByName(cfg.Confidence.Penalty),
		Forecast: calculator.ForecastOptions{
			MinHistory: cfg.Forecast.MinHistory,
			Window:     cfg.Forecast.Window,
			TickCount:  cfg.Forecast.TickCount,
		},
		NewsLimit: cfg.News.Limit,
	})

	if cfg.TelegramEnabled() {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	} else {
		log.Info().Msg("telegram not configured, notifications disabled")
	}

	a.sched = scheduler.NewScheduler(ctx, a.service, col, wl, a.notifier, rec, cfg.Popular.Symbols)
	a.sched.Metrics = reg

	a.server = httpapi.NewServer(cfg.Server.Addr, cfg.Server.AllowedOrigins, httpapi.Deps{
		Analyzer:     a.service,
		Sentiment:    client,
		Fundamentals: client,
		News:         feed,
		Market:       col,
		History:      rec,
		Watchlists:   wl,
		Metrics:      reg,
	})
	return a, nil
}

// Close releases the recorder and the cache connection.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
