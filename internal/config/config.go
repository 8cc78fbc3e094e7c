package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPopularSymbols are refreshed on the popular-symbols schedule.
var DefaultPopularSymbols = []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "TSLA", "AMD"}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Provider struct {
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
		MaxRetries        int           `yaml:"max_retries"`
	} `yaml:"provider"`
	Confidence struct {
		Default float64 `yaml:"default"`
		Penalty string  `yaml:"penalty"` // raw | percent
	} `yaml:"confidence"`
	Forecast struct {
		MinHistory  int `yaml:"min_history"`
		Window      int `yaml:"window"`
		TickCount   int `yaml:"tick_count"`
		HistoryDays int `yaml:"history_days"`
	} `yaml:"forecast"`
	News struct {
		FeedURL string `yaml:"feed_url"`
		Limit   int    `yaml:"limit"`
	} `yaml:"news"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Watchlist struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"watchlist"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		PopularCron string `yaml:"popular_cron"`
		DigestCron  string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Popular struct {
		Symbols []string `yaml:"symbols"`
	} `yaml:"popular"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, v)
	}
	if v := os.Getenv("STOCKSENSE_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("WATCHLIST_STATE_FILE"); v != "" {
		cfg.Watchlist.StateFile = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONFIDENCE_PENALTY"); v != "" {
		cfg.Confidence.Penalty = v
	}
	if v := os.Getenv("FORECAST_MIN_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.MinHistory = n
		}
	}
	if v := os.Getenv("POPULAR_SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		cfg.Popular.Symbols = symbols
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 60 * time.Second
	}
	if cfg.Provider.RequestsPerSecond == 0 {
		cfg.Provider.RequestsPerSecond = 2
	}
	if cfg.Provider.Burst == 0 {
		cfg.Provider.Burst = 4
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 2
	}
	if cfg.Confidence.Default == 0 {
		cfg.Confidence.Default = 0.5
	}
	if cfg.Confidence.Penalty == "" {
		cfg.Confidence.Penalty = "raw"
	}
	if cfg.Forecast.MinHistory == 0 {
		cfg.Forecast.MinHistory = 2
	}
	if cfg.Forecast.TickCount == 0 {
		cfg.Forecast.TickCount = 5
	}
	if cfg.Forecast.HistoryDays == 0 {
		cfg.Forecast.HistoryDays = 6
	}
	if cfg.News.FeedURL == "" {
		cfg.News.FeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"
	}
	if cfg.News.Limit == 0 {
		cfg.News.Limit = 10
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stocksense.db"
	}
	if cfg.Watchlist.StateFile == "" {
		cfg.Watchlist.StateFile = "data/watchlist.json"
	}
	if cfg.Schedule.PopularCron == "" {
		cfg.Schedule.PopularCron = "0 0 9 * * 1-5"
	}
	if cfg.Schedule.DigestCron == "" {
		cfg.Schedule.DigestCron = "0 30 16 * * 1-5"
	}
	if len(cfg.Popular.Symbols) == 0 {
		cfg.Popular.Symbols = append([]string(nil), DefaultPopularSymbols...)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks that required fields are set and values are in range.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if u, err := url.Parse(c.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider.base_url %q is not an absolute URL", c.Provider.BaseURL)
	}
	if c.Confidence.Default < 0 || c.Confidence.Default > 1 {
		return fmt.Errorf("confidence.default must be within [0, 1]")
	}
	if c.Confidence.Penalty != "raw" && c.Confidence.Penalty != "percent" {
		return fmt.Errorf("confidence.penalty must be raw or percent, got %q", c.Confidence.Penalty)
	}
	if c.Forecast.MinHistory < 1 {
		return fmt.Errorf("forecast.min_history must be positive")
	}
	if c.Forecast.Window != 0 && c.Forecast.Window < c.Forecast.MinHistory {
		return fmt.Errorf("forecast.window must be 0 or >= forecast.min_history")
	}
	if c.Forecast.TickCount < 2 {
		return fmt.Errorf("forecast.tick_count must be at least 2")
	}
	if !strings.Contains(c.News.FeedURL, "%s") {
		return fmt.Errorf("news.feed_url must contain a %%s symbol placeholder")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.popular_cron": c.Schedule.PopularCron,
		"schedule.digest_cron":  c.Schedule.DigestCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
