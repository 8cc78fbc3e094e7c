package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"StockSense/internal/config"
	"StockSense/internal/logging"
	"StockSense/internal/notifier"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig string
	flagText   bool
)

var rootCmd = &cobra.Command{
	Use:          "stocksense",
	Short:        "Stock sentiment dashboard backend",
	Long:         "stocksense serves sentiment, forecast charts and adjusted confidence for stock symbols.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default $CONFIG_PATH or configs/config.yaml)")
	analyzeCmd.Flags().BoolVar(&flagText, "text", false, "print the Telegram-style summary instead of JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env, the YAML file and the environment, then sets up
// logging.
func loadConfig() (*config.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := flagConfig
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the scheduler and the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log.Info().Str("version", version).Msg("StockSense starting")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sched.RegisterAll(cfg.Schedule.PopularCron, cfg.Schedule.DigestCron); err != nil {
			return fmt.Errorf("register cron tasks: %w", err)
		}
		a.sched.Start()
		defer a.sched.Stop()

		if tn, ok := a.notifier.(*notifier.TelegramNotifier); ok {
			go tn.StartPolling(ctx, a.sched.HandleCommand)
			log.Info().Msg("telegram polling started")
		}

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info().Msg("RUN_ON_START enabled, refreshing popular symbols now")
			go a.sched.RefreshPopular(ctx)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- a.server.ListenAndServe() }()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, stopping")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown")
		}
		log.Info().Msg("StockSense stopped")
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Run one analysis and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.service.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagText {
			fmt.Fprintln(out, notifier.FormatAnalysis(res))
			return nil
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the popular-symbol sentiment board once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.sched.RefreshPopular(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), notifier.FormatPopular(entries))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stocksense %s (commit: %s)\n", version, commit)
	},
}
