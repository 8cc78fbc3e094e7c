package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"StockSense/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP handlers read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			company_name    TEXT,
			price           REAL,
			change_percent  REAL,
			score           INTEGER,
			base_confidence REAL,
			confidence      REAL,
			predicted_price REAL,
			recommendation  TEXT,
			risk_level      TEXT,
			sma20           REAL,
			rsi14           REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_ts ON analyses(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol ON analyses(symbol)`,

		`CREATE TABLE IF NOT EXISTS popular_sentiment (
			symbol     TEXT PRIMARY KEY,
			sentiment  INTEGER NOT NULL,
			price      REAL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(ctx context.Context, a *model.StockAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var predicted sql.NullFloat64
	if a.Prediction != nil {
		predicted = sql.NullFloat64{Float64: a.Prediction.Price, Valid: true}
	}
	ts := a.AnalyzedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO analyses
		(timestamp, symbol, company_name, price, change_percent, score,
		 base_confidence, confidence, predicted_price, recommendation, risk_level,
		 sma20, rsi14)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), a.Symbol, a.CompanyName, a.CurrentPrice, a.ChangePercent, a.Score,
		a.BaseConfidence, a.Confidence, predicted, a.Recommendation.Label, a.Recommendation.RiskLevel,
		a.Technicals.SMA20, a.Technicals.RSI14,
	)
	return err
}

func (r *SQLiteRecorder) RecordPopular(ctx context.Context, e model.PopularEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := e.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO popular_sentiment (symbol, sentiment, price, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET
			sentiment = excluded.sentiment,
			price = excluded.price,
			updated_at = excluded.updated_at`,
		e.Symbol, e.Sentiment, e.Price, ts.Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecentAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT timestamp, symbol, company_name, price, change_percent,
		score, confidence, recommendation, risk_level
		FROM analyses ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AnalysisRecord{}
	for rows.Next() {
		var (
			rec     model.AnalysisRecord
			ts      int64
			company sql.NullString
		)
		if err := rows.Scan(&ts, &rec.Symbol, &company, &rec.Price, &rec.ChangePercent,
			&rec.Score, &rec.Confidence, &rec.Recommendation, &rec.RiskLevel); err != nil {
			return nil, err
		}
		rec.CompanyName = company.String
		rec.AnalyzedAt = time.Unix(ts, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) PopularSentiments(ctx context.Context) ([]model.PopularEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, sentiment, price, updated_at
		FROM popular_sentiment ORDER BY sentiment DESC, symbol ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PopularEntry{}
	for rows.Next() {
		var (
			e  model.PopularEntry
			ts int64
		)
		if err := rows.Scan(&e.Symbol, &e.Sentiment, &e.Price, &ts); err != nil {
			return nil, err
		}
		e.UpdatedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
