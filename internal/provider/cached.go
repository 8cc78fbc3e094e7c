package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"StockSense/internal/cache"
	"StockSense/internal/metrics"
	"StockSense/internal/model"
)

// PredictionTTL bounds how long a cached prediction is kept.
const PredictionTTL = 24 * time.Hour

// Predictor produces next-day predictions.
type Predictor interface {
	Predict(ctx context.Context, symbol string) (*model.Prediction, error)
}

// CachedPredictor asks the upstream predictor at most once per symbol per
// UTC day. Cache failures fall through to a live call.
type CachedPredictor struct {
	Upstream Predictor
	Store    cache.Store
	Metrics  *metrics.Registry
	now      func() time.Time
}

// NewCachedPredictor wraps upstream with store.
func NewCachedPredictor(upstream Predictor, store cache.Store, m *metrics.Registry) *CachedPredictor {
	if store == nil {
		store = cache.NoopStore{}
	}
	return &CachedPredictor{Upstream: upstream, Store: store, Metrics: m, now: time.Now}
}

// PredictionKey is the cache key of symbol's prediction made on day.
func PredictionKey(symbol string, day time.Time) string {
	return fmt.Sprintf("stocksense:prediction:%s:%s", strings.ToUpper(symbol), day.UTC().Format(model.DateLayout))
}

func (p *CachedPredictor) Predict(ctx context.Context, symbol string) (*model.Prediction, error) {
	key := PredictionKey(symbol, p.now())

	if data, found, err := p.Store.Get(ctx, key); err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("prediction cache read failed")
	} else if found {
		var pred model.Prediction
		if err := json.Unmarshal(data, &pred); err == nil {
			p.Metrics.CacheHit("prediction")
			return &pred, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cached prediction")
	}
	p.Metrics.CacheMiss("prediction")

	pred, err := p.Upstream.Predict(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(pred); err == nil {
		if err := p.Store.Set(ctx, key, data, PredictionTTL); err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("prediction cache write failed")
		}
	}
	return pred, nil
}
