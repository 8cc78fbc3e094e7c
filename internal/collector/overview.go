package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"StockSense/internal/model"
)

// MarketIndexes are the indexes shown in the market overview, in display order.
var MarketIndexes = []model.IndexQuote{
	{Name: "S&P 500", Symbol: "^GSPC"},
	{Name: "Nasdaq", Symbol: "^IXIC"},
	{Name: "Dow", Symbol: "^DJI"},
	{Name: "VIX", Symbol: "^VIX"},
}

const marketStateSymbol = "^IXIC"

// MarketOverview quotes the major indexes concurrently. Whether the market is
// open is taken from the Nasdaq quote. Indexes that fail to quote are logged
// and left out.
func (c *Collector) MarketOverview(ctx context.Context) (*model.MarketOverview, error) {
	var (
		mu     sync.Mutex
		quotes = make(map[string]*model.Quote, len(MarketIndexes))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range MarketIndexes {
		idx := idx
		g.Go(func() error {
			q, err := c.Fetcher.FetchQuote(gctx, idx.Symbol)
			if err != nil {
				log.Warn().Str("symbol", idx.Symbol).Err(err).Msg("index quote failed")
				return nil
			}
			mu.Lock()
			quotes[idx.Symbol] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	overview := &model.MarketOverview{FetchedAt: time.Now().UTC()}
	if q, ok := quotes[marketStateSymbol]; ok {
		overview.MarketOpen = q.MarketOpen
	}
	for _, idx := range MarketIndexes {
		q, ok := quotes[idx.Symbol]
		if !ok {
			continue
		}
		overview.Indexes = append(overview.Indexes, model.IndexQuote{
			Name:   idx.Name,
			Symbol: idx.Symbol,
			Price:  q.Price,
			Change: q.Change,
		})
	}
	return overview, nil
}
