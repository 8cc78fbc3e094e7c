package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"StockSense/internal/analysis"
	"StockSense/internal/model"
	"StockSense/internal/provider"
	"StockSense/internal/watchlist"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// writeError maps err onto a status code and an {"error": ...} body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var apiErr *provider.APIError
	switch {
	case errors.Is(err, analysis.ErrInvalidSymbol), errors.Is(err, watchlist.ErrInvalidUser):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, watchlist.ErrWatchlistFull):
		status, msg = http.StatusConflict, err.Error()
	case errors.As(err, &apiErr):
		status, msg = http.StatusBadGateway, apiErr.Message
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status, msg = http.StatusServiceUnavailable, "upstream temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "upstream timed out"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}

func queryLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		log.Warn().Str("limit", raw).Int("default", def).Msg("invalid limit, using default")
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// formSymbol reads and validates the stock_symbol form field.
func formSymbol(c *gin.Context) (string, bool) {
	raw := c.PostForm("stock_symbol")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stock_symbol is required"})
		return "", false
	}
	sym, err := analysis.NormalizeSymbol(raw)
	if err != nil {
		writeError(c, err)
		return "", false
	}
	return sym, true
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) postSentiment(c *gin.Context) {
	sym, ok := formSymbol(c)
	if !ok {
		return
	}
	sentiment, err := s.deps.Sentiment.Sentiment(c.Request.Context(), sym)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sentiment)
}

func (s *Server) postStockData(c *gin.Context) {
	sym, ok := formSymbol(c)
	if !ok {
		return
	}
	f, err := s.deps.Fundamentals.Fundamentals(c.Request.Context(), sym)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) getAnalysis(c *gin.Context) {
	a, err := s.deps.Analyzer.Analyze(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) getNews(c *gin.Context) {
	sym, err := analysis.NormalizeSymbol(c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := s.deps.News.Headlines(c.Request.Context(), sym, queryLimit(c, defaultLimit))
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []model.NewsArticle{}
	}
	c.JSON(http.StatusOK, gin.H{"symbol": sym, "articles": items})
}

func (s *Server) getMarket(c *gin.Context) {
	ov, err := s.deps.Market.MarketOverview(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (s *Server) getRecent(c *gin.Context) {
	records, err := s.deps.History.RecentAnalyses(c.Request.Context(), queryLimit(c, defaultLimit))
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []model.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) getPopular(c *gin.Context) {
	entries, err := s.deps.History.PopularSentiments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []model.PopularEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getWatchlist(c *gin.Context) {
	s.watchlistResult(c, func(user string) ([]string, error) {
		return s.deps.Watchlists.List(user)
	})
}

func (s *Server) putWatchlist(c *gin.Context) {
	s.watchlistResult(c, func(user string) ([]string, error) {
		return s.deps.Watchlists.Add(user, c.Param("symbol"))
	})
}

func (s *Server) deleteWatchlist(c *gin.Context) {
	s.watchlistResult(c, func(user string) ([]string, error) {
		return s.deps.Watchlists.Remove(user, c.Param("symbol"))
	})
}

func (s *Server) watchlistResult(c *gin.Context, op func(user string) ([]string, error)) {
	user := c.Param("user")
	symbols, err := op(user)
	if err != nil {
		writeError(c, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "symbols": symbols})
}
