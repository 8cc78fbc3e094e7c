// Package httpapi exposes the dashboard JSON API over gin.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"StockSense/internal/metrics"
	"StockSense/internal/model"
)

const requestIDHeader = "X-Request-ID"

// Analyzer runs a full analysis of one symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*model.StockAnalysis, error)
}

// SentimentSource serves the legacy sentiment endpoint.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string) (*model.Sentiment, error)
}

// FundamentalsSource serves the legacy stock data endpoint.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
}

// NewsSource returns recent headlines about a symbol.
type NewsSource interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]model.NewsArticle, error)
}

// MarketSource reports the major index quotes.
type MarketSource interface {
	MarketOverview(ctx context.Context) (*model.MarketOverview, error)
}

// HistoryStore lists recorded analyses and the popular-symbol board.
type HistoryStore interface {
	RecentAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error)
	PopularSentiments(ctx context.Context) ([]model.PopularEntry, error)
}

// WatchlistStore manages per-user watchlists.
type WatchlistStore interface {
	List(user string) ([]string, error)
	Add(user, symbol string) ([]string, error)
	Remove(user, symbol string) ([]string, error)
}

// Deps are the handlers' collaborators. Metrics may be nil.
type Deps struct {
	Analyzer     Analyzer
	Sentiment    SentimentSource
	Fundamentals FundamentalsSource
	News         NewsSource
	Market       MarketSource
	History      HistoryStore
	Watchlists   WatchlistStore
	Metrics      *metrics.Registry
}

// Server holds the gin engine and the HTTP server wrapping it.
type Server struct {
	deps   Deps
	engine *gin.Engine
	srv    *http.Server
}

// NewServer builds the router. allowedOrigins feeds the CORS policy.
func NewServer(addr string, allowedOrigins []string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(deps.Metrics))

	log.Info().Strs("origins", allowedOrigins).Msg("CORS allowed origins")
	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	s := &Server{deps: deps, engine: r}
	s.routes()
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.getHealth)
	r.POST("/getstocksentiment", s.postSentiment)
	r.POST("/getstockdata", s.postStockData)

	api := r.Group("/api")
	api.GET("/analysis/:symbol", s.getAnalysis)
	api.GET("/news/:symbol", s.getNews)
	api.GET("/market", s.getMarket)
	api.GET("/recent", s.getRecent)
	api.GET("/popular", s.getPopular)
	api.GET("/users/:user/watchlist", s.getWatchlist)
	api.PUT("/users/:user/watchlist/:symbol", s.putWatchlist)
	api.DELETE("/users/:user/watchlist/:symbol", s.deleteWatchlist)

	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe blocks until the server stops. http.ErrServerClosed is
// returned after Shutdown.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(m *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(status), elapsed)

		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		} else if status >= http.StatusBadRequest {
			ev = log.Warn()
		}
		ev.Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("http request")
	}
}
