package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"StockSense/internal/analysis"
	"StockSense/internal/metrics"
	"StockSense/internal/model"
	"StockSense/internal/provider"
	"StockSense/internal/watchlist"
)

type fakeUpstream struct {
	err error
}

func (f *fakeUpstream) Analyze(_ context.Context, symbol string) (*model.StockAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	sym, err := analysis.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return &model.StockAnalysis{Symbol: sym, Score: 35, Confidence: 0.62}, nil
}

func (f *fakeUpstream) Sentiment(_ context.Context, symbol string) (*model.Sentiment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Sentiment{Symbol: symbol, Score: -12}, nil
}

func (f *fakeUpstream) Fundamentals(context.Context, string) (*model.Fundamentals, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Fundamentals{LongName: "Apple Inc."}, nil
}

func (f *fakeUpstream) Headlines(_ context.Context, _ string, limit int) ([]model.NewsArticle, error) {
	items := []model.NewsArticle{{Title: "one"}, {Title: "two"}, {Title: "three"}}
	if limit < len(items) {
		items = items[:limit]
	}
	return items, f.err
}

func (f *fakeUpstream) MarketOverview(context.Context) (*model.MarketOverview, error) {
	return &model.MarketOverview{MarketOpen: true}, f.err
}

func (f *fakeUpstream) RecentAnalyses(_ context.Context, limit int) ([]model.AnalysisRecord, error) {
	out := make([]model.AnalysisRecord, 0, limit)
	for i := 0; i < limit && i < 150; i++ {
		out = append(out, model.AnalysisRecord{Symbol: "AAPL"})
	}
	return out, f.err
}

func (f *fakeUpstream) PopularSentiments(context.Context) ([]model.PopularEntry, error) {
	return nil, f.err
}

func newTestServer(t *testing.T, upstreamErr error) *Server {
	up := &fakeUpstream{err: upstreamErr}
	wl, err := watchlist.NewManager(filepath.Join(t.TempDir(), "watchlist.json"))
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(":0", []string{"http://localhost:3000"}, Deps{
		Analyzer:     up,
		Sentiment:    up,
		Fundamentals: up,
		News:         up,
		Market:       up,
		History:      up,
		Watchlists:   wl,
		Metrics:      metrics.New(),
	})
}

func do(s *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "GET", "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var res map[string]string
	decode(t, w, &res)
	assert.Equal(t, "ok", res["status"])
	assert.NotEqual(t, "", w.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestPostSentiment(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "POST", "/getstocksentiment", url.Values{"stock_symbol": {" aapl "}})

	assert.Equal(t, http.StatusOK, w.Code)
	var res map[string]any
	decode(t, w, &res)
	assert.Equal(t, "AAPL", res["stock_symbol"])
	assert.Equal(t, -12.0, res["sentiment"])
}

func TestPostSentiment_MissingSymbol(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "POST", "/getstocksentiment", url.Values{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var res map[string]string
	decode(t, w, &res)
	assert.Equal(t, "stock_symbol is required", res["error"])
}

func TestPostSentiment_UpstreamError(t *testing.T) {
	s := newTestServer(t, &provider.APIError{Endpoint: "getstocksentiment", StatusCode: 200, Message: "Unknown symbol"})
	w := do(s, "POST", "/getstocksentiment", url.Values{"stock_symbol": {"ZZZZ"}})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var res map[string]string
	decode(t, w, &res)
	assert.Equal(t, "Unknown symbol", res["error"])
}

func TestPostStockData(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "POST", "/getstockdata", url.Values{"stock_symbol": {"AAPL"}})

	assert.Equal(t, http.StatusOK, w.Code)
	var res map[string]any
	decode(t, w, &res)
	assert.Equal(t, "Apple Inc.", res["longName"])
	assert.Equal(t, nil, res["peRatio"])
}

func TestGetAnalysis(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "GET", "/api/analysis/msft", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var res model.StockAnalysis
	decode(t, w, &res)
	assert.Equal(t, "MSFT", res.Symbol)
	assert.Equal(t, 0.62, res.Confidence)
}

func TestGetAnalysis_InvalidSymbol(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "GET", "/api/analysis/not$valid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnalysis_InternalError(t *testing.T) {
	s := newTestServer(t, errors.New("disk on fire"))
	w := do(s, "GET", "/api/analysis/AAPL", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var res map[string]string
	decode(t, w, &res)
	assert.Equal(t, "internal error", res["error"])
}

func TestGetNews_Limit(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "GET", "/api/news/AAPL?limit=2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Symbol   string              `json:"symbol"`
		Articles []model.NewsArticle `json:"articles"`
	}
	decode(t, w, &res)
	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, 2, len(res.Articles))
}

func TestGetRecent_ClampsLimit(t *testing.T) {
	s := newTestServer(t, nil)

	var res []model.AnalysisRecord
	decode(t, do(s, "GET", "/api/recent", nil), &res)
	assert.Equal(t, 10, len(res))

	decode(t, do(s, "GET", "/api/recent?limit=500", nil), &res)
	assert.Equal(t, 100, len(res))

	decode(t, do(s, "GET", "/api/recent?limit=abc", nil), &res)
	assert.Equal(t, 10, len(res))
}

func TestGetPopular_EmptyIsArray(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "GET", "/api/popular", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestGetMarket(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, "GET", "/api/market", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var res model.MarketOverview
	decode(t, w, &res)
	assert.Equal(t, true, res.MarketOpen)
}

func TestWatchlistRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	type body struct {
		User    string   `json:"user"`
		Symbols []string `json:"symbols"`
	}
	var res body

	w := do(s, "PUT", "/api/users/alice/watchlist/aapl", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Equal(t, []string{"AAPL"}, res.Symbols)

	do(s, "PUT", "/api/users/alice/watchlist/MSFT", nil)
	decode(t, do(s, "GET", "/api/users/alice/watchlist", nil), &res)
	assert.Equal(t, "alice", res.User)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Symbols)

	decode(t, do(s, "DELETE", "/api/users/alice/watchlist/AAPL", nil), &res)
	assert.Equal(t, []string{"MSFT"}, res.Symbols)

	w = do(s, "GET", "/api/users/bob/watchlist", nil)
	assert.Equal(t, `{"symbols":[],"user":"bob"}`, w.Body.String())

	w = do(s, "PUT", "/api/users/alice/watchlist/bad$sym", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, "GET", "/healthz", nil)

	w := do(s, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, strings.Contains(w.Body.String(), `route="/healthz"`))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest("OPTIONS", "/api/market", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
