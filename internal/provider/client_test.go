package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second, MaxRetries: 2, DefaultConfidence: 0.5})
	c.backoff = time.Millisecond
	c.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantAPI bool
	}{
		{"number", `{"stock_symbol":"aapl","sentiment":42.6}`, 43, false},
		{"clamped high", `{"stock_symbol":"AAPL","sentiment":250}`, 100, false},
		{"clamped low", `{"stock_symbol":"AAPL","sentiment":-101}`, -100, false},
		{"string message", `{"stock_symbol":"ZZZZ","sentiment":"No news found for ZZZZ"}`, 0, true},
		{"error body", `{"error":"No stock symbol provided."}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/getstocksentiment", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, r.ParseForm())
				assert.NotEmpty(t, r.PostForm.Get("stock_symbol"))
				fmt.Fprint(w, tt.body)
			})

			s, err := c.Sentiment(context.Background(), "AAPL")
			if tt.wantAPI {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr), "got %v", err)
				assert.NotEmpty(t, apiErr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Score)
			assert.Equal(t, "AAPL", s.Symbol)
		})
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "warming up")
			return
		}
		fmt.Fprint(w, `{"stock_symbol":"AAPL","sentiment":10}`)
	})

	s, err := c.Sentiment(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10, s.Score)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoesNotRetryUpstreamVerdicts(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"Invalid symbol"}`)
	})

	_, err := c.Fundamentals(context.Background(), "???")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid symbol", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Predict(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFundamentals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getstockdata", r.URL.Path)
		fmt.Fprint(w, `{"currentPrice":189.5,"longName":"Apple Inc.","sector":"Technology",
			"peRatio":"---","eps":6.1,"dayRange":"187.0 - 190.1","beta":"1.25","summary":"---"}`)
	})

	f, err := c.Fundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.5, f.CurrentPrice.Or(0))
	assert.Equal(t, "Apple Inc.", string(f.LongName))
	assert.False(t, f.PERatio.Set())
	assert.Equal(t, 1.25, f.Beta.Or(0))
	assert.Equal(t, "", string(f.Summary))
	assert.False(t, f.MarketCap.Set())
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		price    float64
		conf     float64
		wantFail bool
	}{
		{"single", `{"prediction":191.234,"confidence":0.81}`, 191.234, 0.81, false},
		{"list without confidence", `{"predictions":[150.5,151]}`, 150.5, 0.5, false},
		{"confidence clamped", `{"prediction":10,"confidence":1.7}`, 10, 1, false},
		{"missing", `{"confidence":0.9}`, 0, 0, true},
		{"non positive", `{"prediction":-3}`, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/predict", r.URL.Path)
				fmt.Fprint(w, tt.body)
			})
			p, err := c.Predict(context.Background(), "msft")
			if tt.wantFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.price, p.Price)
			assert.Equal(t, tt.conf, p.Confidence)
			assert.Equal(t, "MSFT", p.Symbol)
			assert.Equal(t, "2024-06-11", p.Date)
		})
	}
}

func TestContextCancelStopsRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Sentiment(ctx, "AAPL")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
