// Package provider is the client for the upstream StockSense service that
// serves sentiment scores, company fundamentals and next-day predictions.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"StockSense/internal/metrics"
)

// APIError is an error reported by the upstream service, either through a
// non-200 status or an {"error": "..."} body.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// Temporary reports whether retrying the call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	DefaultConfidence float64
	ProxyURL          string
	Metrics           *metrics.Registry
}

// Client calls the StockSense service. It is safe for concurrent use.
type Client struct {
	baseURL           string
	http              *http.Client
	limiter           *rate.Limiter
	breaker           *gobreaker.CircuitBreaker
	maxRetries        int
	backoff           time.Duration
	defaultConfidence float64
	metrics           *metrics.Registry
	now               func() time.Time
}

// New creates a Client.
func New(opts Options) *Client {
	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	return &Client{
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		http:              &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:           rate.NewLimiter(limit, opts.Burst),
		breaker:           newBreaker("stocksense"),
		maxRetries:        opts.MaxRetries,
		backoff:           500 * time.Millisecond,
		defaultConfidence: opts.DefaultConfidence,
		metrics:           opts.Metrics,
		now:               time.Now,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// upstream verdicts such as "unknown symbol" are not outages
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && !apiErr.Temporary())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// postForm sends stock_symbol as a form POST to endpoint and returns the
// body of a 200 response. Transient failures are retried with exponential
// backoff.
func (c *Client) postForm(ctx context.Context, endpoint, symbol string) ([]byte, error) {
	start := time.Now()
	body, err := c.postWithRetry(ctx, endpoint, symbol)
	c.metrics.ObserveUpstream("stocksense", endpoint, start, err)
	return body, err
}

func (c *Client) postWithRetry(ctx context.Context, endpoint, symbol string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			log.Debug().Str("endpoint", endpoint).Str("symbol", symbol).Int("attempt", attempt).Dur("wait", wait).Err(lastErr).Msg("retrying upstream call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doPost(ctx, endpoint, symbol)
		})
		if err == nil {
			return res.([]byte), nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: giving up after %d attempts: %w", endpoint, c.maxRetries+1, lastErr)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

func (c *Client) doPost(ctx context.Context, endpoint, symbol string) ([]byte, error) {
	form := url.Values{"stock_symbol": {symbol}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	if msg, ok := errorMessage(body); ok {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}
