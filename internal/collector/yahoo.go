package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"StockSense/internal/metrics"
	"StockSense/internal/model"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	Metrics *metrics.Registry
	now     func() time.Time
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. proxyURL may be empty.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		BaseURL: defaultYahooBaseURL,
		now:     time.Now,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

type tradingPeriod struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// yahooChart is the response structure from the Yahoo Finance chart API.
// Price arrays hold nulls for halted or missing sessions.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string   `json:"symbol"`
				RegularMarketPrice   *float64 `json:"regularMarketPrice"`
				ChartPreviousClose   *float64 `json:"chartPreviousClose"`
				PreviousClose        *float64 `json:"previousClose"`
				CurrentTradingPeriod struct {
					Regular tradingPeriod `json:"regular"`
				} `json:"currentTradingPeriod"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, rng string) (*yahooChart, error) {
	base := strings.TrimRight(f.BaseURL, "/")
	if base == "" {
		base = defaultYahooBaseURL
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s", base, url.PathEscape(symbol), rng)

	start := time.Now()
	chart, err := f.doChart(ctx, u)
	f.Metrics.ObserveUpstream("yahoo", "chart", start, err)
	return chart, err
}

func (f *YahooFetcher) doChart(ctx context.Context, u string) (*yahooChart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}
	return &chart, nil
}

func chartRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 20:
		return "1mo"
	case days <= 60:
		return "3mo"
	case days <= 120:
		return "6mo"
	case days <= 250:
		return "1y"
	default:
		return "2y"
	}
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	chart, err := f.fetchChart(ctx, symbol, chartRange(days))
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no bars for %s", symbol)
	}

	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == 0 {
			continue // null bar (holiday, halt)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// FetchQuote reads the live price from the chart metadata. The market counts
// as open while now is inside the current regular trading period.
func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	chart, err := f.fetchChart(ctx, symbol, "5d")
	if err != nil {
		return nil, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return nil, fmt.Errorf("yahoo: no market price for %s", symbol)
	}

	q := &model.Quote{Symbol: symbol, Price: *meta.RegularMarketPrice}
	switch {
	case meta.ChartPreviousClose != nil:
		q.PreviousClose = *meta.ChartPreviousClose
	case meta.PreviousClose != nil:
		q.PreviousClose = *meta.PreviousClose
	}
	if q.PreviousClose != 0 {
		q.Change = q.Price - q.PreviousClose
	}

	now := time.Now
	if f.now != nil {
		now = f.now
	}
	period := meta.CurrentTradingPeriod.Regular
	ts := now().Unix()
	q.MarketOpen = period.End > period.Start && ts >= period.Start && ts < period.End
	return q, nil
}
