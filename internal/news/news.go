// Package news reads per-symbol headlines from an RSS feed.
package news

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"StockSense/internal/metrics"
	"StockSense/internal/model"
)

// DefaultFeedURL is the Yahoo Finance headline feed; %s is the symbol.
const DefaultFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

const summaryLimit = 300

// Feed fetches headlines for a symbol.
type Feed struct {
	parser      *gofeed.Parser
	URLTemplate string
	Limit       int
	Metrics     *metrics.Registry
}

// NewFeed creates a Feed. An empty template uses DefaultFeedURL and a
// non-positive limit means 10.
func NewFeed(urlTemplate string, limit int, m *metrics.Registry) *Feed {
	if urlTemplate == "" {
		urlTemplate = DefaultFeedURL
	}
	if limit <= 0 {
		limit = 10
	}
	p := gofeed.NewParser()
	p.UserAgent = "Mozilla/5.0"
	return &Feed{parser: p, URLTemplate: urlTemplate, Limit: limit, Metrics: m}
}

// Headlines returns up to limit articles about symbol, newest first.
// limit <= 0 uses the feed's default.
func (f *Feed) Headlines(ctx context.Context, symbol string, limit int) ([]model.NewsArticle, error) {
	if limit <= 0 {
		limit = f.Limit
	}
	u := fmt.Sprintf(f.URLTemplate, url.QueryEscape(symbol))

	start := time.Now()
	feed, err := f.parser.ParseURLWithContext(u, ctx)
	f.Metrics.ObserveUpstream("news", "rss", start, err)
	if err != nil {
		return nil, fmt.Errorf("fetching news for %s: %w", symbol, err)
	}

	articles := make([]model.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		var pub time.Time
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		articles = append(articles, model.NewsArticle{
			Title:     html.UnescapeString(strings.TrimSpace(item.Title)),
			Link:      item.Link,
			Summary:   truncate(html.UnescapeString(stripHTML(desc)), summaryLimit),
			Source:    source(feed, item),
			Published: pub.UTC(),
		})
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func source(feed *gofeed.Feed, item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		return item.Authors[0].Name
	}
	if feed.Title != "" {
		return feed.Title
	}
	return "Yahoo Finance"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
