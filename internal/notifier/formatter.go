package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockSense/internal/model"
)

func trendArrow(v float64) string {
	switch {
	case v > 0:
		return "🟢"
	case v < 0:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatAnalysis formats one stock analysis into a Telegram message.
func FormatAnalysis(a *model.StockAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>%s</b> (%s) | %s\n\n", html.EscapeString(a.CompanyName), a.Symbol, a.AnalyzedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Price: %.2f %s %+.2f (%+.2f%%)\n", a.CurrentPrice, trendArrow(a.PriceChange), a.PriceChange, a.ChangePercent)
	fmt.Fprintf(&b, "Sentiment: %d/100 → <b>%s</b> (risk %s)\n", a.Score, a.Recommendation.Label, a.Recommendation.RiskLevel)

	if a.Prediction != nil {
		fmt.Fprintf(&b, "Forecast %s: %.2f (confidence %.0f%%, base %.0f%%)\n",
			a.Prediction.Date, a.Prediction.Price, a.Confidence*100, a.BaseConfidence*100)
	} else {
		b.WriteString("Forecast: not available yet\n")
	}

	if len(a.Factors) > 0 {
		b.WriteString("\n📈 <b>Factors:</b>\n")
		for _, f := range a.Factors {
			fmt.Fprintf(&b, "  %s: %s (%+.1f)\n", f.Name, html.EscapeString(f.Commentary), f.Bias)
		}
	}
	if len(a.RiskFactors) > 0 {
		b.WriteString("\n⚠️ <b>Risks:</b>\n")
		for _, r := range a.RiskFactors {
			fmt.Fprintf(&b, "  • %s\n", html.EscapeString(r))
		}
	}
	if len(a.News) > 0 {
		b.WriteString("\n📰 <b>Headlines:</b>\n")
		for i, n := range a.News {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "  • <a href=\"%s\">%s</a>\n", html.EscapeString(n.Link), html.EscapeString(n.Title))
		}
	}
	return b.String()
}

// FormatWatchlistDigest summarizes the analyses of all watched symbols.
// failed lists symbols whose analysis could not be completed.
func FormatWatchlistDigest(analyses []*model.StockAnalysis, failed []string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗒 <b>Watchlist digest</b> | %s\n\n", now.Format("2006-01-02"))

	if len(analyses) == 0 && len(failed) == 0 {
		b.WriteString("No symbols are being watched.\n")
		return b.String()
	}
	for _, a := range analyses {
		fmt.Fprintf(&b, "%s <b>%s</b> %.2f (%+.2f%%) | %d → %s",
			trendArrow(a.ChangePercent), a.Symbol, a.CurrentPrice, a.ChangePercent, a.Score, a.Recommendation.Label)
		if a.Prediction != nil {
			fmt.Fprintf(&b, " | next %.2f @ %.0f%%", a.Prediction.Price, a.Confidence*100)
		}
		b.WriteString("\n")
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "\n⚠️ Unavailable: %s\n", strings.Join(failed, ", "))
	}
	return b.String()
}

// FormatMarketOverview formats the index board.
func FormatMarketOverview(ov *model.MarketOverview) string {
	var b strings.Builder
	state := "closed"
	if ov.MarketOpen {
		state = "open"
	}
	fmt.Fprintf(&b, "🏛 <b>Market overview</b> | market %s\n\n", state)
	if len(ov.Indexes) == 0 {
		b.WriteString("Index quotes are unavailable.\n")
	}
	for _, idx := range ov.Indexes {
		fmt.Fprintf(&b, "%s %s: %.2f (%+.2f)\n", trendArrow(idx.Change), html.EscapeString(idx.Name), idx.Price, idx.Change)
	}
	return b.String()
}

// FormatPopular formats the popular-symbol sentiment board.
func FormatPopular(entries []model.PopularEntry) string {
	var b strings.Builder
	b.WriteString("🔥 <b>Popular symbols</b>\n\n")
	if len(entries) == 0 {
		b.WriteString("No data yet, the board refreshes on schedule.\n")
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s: %d (%.2f)\n", trendArrow(float64(e.Sentiment)), e.Symbol, e.Sentiment, e.Price)
	}
	return b.String()
}
