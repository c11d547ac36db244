package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"MarketResearch/internal/analysis"
	"MarketResearch/internal/model"
)

// Render formats a finished run as a markdown research report. Articles are
// taken from state.Ranked, which is already ordered by impact.
func Render(state *model.RunState, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Market Research Report | %s\n\n", generatedAt.UTC().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("- **Tickers:** %s\n", strings.Join(state.Tickers, ", ")))
	b.WriteString(fmt.Sprintf("- **Time window:** last %d hours\n", state.TimeWindowHours))
	b.WriteString(fmt.Sprintf("- **Run:** `%s`\n", state.RunID))
	b.WriteString(fmt.Sprintf("- **Generated:** %s\n\n", generatedAt.UTC().Format(time.RFC3339)))

	// Prices
	b.WriteString("## Prices\n\n")
	if len(state.Prices) == 0 {
		b.WriteString("_No price data available._\n\n")
	} else {
		prices := make([]model.PriceSnapshot, len(state.Prices))
		copy(prices, state.Prices)
		sort.SliceStable(prices, func(i, j int) bool { return prices[i].Ticker < prices[j].Ticker })

		b.WriteString("| Ticker | Close | 1D % | 5D % | Vol Z | As of |\n")
		b.WriteString("|---|---:|---:|---:|---:|---|\n")
		for _, p := range prices {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				p.Ticker, num(p.Close, "%.2f"), num(p.D1Change, "%+.2f"), num(p.D5Change, "%+.2f"),
				num(p.VolZ, "%+.2f"), p.AsOf.UTC().Format("2006-01-02")))
		}
		b.WriteString("\n")
	}

	// Ranked articles
	b.WriteString(fmt.Sprintf("## Top %d Articles by Impact\n\n", len(state.Ranked)))
	if len(state.Ranked) == 0 {
		b.WriteString("_No articles found in the time window._\n\n")
	}
	idx := analysis.IndexPrices(state.Prices)
	for i, a := range state.Ranked {
		b.WriteString(fmt.Sprintf("### %d. [%s](%s)\n\n", i+1, escape(a.Title), a.URL))
		b.WriteString(fmt.Sprintf("- **Ticker:** %s", a.Ticker))
		if a.Source.Valid {
			b.WriteString(fmt.Sprintf(" | **Source:** %s", escape(a.Source.String)))
		}
		if a.PublishedAt.Valid {
			b.WriteString(fmt.Sprintf(" | **Published:** %s", a.PublishedAt.Time.UTC().Format("2006-01-02 15:04")))
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("- **Relevance:** %s | **Sentiment:** %s | **Impact:** %s | **Price factor:** %.3f\n",
			num(a.Relevance, "%.3f"), num(a.Sentiment, "%+.3f"), num(a.Impact, "%.3f"), idx.Factor(a.Ticker)))
		if a.Summary.Valid && strings.TrimSpace(a.Summary.String) != "" {
			b.WriteString(fmt.Sprintf("\n> %s\n", escape(a.Summary.String)))
		}
		b.WriteString("\n")
	}

	if len(state.Notes) > 0 {
		b.WriteString("## Run Notes\n\n")
		for _, n := range state.Notes {
			b.WriteString(fmt.Sprintf("- %s\n", n))
		}
		b.WriteString("\n")
	}

	if len(state.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range state.Errors {
			b.WriteString(fmt.Sprintf("- %s\n", e.Error()))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n_Scores are lexical heuristics, not investment advice._\n")
	return b.String()
}

func num(v null.Float, format string) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf(format, v.Float64)
}

var escaper = strings.NewReplacer("\n", " ", "\r", " ", "|", "\\|", "[", "\\[", "]", "\\]")

func escape(s string) string {
	return strings.TrimSpace(escaper.Replace(s))
}
