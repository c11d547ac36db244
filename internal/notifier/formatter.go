package notifier

import (
	"fmt"
	"html"
	"strings"

	"MarketResearch/internal/model"
)

// digestSize is the number of ranked articles shown in a run digest.
const digestSize = 5

// FormatRunDigest formats a finished run into a Telegram message.
func FormatRunDigest(state *model.RunState) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Market Research</b> | %s\n", strings.Join(state.Tickers, ", ")))
	b.WriteString(fmt.Sprintf("Window: %dh | Articles: %d | Prices: %d\n\n",
		state.TimeWindowHours, len(state.Articles), len(state.Prices)))

	if len(state.Ranked) == 0 {
		b.WriteString("No articles found in the time window.\n")
	} else {
		b.WriteString("📈 <b>Top by impact:</b>\n")
		for i, a := range state.Ranked {
			if i == digestSize {
				break
			}
			b.WriteString(fmt.Sprintf("%d. [%s] <a href=\"%s\">%s</a>\n   impact %.3f | sentiment %+.2f\n",
				i+1, a.Ticker, html.EscapeString(a.URL), html.EscapeString(a.Title),
				a.Impact.ValueOrZero(), a.Sentiment.ValueOrZero()))
		}
	}

	if len(state.Artifacts) > 0 {
		b.WriteString(fmt.Sprintf("\n📄 %s\n", html.EscapeString(state.Artifacts[0])))
	}
	if len(state.Errors) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d stage error(s):\n", len(state.Errors)))
		for _, e := range state.Errors {
			b.WriteString(fmt.Sprintf("  %s\n", html.EscapeString(e.Error())))
		}
	}
	b.WriteString(fmt.Sprintf("\nRun: <code>%s</code>", state.RunID))
	return b.String()
}

// FormatRunStatus formats a persisted run for the /status command.
func FormatRunStatus(run *model.Run) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Run</b> <code>%s</code>\n\n", run.ID))
	b.WriteString(fmt.Sprintf("Status: %s\n", run.Status))
	b.WriteString(fmt.Sprintf("Tickers: %s (%dh)\n", strings.Join(run.Tickers, ", "), run.TimeWindowHours))
	b.WriteString(fmt.Sprintf("Started: %s\n", run.StartedAt.Format("2006-01-02 15:04")))
	if run.FinishedAt != nil {
		b.WriteString(fmt.Sprintf("Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04")))
	}
	for _, a := range run.Artifacts {
		b.WriteString(fmt.Sprintf("📄 %s\n", html.EscapeString(a)))
	}
	for _, e := range run.Errors {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(e)))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "🤖 <b>Market Research</b>\n\n" +
		"/run TICK1,TICK2 [hours] - research tickers now\n" +
		"/status &lt;run_id&gt; - show a run\n" +
		"/help - this message"
}
