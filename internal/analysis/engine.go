package analysis

import (
	"sort"

	"MarketResearch/internal/model"
)

// DefaultTopN is how many articles make it into a report.
const DefaultTopN = 20

// Options configures the Engine.
type Options struct {
	TopN            int
	LegacySentiment bool
}

// Result is the outcome of scoring one batch.
type Result struct {
	Scored     []model.Article // every unique article, in first-seen order
	Ranked     []model.Article // top N by impact
	Method     RelevanceMethod
	Duplicates int
}

// Engine runs the scoring stages over one batch at a time. It holds no batch
// state, so one Engine can serve concurrent runs.
type Engine struct {
	opts Options
}

// NewEngine creates an Engine, defaulting TopN to DefaultTopN.
func NewEngine(opts Options) *Engine {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	return &Engine{opts: opts}
}

// Score runs dedupe, relevance, sentiment and impact in that order, each stage
// consuming the full output of the previous one, then ranks the result.
func (e *Engine) Score(batch model.Batch, tickers []string) *Result {
	// Step a: collapse repeated URLs
	unique := Dedupe(batch.Articles)

	// Step b: batch-relative relevance
	scored, method := ScoreRelevance(unique, tickers)

	// Step c: sentiment, then impact with the price context
	if len(scored) > 0 {
		scored = ScoreSentiment(scored, e.opts.LegacySentiment)
		scored = ScoreImpact(scored, batch.Prices)
	}

	// Step d: rank for presentation
	return &Result{
		Scored:     scored,
		Ranked:     Rank(scored, e.opts.TopN),
		Method:     method,
		Duplicates: len(batch.Articles) - len(unique),
	}
}

// Rank returns a copy sorted by impact descending (missing impact counts as 0),
// keeping input order among ties, capped at n. n <= 0 means no cap.
func Rank(articles []model.Article, n int) []model.Article {
	ranked := clone(articles)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Impact.ValueOrZero() > ranked[j].Impact.ValueOrZero()
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
