package analysis

import (
	"math"

	"github.com/guregu/null/v6"

	"MarketResearch/internal/model"
)

// PriceIndex joins articles to price snapshots by ticker.
type PriceIndex map[string]model.PriceSnapshot

// IndexPrices builds the ticker join. When a ticker has several snapshots the
// last one in the list wins.
func IndexPrices(prices []model.PriceSnapshot) PriceIndex {
	idx := make(PriceIndex, len(prices))
	for _, p := range prices {
		idx[p.Ticker] = p
	}
	return idx
}

// Factor is 1 + |d1_change|/100 for a matched snapshot with a usable daily
// change, and exactly 1.0 otherwise.
func (idx PriceIndex) Factor(ticker string) float64 {
	p, ok := idx[ticker]
	if !ok || !p.D1Change.Valid {
		return 1.0
	}
	d1 := p.D1Change.Float64
	if d1 == 0 || math.IsNaN(d1) || math.IsInf(d1, 0) {
		return 1.0
	}
	return 1.0 + math.Abs(d1)/100.0
}

// ScoreImpact sets impact = relevance * |sentiment| * price factor on a copy of
// every article. Missing relevance or sentiment count as zero.
func ScoreImpact(articles []model.Article, prices []model.PriceSnapshot) []model.Article {
	idx := IndexPrices(prices)
	out := clone(articles)
	for i := range out {
		a := &out[i]
		relevance := a.Relevance.ValueOrZero()
		magnitude := math.Abs(a.Sentiment.ValueOrZero())
		a.Impact = null.FloatFrom(relevance * magnitude * idx.Factor(a.Ticker))
	}
	return out
}
