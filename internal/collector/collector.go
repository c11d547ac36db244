package collector

import (
	"context"
	"errors"
	"time"

	"github.com/phuslu/log"

	"MarketResearch/internal/analysis"
	"MarketResearch/internal/model"
)

// DefaultMinResults is the article count below which the fallback source is queried.
const DefaultMinResults = 5

// Collector orchestrates news and price fetching for a run.
type Collector struct {
	News       NewsSource
	Fallback   NewsSource // optional
	Prices     PriceSource
	MinResults int
}

// NewCollector creates a new Collector.
func NewCollector(news, fallback NewsSource, prices PriceSource, minResults int) *Collector {
	if minResults <= 0 {
		minResults = DefaultMinResults
	}
	return &Collector{News: news, Fallback: fallback, Prices: prices, MinResults: minResults}
}

// CollectNews queries the primary source, tops up from the fallback when too
// few articles came back, and removes URL duplicates. Source errors are
// returned alongside whatever articles were fetched.
func (c *Collector) CollectNews(ctx context.Context, tickers []string, window time.Duration) ([]model.Article, error) {
	var articles []model.Article
	var errs []error

	if c.News != nil {
		found, err := c.News.FetchNews(ctx, tickers, window)
		if err != nil {
			errs = append(errs, err)
		}
		articles = append(articles, found...)
	}

	if c.Fallback != nil && len(articles) < c.MinResults {
		log.Info().Int("count", len(articles)).Int("min", c.MinResults).
			Str("fallback", c.Fallback.Name()).Msg("too few articles, using fallback")
		found, err := c.Fallback.FetchNews(ctx, tickers, window)
		if err != nil {
			errs = append(errs, err)
		}
		articles = append(articles, found...)
	}

	return analysis.Dedupe(articles), errors.Join(errs...)
}

// CollectPrices fetches one snapshot per ticker from the price source.
func (c *Collector) CollectPrices(ctx context.Context, tickers []string) ([]model.PriceSnapshot, error) {
	if c.Prices == nil {
		return nil, nil
	}
	return c.Prices.FetchPrices(ctx, tickers)
}
