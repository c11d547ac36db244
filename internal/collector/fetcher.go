package collector

import (
	"context"
	"time"

	"MarketResearch/internal/model"
)

// NewsSource fetches candidate articles for tickers published within window.
// Implementations return whatever they fetched together with an error describing
// the tickers or feeds that failed.
type NewsSource interface {
	FetchNews(ctx context.Context, tickers []string, window time.Duration) ([]model.Article, error)
	Name() string
}

// PriceSource fetches one snapshot per ticker.
type PriceSource interface {
	FetchPrices(ctx context.Context, tickers []string) ([]model.PriceSnapshot, error)
	Name() string
}
