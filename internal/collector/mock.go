package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"MarketResearch/internal/model"
)

// MockNewsSource returns controllable fixed articles for development and testing.
type MockNewsSource struct {
	Articles []model.Article
	Err      error
}

func (m *MockNewsSource) Name() string { return "mock" }

func (m *MockNewsSource) FetchNews(_ context.Context, tickers []string, _ time.Duration) ([]model.Article, error) {
	if m.Articles != nil || m.Err != nil {
		return m.Articles, m.Err
	}
	return generateMockArticles(tickers), nil
}

// MockPriceSource returns controllable fixed snapshots for development and testing.
type MockPriceSource struct {
	Prices []model.PriceSnapshot
	Err    error
}

func (m *MockPriceSource) Name() string { return "mock" }

func (m *MockPriceSource) FetchPrices(_ context.Context, tickers []string) ([]model.PriceSnapshot, error) {
	if m.Prices != nil || m.Err != nil {
		return m.Prices, m.Err
	}
	return generateMockPrices(tickers), nil
}

func generateMockArticles(tickers []string) []model.Article {
	now := time.Now().UTC()
	var articles []model.Article
	for i, t := range tickers {
		articles = append(articles,
			model.Article{
				Ticker:      t,
				Title:       fmt.Sprintf("%s stock surges on strong earnings beat", t),
				URL:         fmt.Sprintf("https://example.com/%s/earnings", t),
				Source:      null.StringFrom("mock"),
				Summary:     null.StringFrom(fmt.Sprintf("%s revenue growth lifts shares in a bullish market", t)),
				PublishedAt: null.TimeFrom(now.Add(-time.Duration(i+1) * time.Hour)),
			},
			model.Article{
				Ticker:      t,
				Title:       fmt.Sprintf("Analysts warn %s could fall after downgrade", t),
				URL:         fmt.Sprintf("https://example.com/%s/downgrade", t),
				Source:      null.StringFrom("mock"),
				Summary:     null.StringFrom("Concerns over weak guidance and slowing sales"),
				PublishedAt: null.TimeFrom(now.Add(-time.Duration(i+2) * time.Hour)),
			},
		)
	}
	return articles
}

func generateMockPrices(tickers []string) []model.PriceSnapshot {
	now := time.Now().UTC()
	snaps := make([]model.PriceSnapshot, len(tickers))
	for i, t := range tickers {
		p := 100 * (1 + float64(i)*0.1)
		snaps[i] = model.PriceSnapshot{
			Ticker:   t,
			AsOf:     now,
			Open:     null.FloatFrom(p * 0.99),
			High:     null.FloatFrom(p * 1.01),
			Low:      null.FloatFrom(p * 0.98),
			Close:    null.FloatFrom(p),
			Volume:   null.FloatFrom(1000000),
			D1Change: null.FloatFrom(1.0 + float64(i)*0.5),
		}
	}
	return snaps
}
