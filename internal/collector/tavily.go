package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/guregu/null/v6"
	"github.com/phuslu/log"

	"MarketResearch/internal/model"
)

// TavilySource implements NewsSource using the Tavily search API.
type TavilySource struct {
	BaseURL     string
	APIKey      string
	MaxResults  int
	SearchDepth string
	Client      *resty.Client
	now         func() time.Time
}

// NewTavilySource creates a Tavily news source.
func NewTavilySource(apiKey string, maxResults int, searchDepth string, opts HTTPOptions) *TavilySource {
	return &TavilySource{
		BaseURL:     "https://api.tavily.com",
		APIKey:      apiKey,
		MaxResults:  maxResults,
		SearchDepth: searchDepth,
		Client:      newClient(opts),
		now:         time.Now,
	}
}

func (s *TavilySource) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	MaxResults        int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []map[string]any `json:"results"`
}

// FetchNews searches "<TICKER> stock news" for each ticker. Results published
// before the window are dropped; results without a date are kept.
func (s *TavilySource) FetchNews(ctx context.Context, tickers []string, window time.Duration) ([]model.Article, error) {
	if s.APIKey == "" {
		log.Warn().Msg("TAVILY_API_KEY not set, returning empty results")
		return nil, nil
	}

	cutoff := s.now().Add(-window)
	var articles []model.Article
	var errs []error
	for _, ticker := range tickers {
		found, err := s.search(ctx, ticker, cutoff)
		if err != nil {
			log.Error().Err(err).Str("ticker", ticker).Msg("tavily search failed")
			errs = append(errs, fmt.Errorf("tavily %s: %w", ticker, err))
			continue
		}
		log.Info().Str("ticker", ticker).Int("count", len(found)).Msg("fetched tavily results")
		articles = append(articles, found...)
	}
	return articles, errors.Join(errs...)
}

func (s *TavilySource) search(ctx context.Context, ticker string, cutoff time.Time) ([]model.Article, error) {
	var result tavilyResponse
	resp, err := s.Client.R().
		SetContext(ctx).
		SetBody(tavilyRequest{
			APIKey:            s.APIKey,
			Query:             ticker + " stock news",
			SearchDepth:       s.SearchDepth,
			IncludeAnswer:     true,
			IncludeRawContent: false,
			MaxResults:        s.MaxResults,
		}).
		SetResult(&result).
		Post(s.BaseURL + "/search")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}

	articles := make([]model.Article, 0, len(result.Results))
	for _, r := range result.Results {
		a := model.Article{
			Ticker: ticker,
			Title:  stringField(r, "title"),
			URL:    stringField(r, "url"),
			Raw:    r,
		}
		if a.URL == "" {
			continue
		}
		if src := stringField(r, "source"); src != "" {
			a.Source = null.StringFrom(src)
		}
		if content := stringField(r, "content"); content != "" {
			a.Summary = null.StringFrom(content)
		}
		if t, ok := parseTime(stringField(r, "published_date")); ok {
			if t.Before(cutoff) {
				continue
			}
			a.PublishedAt = null.TimeFrom(t)
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
