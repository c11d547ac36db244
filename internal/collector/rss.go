package collector

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/guregu/null/v6"
	"github.com/phuslu/log"

	"MarketResearch/internal/model"
)

const maxSummaryRunes = 500

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// RSSSource implements NewsSource over a fixed list of finance RSS feeds.
// An item is attributed to the first ticker, in sorted order, whose symbol
// appears in its title or summary.
type RSSSource struct {
	Feeds        []string
	ItemsPerFeed int
	Client       *resty.Client
	now          func() time.Time
}

// NewRSSSource creates an RSS news source.
func NewRSSSource(feeds []string, itemsPerFeed int, opts HTTPOptions) *RSSSource {
	return &RSSSource{
		Feeds:        feeds,
		ItemsPerFeed: itemsPerFeed,
		Client:       newClient(opts),
		now:          time.Now,
	}
}

func (s *RSSSource) Name() string { return "rss" }

func (s *RSSSource) FetchNews(ctx context.Context, tickers []string, window time.Duration) ([]model.Article, error) {
	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			symbols = append(symbols, t)
		}
	}
	sort.Strings(symbols)
	cutoff := s.now().Add(-window)

	var articles []model.Article
	var errs []error
	for _, feedURL := range s.Feeds {
		items, err := s.fetchFeed(ctx, feedURL)
		if err != nil {
			log.Warn().Err(err).Str("feed", feedURL).Msg("failed to fetch rss feed")
			errs = append(errs, fmt.Errorf("rss %s: %w", feedURL, err))
			continue
		}
		if s.ItemsPerFeed > 0 && len(items) > s.ItemsPerFeed {
			items = items[:s.ItemsPerFeed]
		}
		for _, item := range items {
			if a, ok := itemArticle(item, feedURL, symbols, cutoff); ok {
				articles = append(articles, a)
			}
		}
	}
	log.Info().Int("count", len(articles)).Msg("fetched rss articles")
	return articles, errors.Join(errs...)
}

func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string) ([]rssItem, error) {
	resp, err := s.Client.R().SetContext(ctx).Get(feedURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}
	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return feed.Channel.Items, nil
}

func itemArticle(item rssItem, feedURL string, symbols []string, cutoff time.Time) (model.Article, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return model.Article{}, false
	}
	title := strings.TrimSpace(item.Title)
	summary := stripHTML(item.Description)

	upperTitle, upperSummary := strings.ToUpper(title), strings.ToUpper(summary)
	ticker := ""
	for _, sym := range symbols {
		if strings.Contains(upperTitle, sym) || strings.Contains(upperSummary, sym) {
			ticker = sym
			break
		}
	}
	if ticker == "" {
		return model.Article{}, false
	}

	a := model.Article{
		Ticker: ticker,
		Title:  title,
		URL:    link,
		Source: null.StringFrom(feedURL),
	}
	if t, ok := parseTime(item.PubDate); ok {
		if t.Before(cutoff) {
			return model.Article{}, false
		}
		a.PublishedAt = null.TimeFrom(t)
	}
	if summary != "" {
		a.Summary = null.StringFrom(truncateRunes(summary, maxSummaryRunes))
	}
	return a, true
}

// stripHTML reduces an HTML fragment to its collapsed text content.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
