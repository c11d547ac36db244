package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"MarketResearch/internal/model"
)

var testNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func testOptions() HTTPOptions {
	return HTTPOptions{Timeout: 5 * time.Second}
}

func TestTavilySource_FetchNews(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		var req tavilyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		queries = append(queries, req.Query)
		assert.Equal(t, "key", req.APIKey)
		assert.Equal(t, 5, req.MaxResults)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[
			{"title":"Apple beats","url":"https://a/1","content":"strong quarter","published_date":"2025-01-10T08:00:00Z","score":0.9},
			{"title":"Old news","url":"https://a/2","content":"stale","published_date":"2025-01-01T08:00:00Z"},
			{"title":"Undated","url":"https://a/3"},
			{"title":"No link"}
		]}`)
	}))
	defer srv.Close()

	src := NewTavilySource("key", 5, "basic", testOptions())
	src.BaseURL = srv.URL
	src.now = func() time.Time { return testNow }

	articles, err := src.FetchNews(context.Background(), []string{"AAPL"}, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL stock news"}, queries)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Equal(t, "https://a/1", first.URL)
	assert.Equal(t, "strong quarter", first.Summary.ValueOrZero())
	assert.True(t, first.PublishedAt.Valid)
	assert.Equal(t, 0.9, first.Raw["score"])

	assert.Equal(t, "https://a/3", articles[1].URL)
	assert.False(t, articles[1].PublishedAt.Valid)
}

func TestTavilySource_MissingKey(t *testing.T) {
	src := NewTavilySource("", 5, "basic", testOptions())
	articles, err := src.FetchNews(context.Background(), []string{"AAPL"}, time.Hour)
	assert.NoError(t, err)
	assert.Empty(t, articles)
}

func TestTavilySource_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Query == "MSFT stock news" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"title":"Apple","url":"https://a/1"}]}`)
	}))
	defer srv.Close()

	src := NewTavilySource("key", 5, "basic", testOptions())
	src.BaseURL = srv.URL

	articles, err := src.FetchNews(context.Background(), []string{"AAPL", "MSFT"}, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MSFT")
	assert.Len(t, articles, 1)
}

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Markets</title>
<item><title>Nvidia and Apple rally</title><link>https://f/1</link>
<description>&lt;p&gt;Shares of &lt;b&gt;AAPL&lt;/b&gt; rose&lt;/p&gt;</description>
<pubDate>Fri, 10 Jan 2025 09:00:00 +0000</pubDate></item>
<item><title>MSFT slides</title><link>https://f/2</link><description>Cloud worries</description>
<pubDate>Mon, 06 Jan 2025 09:00:00 +0000</pubDate></item>
<item><title>Unrelated macro story</title><link>https://f/3</link></item>
<item><title>TSLA without link</title></item>
<item><title>msft and aapl</title><link>https://f/4</link></item>
</channel></rss>`

func TestRSSSource_FetchNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()

	src := NewRSSSource([]string{srv.URL}, 20, testOptions())
	src.now = func() time.Time { return testNow }

	articles, err := src.FetchNews(context.Background(), []string{"msft", "AAPL", "TSLA"}, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "AAPL", articles[0].Ticker)
	assert.Equal(t, "Shares of AAPL rose", articles[0].Summary.ValueOrZero())
	assert.Equal(t, srv.URL, articles[0].Source.ValueOrZero())
	assert.True(t, articles[0].PublishedAt.Valid)

	// tickers are tried in sorted order, so AAPL wins over MSFT
	assert.Equal(t, "https://f/4", articles[1].URL)
	assert.Equal(t, "AAPL", articles[1].Ticker)
}

func TestRSSSource_FeedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewRSSSource([]string{srv.URL}, 20, testOptions())
	articles, err := src.FetchNews(context.Background(), []string{"AAPL"}, time.Hour)
	assert.Error(t, err)
	assert.Empty(t, articles)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}

func TestAlphaVantageSource_FetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			fmt.Fprint(w, `{"Global Quote":{"01. symbol":"AAPL","02. open":"148.00","03. high":"151.00",
				"04. low":"147.50","05. price":"150.00","06. volume":"1000","07. latest trading day":"2025-01-10",
				"08. previous close":"120.00"}}`)
		case "ZERO":
			fmt.Fprint(w, `{"Global Quote":{"05. price":"10.00","08. previous close":"0"}}`)
		default:
			fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage"}`)
		}
	}))
	defer srv.Close()

	src := NewAlphaVantageSource("key", 0, testOptions())
	src.BaseURL = srv.URL
	src.Limiter = rate.NewLimiter(rate.Inf, 1)

	snaps, err := src.FetchPrices(context.Background(), []string{"AAPL", "ZERO", "THROTTLED"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	aapl := snaps[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.InDelta(t, 150.0, aapl.Close.Float64, 1e-9)
	assert.InDelta(t, 25.0, aapl.D1Change.Float64, 1e-9)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), aapl.AsOf)

	assert.False(t, snaps[1].D1Change.Valid)
}

func dailyBars(closes []float64, volumes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i := range closes {
		bars[i] = model.OHLCV{
			Time:   testNow.AddDate(0, 0, i-len(closes)),
			Close:  closes[i],
			Volume: volumes[i],
		}
	}
	return bars
}

func TestSnapshotFromBars(t *testing.T) {
	closes := make([]float64, 22)
	volumes := make([]float64, 22)
	for i := range closes {
		closes[i] = 100
		volumes[i] = float64(1000 + (i%2)*200)
	}
	closes[16] = 80
	closes[20] = 100
	closes[21] = 110
	volumes[21] = 1500

	snap, ok := SnapshotFromBars("AAPL", dailyBars(closes, volumes))
	require.True(t, ok)
	assert.InDelta(t, 110.0, snap.Close.Float64, 1e-9)
	assert.InDelta(t, 10.0, snap.D1Change.Float64, 1e-9)
	assert.InDelta(t, 37.5, snap.D5Change.Float64, 1e-9)
	require.True(t, snap.VolZ.Valid)
	assert.Greater(t, snap.VolZ.Float64, 0.0)
}

func TestSnapshotFromBars_ShortHistory(t *testing.T) {
	snap, ok := SnapshotFromBars("AAPL", dailyBars([]float64{100}, []float64{10}))
	require.True(t, ok)
	assert.False(t, snap.D1Change.Valid)
	assert.False(t, snap.D5Change.Valid)
	assert.False(t, snap.VolZ.Valid)

	_, ok = SnapshotFromBars("AAPL", nil)
	assert.False(t, ok)
}

func TestYahooSource_FetchPrices(t *testing.T) {
	var symbols []string
	src := NewYahooSource()
	src.Bars = func(_ context.Context, symbol string, _, _ time.Time) ([]model.OHLCV, error) {
		symbols = append(symbols, symbol)
		if symbol == "BAD" {
			return nil, errors.New("boom")
		}
		return dailyBars([]float64{100, 102}, []float64{1, 1}), nil
	}

	snaps, err := src.FetchPrices(context.Background(), []string{"SPX", "BAD"})
	require.Error(t, err)
	assert.Equal(t, []string{"^GSPC", "BAD"}, symbols)
	require.Len(t, snaps, 1)
	assert.Equal(t, "SPX", snaps[0].Ticker)
	assert.InDelta(t, 2.0, snaps[0].D1Change.Float64, 1e-9)
}

func TestYahooSource_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var symbols []string
	src := NewYahooSource()
	src.Bars = func(_ context.Context, symbol string, _, _ time.Time) ([]model.OHLCV, error) {
		symbols = append(symbols, symbol)
		cancel()
		return dailyBars([]float64{100, 102}, []float64{1, 1}), nil
	}

	snaps, err := src.FetchPrices(ctx, []string{"AAPL", "MSFT", "NVDA"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"AAPL"}, symbols)
	assert.Len(t, snaps, 1)
}

func TestChartBars_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bars, err := chartBars(ctx, "AAPL", testNow.AddDate(0, 0, -5), testNow)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, bars)
}

func TestCollector_CollectNews(t *testing.T) {
	primary := &MockNewsSource{Articles: []model.Article{
		{Ticker: "AAPL", Title: "a", URL: "https://x/1"},
	}}
	fallback := &MockNewsSource{Articles: []model.Article{
		{Ticker: "AAPL", Title: "dup", URL: "https://x/1"},
		{Ticker: "AAPL", Title: "b", URL: "https://x/2"},
	}}

	c := NewCollector(primary, fallback, nil, 0)
	assert.Equal(t, DefaultMinResults, c.MinResults)

	articles, err := c.CollectNews(context.Background(), []string{"AAPL"}, time.Hour)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "a", articles[0].Title)
	assert.Equal(t, "b", articles[1].Title)
}

func TestCollector_SkipsFallbackWhenEnough(t *testing.T) {
	primary := &MockNewsSource{Articles: []model.Article{
		{URL: "https://x/1"}, {URL: "https://x/2"},
	}}
	fallback := &MockNewsSource{Err: errors.New("should not be called")}

	articles, err := NewCollector(primary, fallback, nil, 2).CollectNews(context.Background(), nil, time.Hour)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestCollector_KeepsPartialResults(t *testing.T) {
	primary := &MockNewsSource{
		Articles: []model.Article{{URL: "https://x/1"}},
		Err:      errors.New("tavily MSFT: status 500"),
	}
	articles, err := NewCollector(primary, nil, nil, 1).CollectNews(context.Background(), nil, time.Hour)
	assert.Error(t, err)
	assert.Len(t, articles, 1)
}

func TestCollector_CollectPrices(t *testing.T) {
	c := NewCollector(nil, nil, &MockPriceSource{}, 0)
	snaps, err := c.CollectPrices(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "MSFT", snaps[1].Ticker)
}
