package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TICKERS", "PRICE_SOURCE", "NEWS_MAX_RESULTS", "NEWS_SEARCH_DEPTH", "HTTP_TIMEOUT_SEC", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"NEWS_SOURCE", "EMBED_PROVIDER", "EMBEDDING_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.TimeWindowHours)
	assert.Equal(t, 5, cfg.News.MaxResults)
	assert.Equal(t, "basic", cfg.News.SearchDepth)
	assert.Equal(t, DefaultRSSFeeds, cfg.News.RSSFeeds)
	assert.Equal(t, 20, cfg.Analysis.TopN)
	assert.Equal(t, "alphavantage", cfg.Prices.Source)
	assert.Equal(t, 40, cfg.HTTP.TimeoutSec)
	assert.Equal(t, "tavily", cfg.News.Source)
	assert.Equal(t, "none", cfg.Embedding.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmbeddingFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBED_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("NEWS_SOURCE", "mock")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "mock", cfg.News.Source)
	assert.NoError(t, cfg.Validate())

	t.Setenv("EMBEDDING_API_KEY", "explicit")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Embedding.APIKey)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
tickers: [AAPL, MSFT]
time_window_hours: 48
analysis:
  top_n: 10
  legacy_sentiment: true
prices:
  source: yahoo
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	clearEnv(t)
	t.Setenv("NEWS_MAX_RESULTS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Tickers)
	assert.Equal(t, 48, cfg.TimeWindowHours)
	assert.Equal(t, 10, cfg.Analysis.TopN)
	assert.True(t, cfg.Analysis.LegacySentiment)
	assert.Equal(t, "yahoo", cfg.Prices.Source)
	assert.Equal(t, 8, cfg.News.MaxResults)

	t.Setenv("TICKERS", " nvda, tsla ,")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "TSLA"}, cfg.Tickers)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tickers: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.applyDefaults()
		return c
	}

	c := base()
	c.Tickers = []string{"aapl"}
	assert.Error(t, c.Validate())

	c = base()
	c.TimeWindowHours = 200
	assert.Error(t, c.Validate())

	c = base()
	c.Prices.Source = "bloomberg"
	assert.Error(t, c.Validate())

	c = base()
	c.News.Source = "reuters"
	assert.Error(t, c.Validate())

	c = base()
	c.Embedding.Provider = "hf"
	assert.Error(t, c.Validate())

	c = base()
	c.Telegram.BotToken = "token"
	assert.Error(t, c.Validate())

	c = base()
	c.Tickers = []string{"BRK.B", "BF-B"}
	assert.NoError(t, c.Validate())
}

func TestValidTicker(t *testing.T) {
	assert.True(t, ValidTicker("AAPL"))
	assert.True(t, ValidTicker("BRK.B"))
	assert.False(t, ValidTicker("TOOLONGX"))
	assert.False(t, ValidTicker("AAPL1"))
	assert.False(t, ValidTicker(""))
}
