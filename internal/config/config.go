package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultRSSFeeds are polled when the primary news source returns too little.
var DefaultRSSFeeds = []string{
	"https://feeds.finance.yahoo.com/rss/2.0/headline",
	"https://www.cnbc.com/id/100003114/device/rss/rss.html",
	"https://feeds.marketwatch.com/marketwatch/topstories/",
}

var tickerPattern = regexp.MustCompile(`^[A-Z.\-]{1,6}$`)

// ValidTicker reports whether s is an upper-case symbol of 1-6 letters, dots or hyphens.
func ValidTicker(s string) bool {
	return tickerPattern.MatchString(s)
}

// Config holds all application configuration.
type Config struct {
	Tickers         []string `yaml:"tickers"`
	TimeWindowHours int      `yaml:"time_window_hours"`
	News            struct {
		Source          string   `yaml:"source"`
		TavilyAPIKey    string   `yaml:"tavily_api_key"`
		MaxResults      int      `yaml:"max_results"`
		SearchDepth     string   `yaml:"search_depth"`
		MinResults      int      `yaml:"min_results"`
		RSSFeeds        []string `yaml:"rss_feeds"`
		RSSPerFeedLimit int      `yaml:"rss_per_feed_limit"`
	} `yaml:"news"`
	Prices struct {
		Source             string `yaml:"source"`
		AlphaVantageAPIKey string `yaml:"alphavantage_api_key"`
		RequestsPerMinute  int    `yaml:"requests_per_minute"`
	} `yaml:"prices"`
	HTTP struct {
		TimeoutSec int    `yaml:"timeout_sec"`
		Proxy      string `yaml:"proxy"`
	} `yaml:"http"`
	Analysis struct {
		TopN            int  `yaml:"top_n"`
		LegacySentiment bool `yaml:"legacy_sentiment"`
	} `yaml:"analysis"`
	Embedding struct {
		Provider  string `yaml:"provider"`
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url"`
		Dimension int    `yaml:"dimension"`
	} `yaml:"embedding"`
	Report struct {
		Dir         string `yaml:"dir"`
		HTMLEnabled bool   `yaml:"html_enabled"`
	} `yaml:"report"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RunCron    string `yaml:"run_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads .env, then the YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = ParseTickers(v)
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.News.TavilyAPIKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.Prices.AlphaVantageAPIKey = v
	}
	if v := os.Getenv("NEWS_SOURCE"); v != "" {
		c.News.Source = v
	}
	if v := os.Getenv("EMBED_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if c.Embedding.APIKey == "" {
		switch c.Embedding.Provider {
		case "openai":
			c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			c.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if v := os.Getenv("PRICE_SOURCE"); v != "" {
		c.Prices.Source = v
	}
	if v := envInt("HTTP_TIMEOUT_SEC"); v > 0 {
		c.HTTP.TimeoutSec = v
	}
	if v := envInt("NEWS_MAX_RESULTS"); v > 0 {
		c.News.MaxResults = v
	}
	if v := os.Getenv("NEWS_SEARCH_DEPTH"); v != "" {
		c.News.SearchDepth = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.HTTP.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("REPORT_DIR"); v != "" {
		c.Report.Dir = v
	}
	if v := os.Getenv("REPORT_HTML_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Report.HTMLEnabled = b
		}
	}
	if v := os.Getenv("CRON_RUN"); v != "" {
		c.Schedule.RunCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "true"
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.TimeWindowHours == 0 {
		c.TimeWindowHours = 24
	}
	if c.News.Source == "" {
		c.News.Source = "tavily"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "none"
	}
	if c.News.MaxResults == 0 {
		c.News.MaxResults = 5
	}
	if c.News.SearchDepth == "" {
		c.News.SearchDepth = "basic"
	}
	if c.News.MinResults == 0 {
		c.News.MinResults = 5
	}
	if len(c.News.RSSFeeds) == 0 {
		c.News.RSSFeeds = DefaultRSSFeeds
	}
	if c.News.RSSPerFeedLimit == 0 {
		c.News.RSSPerFeedLimit = 20
	}
	if c.Prices.Source == "" {
		c.Prices.Source = "alphavantage"
	}
	if c.Prices.RequestsPerMinute == 0 {
		c.Prices.RequestsPerMinute = 5
	}
	if c.HTTP.TimeoutSec == 0 {
		c.HTTP.TimeoutSec = 40
	}
	if c.Analysis.TopN == 0 {
		c.Analysis.TopN = 20
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "data/reports"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/market_research.db"
	}
	if c.Schedule.RunCron == "" {
		c.Schedule.RunCron = "0 0 7 * * 1-5"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	for _, t := range c.Tickers {
		if !ValidTicker(t) {
			return fmt.Errorf("tickers: invalid symbol %q", t)
		}
	}
	if c.TimeWindowHours < 1 || c.TimeWindowHours > 168 {
		return fmt.Errorf("time_window_hours must be between 1 and 168")
	}
	if c.Analysis.TopN <= 0 {
		return fmt.Errorf("analysis.top_n must be positive")
	}
	switch c.News.Source {
	case "tavily", "mock":
	default:
		return fmt.Errorf("news.source %q is not one of tavily, mock", c.News.Source)
	}
	switch c.Embedding.Provider {
	case "none", "openai", "gemini":
	default:
		return fmt.Errorf("embedding.provider %q is not one of none, openai, gemini", c.Embedding.Provider)
	}
	switch c.Prices.Source {
	case "alphavantage", "yahoo", "mock":
	default:
		return fmt.Errorf("prices.source %q is not one of alphavantage, yahoo, mock", c.Prices.Source)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// ParseTickers splits a comma separated list, trimming and upper-casing each symbol.
func ParseTickers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
