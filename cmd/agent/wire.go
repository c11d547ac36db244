package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"MarketResearch/internal/analysis"
	"MarketResearch/internal/collector"
	"MarketResearch/internal/config"
	"MarketResearch/internal/embedding"
	"MarketResearch/internal/logging"
	"MarketResearch/internal/notifier"
	"MarketResearch/internal/recorder"
	"MarketResearch/internal/report"
	"MarketResearch/internal/runner"
)

type app struct {
	Runner   *runner.Runner
	Recorder recorder.Recorder
	Telegram *notifier.TelegramNotifier
}

func (a *app) Close() {
	if err := a.Recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}

func build(cfg *config.Config) (*app, error) {
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	httpOpts := collector.DefaultHTTPOptions()
	httpOpts.Timeout = time.Duration(cfg.HTTP.TimeoutSec) * time.Second
	httpOpts.Proxy = cfg.HTTP.Proxy

	news, fallback := newsSources(cfg, httpOpts)
	prices := priceSource(cfg, httpOpts)
	fallbackName := "none"
	if fallback != nil {
		fallbackName = fallback.Name()
	}
	log.Info().Str("news", news.Name()).Str("fallback", fallbackName).Str("prices", prices.Name()).Msg("data sources")

	col := collector.NewCollector(news, fallback, prices, cfg.News.MinResults)
	engine := analysis.NewEngine(analysis.Options{TopN: cfg.Analysis.TopN, LegacySentiment: cfg.Analysis.LegacySentiment})

	// Init recorder
	var rec recorder.Recorder
	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		log.Warn().Err(err).Msg("create database dir")
	}
	if sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath); err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
	}

	a := &app{Recorder: rec}
	var n runner.Notifier
	if cfg.Telegram.BotToken != "" {
		a.Telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.HTTP.Proxy)
		n = a.Telegram
	}
	a.Runner = runner.New(col, engine, rec, report.NewStore(cfg.Report.Dir, cfg.Report.HTMLEnabled), n)
	a.Runner.Embedder = newEmbedder(cfg)
	return a, nil
}

// newsSources returns the primary news source and its fallback. The mock
// source runs offline, so it gets no fallback.
func newsSources(cfg *config.Config, opts collector.HTTPOptions) (collector.NewsSource, collector.NewsSource) {
	if cfg.News.Source == "mock" {
		return &collector.MockNewsSource{}, nil
	}
	news := collector.NewTavilySource(cfg.News.TavilyAPIKey, cfg.News.MaxResults, cfg.News.SearchDepth, opts)
	rss := collector.NewRSSSource(cfg.News.RSSFeeds, cfg.News.RSSPerFeedLimit, opts)
	return news, rss
}

func priceSource(cfg *config.Config, opts collector.HTTPOptions) collector.PriceSource {
	switch cfg.Prices.Source {
	case "yahoo":
		return collector.NewYahooSource()
	case "mock":
		return &collector.MockPriceSource{}
	default:
		return collector.NewAlphaVantageSource(cfg.Prices.AlphaVantageAPIKey, cfg.Prices.RequestsPerMinute, opts)
	}
}

// newEmbedder falls back to the noop embedder when the provider is unset,
// has no key, or cannot be initialized.
func newEmbedder(cfg *config.Config) embedding.Embedder {
	c := cfg.Embedding
	if c.Provider == "none" || c.Provider == "" {
		return embedding.NoopEmbedder{}
	}
	if c.APIKey == "" {
		log.Warn().Str("provider", c.Provider).Msg("embedding api key not set, embeddings disabled")
		return embedding.NoopEmbedder{}
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSec) * time.Second
	switch c.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(c.BaseURL, c.APIKey, c.Model, timeout)
	case "gemini":
		g, err := embedding.NewGeminiEmbedder(context.Background(), c.APIKey, c.Model, c.Dimension, timeout)
		if err != nil {
			log.Warn().Err(err).Msg("init gemini embedder failed, embeddings disabled")
			return embedding.NoopEmbedder{}
		}
		return g
	}
	return embedding.NoopEmbedder{}
}
