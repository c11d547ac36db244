package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"MarketResearch/internal/analysis"
	"MarketResearch/internal/collector"
	"MarketResearch/internal/config"
	"MarketResearch/internal/embedding"
	"MarketResearch/internal/model"
	"MarketResearch/internal/recorder"
	"MarketResearch/internal/report"
)

// Request limits.
const (
	MaxTickers   = 10
	MinHours     = 1
	MaxHours     = 168
	DefaultHours = 24
)

// ErrInvalidRequest is returned for requests that fail validation.
var ErrInvalidRequest = errors.New("invalid request")

// Request asks for one research run.
type Request struct {
	Tickers []string
	Hours   int // 0 means DefaultHours
}

// ReportSaver persists a rendered report and returns its path.
type ReportSaver interface {
	Save(ctx context.Context, date string, tickers []string, markdown string) (string, error)
}

// Notifier is told about every finished run.
type Notifier interface {
	NotifyRun(ctx context.Context, state *model.RunState) error
}

// Runner executes the research pipeline for one request at a time per call;
// concurrent calls share no state.
type Runner struct {
	Collector *collector.Collector
	Engine    *analysis.Engine
	Recorder  recorder.Recorder
	Reports   ReportSaver
	Notifier  Notifier // optional
	Embedder  embedding.Embedder
	now       func() time.Time
	newID     func() string
}

// New creates a Runner. A nil recorder is replaced by a NoopRecorder.
func New(col *collector.Collector, engine *analysis.Engine, rec recorder.Recorder, reports ReportSaver, n Notifier) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Runner{
		Collector: col,
		Engine:    engine,
		Recorder:  rec,
		Reports:   reports,
		Notifier:  n,
		Embedder:  embedding.NoopEmbedder{},
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Normalize upper-cases and trims tickers, drops repeats, applies the default
// window and validates the result.
func (req Request) Normalize() (Request, error) {
	seen := make(map[string]bool, len(req.Tickers))
	var tickers []string
	for _, t := range req.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if !config.ValidTicker(t) {
			return req, fmt.Errorf("%w: ticker %q must match ^[A-Z.-]{1,6}$", ErrInvalidRequest, t)
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	if len(tickers) == 0 {
		return req, fmt.Errorf("%w: at least one ticker is required", ErrInvalidRequest)
	}
	if len(tickers) > MaxTickers {
		return req, fmt.Errorf("%w: at most %d tickers allowed", ErrInvalidRequest, MaxTickers)
	}

	hours := req.Hours
	if hours == 0 {
		hours = DefaultHours
	}
	if hours < MinHours || hours > MaxHours {
		return req, fmt.Errorf("%w: hours must be between %d and %d", ErrInvalidRequest, MinHours, MaxHours)
	}
	return Request{Tickers: tickers, Hours: hours}, nil
}

// Run executes plan, news, prices, analyze and report for req. Only an invalid
// request returns an error; stage failures are collected in the state.
func (r *Runner) Run(ctx context.Context, req Request) (*model.RunState, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	state := &model.RunState{
		RunID:           r.newID(),
		Tickers:         req.Tickers,
		TimeWindowHours: req.Hours,
		StartedAt:       r.now().UTC(),
	}
	logger := log.DefaultLogger
	logger.Context = log.NewContext(nil).Str("run_id", state.RunID).Value()

	// Step a: plan
	state.Notef("plan: fetch news & prices")
	if err := r.Recorder.CreateRun(&model.Run{
		ID:              state.RunID,
		Tickers:         state.Tickers,
		TimeWindowHours: state.TimeWindowHours,
		Status:          model.StatusRunning,
		StartedAt:       state.StartedAt,
	}); err != nil {
		logger.Error().Err(err).Msg("create run record")
	}
	logger.Info().Strs("tickers", state.Tickers).Int("hours", state.TimeWindowHours).Msg("run started")

	// Step b: news
	window := time.Duration(state.TimeWindowHours) * time.Hour
	articles, err := r.Collector.CollectNews(ctx, state.Tickers, window)
	if err != nil {
		logger.Error().Err(err).Msg("news stage failed")
		state.Fail("news", err)
	}
	state.Articles = articles
	state.Notef("news: fetched %d articles", len(articles))

	// Step c: prices
	prices, err := r.Collector.CollectPrices(ctx, state.Tickers)
	if err != nil {
		logger.Error().Err(err).Msg("prices stage failed")
		state.Fail("prices", err)
	}
	state.Prices = prices
	state.Notef("prices: fetched %d snapshots", len(prices))

	// Step d: analyze
	res := r.Engine.Score(model.Batch{Articles: state.Articles, Prices: state.Prices}, state.Tickers)
	state.Articles = res.Scored
	state.Ranked = res.Ranked
	state.Notef("analyze: scored %d articles", len(res.Scored))
	logger.Info().Int("scored", len(res.Scored)).Int("duplicates", res.Duplicates).
		Str("relevance", string(res.Method)).Msg("analysis done")
	if err := r.Recorder.RecordArticles(state.RunID, state.Articles); err != nil {
		logger.Error().Err(err).Msg("record articles")
	}
	if err := r.Recorder.RecordPrices(state.RunID, state.Prices); err != nil {
		logger.Error().Err(err).Msg("record prices")
	}
	r.embedArticles(ctx, &logger, state)

	// Step e: report
	if path, err := r.writeReport(ctx, state); err != nil {
		logger.Error().Err(err).Msg("report stage failed")
		state.Fail("report", err)
	} else {
		state.Artifacts = append(state.Artifacts, path)
		state.Notef("report: generated %s", path)
	}

	state.FinishedAt = r.now().UTC()
	if err := r.Recorder.FinishRun(state.RunID, state.Status(), state.ErrorStrings(), state.Artifacts); err != nil {
		logger.Error().Err(err).Msg("finish run record")
	}
	logger.Info().Str("status", state.Status()).Int("errors", len(state.Errors)).
		Dur("elapsed", state.FinishedAt.Sub(state.StartedAt)).Msg("run finished")

	if r.Notifier != nil {
		if err := r.Notifier.NotifyRun(ctx, state); err != nil {
			logger.Error().Err(err).Msg("send run notification")
		}
	}
	return state, nil
}

// embedArticles stores a vector per scored article. Failures are logged and
// never fail the run.
func (r *Runner) embedArticles(ctx context.Context, logger *log.Logger, state *model.RunState) {
	if r.Embedder == nil {
		return
	}
	embeddings, err := embedding.EmbedArticles(ctx, r.Embedder, state.Articles)
	switch {
	case errors.Is(err, embedding.ErrDisabled):
		return
	case err != nil:
		logger.Warn().Err(err).Str("provider", r.Embedder.Name()).Msg("embedding failed, continuing without embeddings")
		return
	}
	if err := r.Recorder.RecordEmbeddings(state.RunID, embeddings); err != nil {
		logger.Warn().Err(err).Msg("record embeddings")
		return
	}
	logger.Info().Str("provider", r.Embedder.Name()).Int("embedded", len(embeddings)).Msg("embeddings stored")
}

func (r *Runner) writeReport(ctx context.Context, state *model.RunState) (string, error) {
	if r.Reports == nil {
		return "", errors.New("no report store configured")
	}
	generated := r.now().UTC()
	md := report.Render(state, generated)
	date := generated.Format("2006-01-02")
	path, err := r.Reports.Save(ctx, date, state.Tickers, md)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	if err := r.Recorder.RecordReport(&model.ReportRecord{
		RunID:     state.RunID,
		Date:      date,
		Tickers:   state.Tickers,
		Path:      path,
		CreatedAt: generated,
	}); err != nil {
		log.Error().Err(err).Str("run_id", state.RunID).Msg("record report")
	}
	return path, nil
}
