package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"MarketResearch/internal/config"
	"MarketResearch/internal/notifier"
	"MarketResearch/internal/recorder"
	"MarketResearch/internal/runner"
)

// Scheduler manages the cron-triggered research runs and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *runner.Runner
	Recorder recorder.Recorder
	Tickers  []string
	Hours    int
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler for the configured tickers.
func NewScheduler(ctx context.Context, r *runner.Runner, rec recorder.Recorder, tickers []string, hours int) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   r,
		Recorder: rec,
		Tickers:  tickers,
		Hours:    hours,
		Ctx:      ctx,
	}
}

// RegisterAll registers the scheduled research run.
func (s *Scheduler) RegisterAll(runCron string) error {
	if _, err := s.Cron.AddFunc(runCron, s.scheduledRun); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the scheduled run immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.scheduledRun()
}

func (s *Scheduler) scheduledRun() {
	if len(s.Tickers) == 0 {
		log.Warn().Msg("no tickers configured, skipping scheduled run")
		return
	}
	log.Info().Strs("tickers", s.Tickers).Msg("running scheduled research")
	if _, err := s.Runner.Run(s.Ctx, runner.Request{Tickers: s.Tickers, Hours: s.Hours}); err != nil {
		log.Error().Err(err).Msg("scheduled run")
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/run":
		if len(fields) < 2 {
			return "usage: /run TICK1,TICK2 [hours]"
		}
		req := runner.Request{Tickers: config.ParseTickers(fields[1])}
		if len(fields) > 2 {
			hours, err := strconv.Atoi(fields[2])
			if err != nil {
				return fmt.Sprintf("invalid hours %q", fields[2])
			}
			req.Hours = hours
		}
		// the runner notifies on completion
		if _, err := s.Runner.Run(ctx, req); err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return ""
	case "/status":
		if len(fields) < 2 {
			return "usage: /status <run_id>"
		}
		run, err := s.Recorder.GetRun(fields[1])
		if errors.Is(err, recorder.ErrNotFound) {
			return fmt.Sprintf("run %s not found", fields[1])
		}
		if err != nil {
			log.Error().Err(err).Msg("load run")
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatRunStatus(run)
	default:
		return notifier.FormatHelp()
	}
}
