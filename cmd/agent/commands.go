package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"MarketResearch/internal/config"
	"MarketResearch/internal/runner"
	"MarketResearch/internal/scheduler"
	"MarketResearch/internal/server"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "agent",
		Short:         "Market research agent",
		Long:          `Collects news and prices for stock tickers, scores articles by relevance, sentiment and impact, and writes a ranked research report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "Configuration file path")

	rootCmd.AddCommand(newRunCmd(&cfgPath))
	rootCmd.AddCommand(newServeCmd(&cfgPath))
	return rootCmd
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run TICK1,TICK2 [hours]",
		Short: "Run one research pass and print a summary",
		Long: `Run the pipeline once for a comma separated list of tickers.
Example: agent run AAPL,MSFT 48`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			req := runner.Request{Tickers: config.ParseTickers(args[0]), Hours: cfg.TimeWindowHours}
			if len(args) == 2 {
				hours, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid hours %q", args[1])
				}
				req.Hours = hours
			}

			a, err := build(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			state, err := a.Runner.Run(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %s\n", state.RunID, state.Status())
			for _, n := range state.Notes {
				fmt.Fprintf(out, "  %s\n", n)
			}
			for i, art := range state.Ranked {
				fmt.Fprintf(out, "%2d. [%s] %.3f %s\n", i+1, art.Ticker, art.Impact.ValueOrZero(), art.Title)
			}
			for _, e := range state.ErrorStrings() {
				fmt.Fprintf(out, "  ! %s\n", e)
			}
			return nil
		},
	}
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the scheduler and Telegram polling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			a, err := build(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			// Context for graceful shutdown
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sched := scheduler.NewScheduler(ctx, a.Runner, a.Recorder, cfg.Tickers, cfg.TimeWindowHours)
			if err := sched.RegisterAll(cfg.Schedule.RunCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			if a.Telegram != nil {
				go a.Telegram.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}

			if cfg.Schedule.RunOnStart {
				log.Info().Msg("RUN_ON_START enabled, executing research run now")
				go sched.RunNow()
			}

			log.Info().Str("addr", cfg.Server.Addr).Msg("market research agent is running, press Ctrl+C to stop")
			err = server.New(a.Runner, a.Recorder).ListenAndServe(ctx, cfg.Server.Addr)
			log.Info().Msg("market research agent stopped")
			return err
		},
	}
}
