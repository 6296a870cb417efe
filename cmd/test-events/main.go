package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/truthschool/prepscore/internal/testevents"
	"github.com/truthschool/prepscore/pkg/logger"
)

const defaultTestTimeout = 10 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	config := testevents.DefaultConfig()
	testTimeout := defaultTestTimeout

	cmd := &cobra.Command{
		Use:   "test-events",
		Short: "Drive a prepscore instance with generated events and verify its read models",
		Long: `Generates a mixed workload of graded events, submits it concurrently to
POST /v1/events, then polls the read endpoints until every aggregate matches
the statistics computed locally from the same events.`,
		Example: `  test-events --url http://localhost:8080 --events 50000 --workers 16
  test-events --verbose --duplicates 0.2 --seed 42`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closer, err := testevents.SetupLogging(config.LogFile, config.Verbose)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
				_ = closer.Close()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, testTimeout)
			defer cancel()

			if err := testevents.Run(ctx, &config); err != nil {
				logger.Get().Error(ctx, "test failed", logger.Error(err))
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&config.BaseURL, "url", config.BaseURL, "Base URL of the service")
	f.IntVar(&config.NumEvents, "events", config.NumEvents, "Number of unique events to generate and submit")
	f.IntVar(&config.Users, "users", config.Users, "Number of simulated users")
	f.IntVar(&config.Questions, "questions", config.Questions, "Number of distinct questions")
	f.IntVar(&config.Tests, "tests", config.Tests, "Number of distinct tests")
	f.IntVar(&config.Challenges, "challenges", config.Challenges, "Number of distinct coding challenges")
	f.Float64Var(&config.DuplicateRatio, "duplicates", config.DuplicateRatio, "Share of events re-sent with the same event_id")
	f.Uint64Var(&config.Seed, "seed", config.Seed, "Generator seed")
	f.IntVar(&config.Workers, "workers", config.Workers, "Number of concurrent workers")
	f.DurationVar(&config.Timeout, "timeout", config.Timeout, "HTTP request timeout")
	f.DurationVar(&config.SettleTimeout, "settle", config.SettleTimeout, "How long to wait for read models to converge")
	f.DurationVar(&testTimeout, "deadline", testTimeout, "Overall test deadline")
	f.StringVar(&config.OutputFile, "output", "", "Output file for generated events (default: generated_events_TIMESTAMP.json)")
	f.StringVar(&config.LogFile, "log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
	f.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	return cmd
}
