package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/report"
	"github.com/ibeckermayer/ytsubtest/internal/scheduler"
)

func newWatchCmd(g *globals) *cobra.Command {
	var schedule string
	var timezone string
	var now bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the suite on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if schedule == "" {
				schedule = cfg.Schedule.Cron
			}
			if schedule == "" {
				return fmt.Errorf("no schedule: set schedule.cron or pass --cron")
			}

			a, closeHistory, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer closeHistory()

			s, err := scheduler.New(logger, timezone, cfg.Timing.RunTimeout.Duration)
			if err != nil {
				return err
			}

			suite := func(ctx context.Context) error {
				run := a.Run(ctx, args)
				if run.ExitCode != report.ExitOK {
					return fmt.Errorf("%s (exit %d)", report.Summary(run), run.ExitCode)
				}
				return nil
			}
			if err := s.AddJob("suite", schedule, suite); err != nil {
				return err
			}

			s.Start()
			if now {
				go s.RunNow("suite", suite)
			}
			for _, j := range s.ListJobs() {
				logger.Info("next run", zap.String("job", j.Name), zap.Time("at", j.NextRun))
			}

			<-cmd.Context().Done()
			<-s.Stop().Done()
			return exitCode(report.ExitInterrupted)
		},
	}

	cmd.Flags().StringVar(&schedule, "cron", "", `cron schedule, e.g. "@every 6h" (default from config)`)
	cmd.Flags().StringVar(&timezone, "tz", "", "timezone for the schedule (default local)")
	cmd.Flags().BoolVar(&now, "now", false, "also run once immediately")
	return cmd
}
