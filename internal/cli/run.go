package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/app"
	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/report"
	"github.com/ibeckermayer/ytsubtest/internal/store"
	"github.com/ibeckermayer/ytsubtest/internal/types"
)

func newRunCmd(g *globals) *cobra.Command {
	var reportPath string
	var export bool
	var requireFile bool

	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run the scenario suite (all scenarios unless named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if requireFile {
				cfg.Downloads.RequireFile = true
			}

			a, closeHistory, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer closeHistory()

			run := a.Run(cmd.Context(), args)
			if err := writeRun(cmd.OutOrStdout(), run, reportPath, export, logger); err != nil {
				logger.Warn("failed to write report", zap.Error(err))
			}
			return exitCode(run.ExitCode)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "write an HTML report to this path")
	cmd.Flags().BoolVar(&export, "json", false, "save the run as JSON in the cache dir")
	cmd.Flags().BoolVar(&requireFile, "require-file", false, "fail a reported success when no file was downloaded")
	return cmd
}

// newApp builds the App, opening the run history when configured.
func newApp(cfg *config.Config, logger *zap.Logger) (*app.App, func(), error) {
	hist, err := app.OpenHistory(cfg)
	if err != nil {
		return nil, nil, err
	}
	if hist == nil {
		return app.New(cfg, logger, nil), func() {}, nil
	}
	return app.New(cfg, logger, hist), func() { hist.Close() }, nil
}

// writeRun prints the plain report and writes the optional HTML and JSON copies.
func writeRun(w io.Writer, run *types.Run, reportPath string, export bool, logger *zap.Logger) error {
	b, err := report.New()
	if err != nil {
		return err
	}
	r, err := b.Build(run)
	if err != nil {
		return err
	}
	fmt.Fprint(w, r.PlainBody)

	if reportPath != "" {
		if err := b.WriteHTML(run, reportPath); err != nil {
			return err
		}
		logger.Info("wrote report", zap.String("path", reportPath))
	}
	if export {
		path, err := store.SaveRunJSON("", run)
		if err != nil {
			return err
		}
		logger.Info("saved run", zap.String("path", path))
	}
	return nil
}
