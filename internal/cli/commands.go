package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/ytsubtest/internal/app"
	"github.com/ibeckermayer/ytsubtest/internal/report"
)

func newLocateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Launch the browser and print the extension ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			res, err := app.New(cfg, logger, nil).Locate(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.ID)
			if res.URL != "" {
				fmt.Fprintf(out, "  answered: %s\n", res.URL)
			}
			if !res.Verified {
				fmt.Fprintln(out, "  unverified: no probe page answered, first extension target taken")
			}
			for _, a := range res.Attempts {
				fmt.Fprintf(out, "  tried %s\n", a)
			}
			return nil
		},
	}
}

func newPreflightCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check the extension directory without launching a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := g.logger()
			if err != nil {
				return err
			}

			rep := app.New(cfg, logger, nil).Preflight()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "extension: %s\n", rep.Dir)
			for _, f := range rep.Findings {
				mark := "ok  "
				if !f.OK {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "  [%s] %-9s %s\n", mark, f.Check, f.Message)
			}
			if !rep.OK() {
				return exitCode(report.ExitFailed)
			}
			return nil
		},
	}
}

func newCleanCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove leftover subtitle downloads and the browser profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := g.logger()
			if err != nil {
				return err
			}

			removed, warnings := app.New(cfg, logger, nil).Clean()
			out := cmd.OutOrStdout()
			for _, p := range removed {
				fmt.Fprintf(out, "removed %s\n", p)
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
			}
			if len(removed) == 0 && len(warnings) == 0 {
				fmt.Fprintln(out, "nothing to clean")
			}
			return nil
		},
	}
}
