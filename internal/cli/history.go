package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/ytsubtest/internal/store"
)

func newHistoryCmd(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or the outcomes of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("history is disabled: set history.path in the config")
			}

			s, err := store.New(cfg.History.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if len(args) == 1 {
				id, err := s.FindRun(args[0])
				if err != nil {
					return err
				}
				outcomes, err := s.Outcomes(id)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "SCENARIO\tRESULT\tVERDICT\tMESSAGE")
				for _, o := range outcomes {
					result := "pass"
					if !o.Passed {
						result = "FAIL"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Scenario, result, o.Verdict, o.Message)
				}
				return nil
			}

			runs, err := s.RecentRuns(limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "RUN\tSTARTED\tPASSED\tFAILED\tEXIT\tNOTE")
			for _, r := range runs {
				note := r.Fatal
				if r.Interrupted {
					note = "interrupted"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
					shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04"),
					r.Passed, r.Failed, r.ExitCode, note)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
