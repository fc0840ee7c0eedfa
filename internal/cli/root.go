// Package cli is the ytsubtest command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/logging"
	"github.com/ibeckermayer/ytsubtest/internal/report"
)

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(code int) error {
	if code == report.ExitOK {
		return nil
	}
	return &exitError{code: code}
}

// Execute runs the command line and returns the process exit code.
// SIGINT cancels the running command and yields 130.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	return codeFor(ctx, err, stderr)
}

func codeFor(ctx context.Context, err error, stderr io.Writer) int {
	if err == nil {
		return report.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "Error:", ee.err)
		}
		return ee.code
	}
	if ctx.Err() != nil {
		return report.ExitInterrupted
	}
	fmt.Fprintln(stderr, "Error:", err)
	return report.ExitFailed
}

// globals are the persistent flags.
type globals struct {
	configPath string
	headless   bool
	logLevel   string
	dev        bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "ytsubtest",
		Short: "End-to-end tests for the YouTube subtitle downloader extension",
		Long: "ytsubtest launches Chrome with the unpacked subtitle extension, finds its ID,\n" +
			"drives the options page and checks the status message and downloaded files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default is the user config dir)")
	cmd.PersistentFlags().BoolVar(&g.headless, "headless", false, "run the browser headless (overrides config)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&g.dev, "dev", false, "development logging")

	cmd.AddCommand(newRunCmd(g))
	cmd.AddCommand(newLocateCmd(g))
	cmd.AddCommand(newPreflightCmd(g))
	cmd.AddCommand(newCleanCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newHistoryCmd(g))
	cmd.AddCommand(newOpenCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	return cmd
}

// loadConfig reads the config, writing the defaults on first run when no
// explicit path was given. Relative paths resolve against the working dir.
func (g *globals) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || g.configPath != "" {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		// First run - create default config
		cfg = config.Default()
		if err := cfg.Save(""); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not save default config: %v\n", err)
		} else if path, err := config.ConfigPath(); err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Created default config at: %s\n", path)
		}
	}

	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = g.headless
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := cfg.Resolve(wd); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (g *globals) logger() (*zap.Logger, error) {
	return logging.New(g.logLevel, g.dev)
}

// setup loads the config and builds the logger.
func (g *globals) setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := g.logger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
