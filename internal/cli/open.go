package cli

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/store"
)

func newOpenCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|downloads|cache>",
		Short:     "Open the config file or a working directory",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "downloads", "cache"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.openTarget(cmd, args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot open %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "opening %s\n", path)
			return browser.OpenFile(path)
		},
	}
}

func (g *globals) openTarget(cmd *cobra.Command, target string) (string, error) {
	switch target {
	case "config":
		if g.configPath != "" {
			return g.configPath, nil
		}
		return config.ConfigPath()
	case "downloads":
		cfg, err := g.loadConfig(cmd)
		if err != nil {
			return "", err
		}
		return cfg.Downloads.Dir, nil
	case "cache":
		return store.RunsCacheDir()
	default:
		return "", fmt.Errorf("unknown target %q (want config, downloads or cache)", target)
	}
}
