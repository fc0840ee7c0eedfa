package browser

import (
	"fmt"
	"os"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/config"
)

// ResolveExecPath picks the browser binary: the configured path, then a
// browser found on the system, then (when allowed) a Chromium build fetched
// into rod's cache. An empty result leaves the lookup to chromedp.
func ResolveExecPath(b config.BrowserConfig, logger *zap.Logger) (string, error) {
	if b.ExecPath != "" {
		if _, err := os.Stat(b.ExecPath); err != nil {
			return "", fmt.Errorf("browser executable %s: %w", b.ExecPath, err)
		}
		return b.ExecPath, nil
	}

	if path, ok := launcher.LookPath(); ok {
		logger.Debug("found browser on system", zap.String("path", path))
		return path, nil
	}

	if !b.Download {
		return "", nil
	}

	logger.Info("no browser found, downloading Chromium")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("failed to download Chromium: %w", err)
	}
	return path, nil
}
