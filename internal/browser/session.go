package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/downloads"
	"github.com/ibeckermayer/ytsubtest/internal/extension"
)

// ErrLaunch wraps every failure to bring the browser up. It is fatal for a run.
var ErrLaunch = errors.New("browser launch failed")

// Session is one running browser with the extension loaded and a single
// page that every UI step drives.
type Session struct {
	logger  *zap.Logger
	paths   Paths
	pattern string

	allocCancel context.CancelFunc
	pageCtx     context.Context
	pageCancel  context.CancelFunc

	mu          sync.Mutex
	extensionID string
	stopped     bool
}

// CleanupResult records what Stop removed and every non-fatal problem it hit.
type CleanupResult struct {
	Removed  []string
	Warnings []error
}

// Start launches the browser, opens the page, allows downloads into the
// download dir and waits (bounded by the settle timeout) for an extension
// target to appear.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("browser")

	if err := os.MkdirAll(cfg.Downloads.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	execPath, err := ResolveExecPath(cfg.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	paths := Paths{
		Extension:  cfg.Extension.Path,
		Downloads:  cfg.Downloads.Dir,
		Profile:    cfg.Browser.ProfileDir,
		Executable: execPath,
	}
	logger.Info("launching browser",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.String("exec", execPath),
		zap.Strings("args", CommandLine(cfg.Browser, paths)))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(cfg.Browser, paths)...)

	sugar := logger.Sugar()
	pageCtx, pageCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run starts the browser process.
	err = chromedp.Run(pageCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(cfg.Downloads.Dir).
			WithEventsEnabled(true),
	)
	if err != nil {
		pageCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	s := &Session{
		logger:      logger,
		paths:       paths,
		pattern:     cfg.Downloads.SubtitlePattern,
		allocCancel: allocCancel,
		pageCtx:     pageCtx,
		pageCancel:  pageCancel,
	}

	if err := s.waitForExtension(cfg.Timing.SettleTimeout.Duration, cfg.Timing.PollInterval.Duration); err != nil {
		logger.Warn("no extension target yet", zap.Error(err))
	}

	return s, nil
}

// waitForExtension polls the target list until an extension target shows
// up. It replaces a fixed settle sleep; timing out is reported but the
// locator makes the final call.
func (s *Session) waitForExtension(timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(s.pageCtx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		targets, err := s.Targets(ctx)
		if err == nil && len(ExtensionTargets(targets)) > 0 {
			s.logger.Debug("extension target ready")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Context returns the chromedp context of the driven page.
func (s *Session) Context() context.Context {
	return s.pageCtx
}

// ExtensionPath returns the unpacked extension directory.
func (s *Session) ExtensionPath() string {
	return s.paths.Extension
}

// DownloadDir returns the directory downloads are written to.
func (s *Session) DownloadDir() string {
	return s.paths.Downloads
}

// ExtensionID returns the cached extension ID, if resolved.
func (s *Session) ExtensionID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extensionID, s.extensionID != ""
}

// SetExtensionID caches id. Once set, the ID is fixed for the session and
// later calls return false.
func (s *Session) SetExtensionID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extensionID != "" {
		return false
	}
	s.extensionID = id
	return true
}

// Targets lists every target the browser currently exposes.
func (s *Session) Targets(ctx context.Context) ([]*target.Info, error) {
	return chromedp.Targets(ctx)
}

// NewTab opens a throwaway tab in the same browser. Cancelling the returned
// function closes it.
func (s *Session) NewTab() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(s.pageCtx)
}

// Stop closes the browser and removes the run's artifacts. It is safe to
// call more than once; nothing it does is fatal.
func (s *Session) Stop() CleanupResult {
	s.mu.Lock()
	first := !s.stopped
	s.stopped = true
	s.mu.Unlock()

	var res CleanupResult
	if first {
		s.logger.Info("closing browser")
		if err := chromedp.Cancel(s.pageCtx); err != nil && !errors.Is(err, context.Canceled) {
			res.Warnings = append(res.Warnings, fmt.Errorf("failed to close browser: %w", err))
		}
		s.pageCancel()
		s.allocCancel()
	}

	removed, warnings := CleanArtifacts(s.paths.Downloads, s.pattern, s.paths.Profile)
	res.Removed = removed
	res.Warnings = append(res.Warnings, warnings...)
	return res
}

// CleanArtifacts deletes subtitle outputs and the per-run profile dir.
func CleanArtifacts(downloadDir, pattern, profileDir string) ([]string, []error) {
	return downloads.Clean(downloadDir, pattern, profileDir)
}

// ExtensionTargets returns the targets whose URL uses the extension scheme.
func ExtensionTargets(targets []*target.Info) []*target.Info {
	var out []*target.Info
	for _, t := range targets {
		if _, ok := extension.IDFromURL(t.URL); ok {
			out = append(out, t)
		}
	}
	return out
}
