// Package app runs the scenario suite against one browser session.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/browser"
	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/driver"
	"github.com/ibeckermayer/ytsubtest/internal/extension"
	"github.com/ibeckermayer/ytsubtest/internal/locator"
	"github.com/ibeckermayer/ytsubtest/internal/report"
	"github.com/ibeckermayer/ytsubtest/internal/scenario"
	"github.com/ibeckermayer/ytsubtest/internal/store"
	"github.com/ibeckermayer/ytsubtest/internal/types"
)

// ErrBusy is returned when a run is requested while another holds the browser.
var ErrBusy = errors.New("a browser session is already active")

// History is where finished runs are recorded.
type History interface {
	SaveRun(run *types.Run) error
}

// App holds the application state.
type App struct {
	logger  *zap.Logger
	log     *zap.Logger
	history History // nil when history is disabled

	mu     sync.Mutex
	config *config.Config
	active bool
}

// New creates a new App instance. history may be nil.
func New(cfg *config.Config, logger *zap.Logger, history History) *App {
	return &App{
		config:  cfg,
		logger:  logger,
		log:     logger.Named("app"),
		history: history,
	}
}

// OpenHistory opens the run history configured in cfg, or returns nil when
// it is disabled.
func OpenHistory(cfg *config.Config) (*store.Store, error) {
	if cfg.History.Path == "" {
		return nil, nil
	}
	s, err := store.New(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return s, nil
}

// Config returns the configuration in use.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// acquire claims the single browser session slot.
func (a *App) acquire() (*config.Config, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active {
		return nil, ErrBusy
	}
	a.active = true
	return a.config, nil
}

func (a *App) release() {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()
}

// Run executes the configured scenarios, or only the named ones, and
// returns the finished run. It never returns nil; setup failures are
// recorded in Run.Fatal and an interrupted ctx sets Run.Interrupted.
func (a *App) Run(ctx context.Context, only []string) *types.Run {
	run := &types.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := a.log.With(zap.String("run", run.ID))

	cfg, err := a.acquire()
	if err != nil {
		run.Fatal = err.Error()
		return a.finish(ctx, run, log)
	}
	defer a.release()

	scenarios, unknown := scenario.FromConfigs(cfg.Scenarios, only)
	if len(unknown) > 0 {
		run.Fatal = fmt.Sprintf("unknown scenarios: %v", unknown)
		return a.finish(ctx, run, log)
	}
	if len(scenarios) == 0 {
		run.Fatal = "no scenarios to run"
		return a.finish(ctx, run, log)
	}

	if err := a.execute(ctx, cfg, run, scenarios, log); err != nil {
		run.Fatal = err.Error()
	}
	return a.finish(ctx, run, log)
}

// execute owns the browser session. Stop runs in a deferred block so a
// failing step never leaks the browser process.
func (a *App) execute(ctx context.Context, cfg *config.Config, run *types.Run, scenarios []scenario.Scenario, log *zap.Logger) error {
	runCtx, cancel := context.WithTimeout(ctx, cfg.Timing.RunTimeout.Duration)
	defer cancel()

	sess, err := browser.Start(runCtx, cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		res := sess.Stop()
		if len(res.Removed) > 0 {
			log.Debug("removed artifacts", zap.Strings("paths", res.Removed))
		}
		for _, w := range res.Warnings {
			run.Warnings = append(run.Warnings, w.Error())
		}
	}()

	res, err := a.resolve(sess, cfg)
	if err != nil {
		return err
	}
	run.ExtensionID = res.ID

	drv := driver.New(a.logger, cfg.Timing.PageTimeout.Duration, cfg.Timing.PollInterval.Duration)
	page, err := drv.OpenPage(sess.Context(), res.ID, pageCandidates(cfg))
	if err != nil {
		return fmt.Errorf("failed to open extension page: %w", err)
	}
	run.Synthetic = page.Synthetic
	if page.Synthetic {
		log.Warn("driving the synthetic UI; results do not reflect the extension's own page")
	}

	runner := scenario.NewRunner(a.logger, drv, scenario.Options{
		DownloadDir: sess.DownloadDir(),
		Pattern:     cfg.Downloads.SubtitlePattern,
		RequireFile: cfg.Downloads.RequireFile,
		FileWait:    cfg.Timing.SettleTimeout.Duration,
	})
	run.Outcomes = runner.RunAll(sess.Context(), scenarios)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("run timed out after %v", cfg.Timing.RunTimeout.Duration)
	}
	return nil
}

func (a *App) resolve(sess *browser.Session, cfg *config.Config) (*locator.Resolution, error) {
	loc := locator.New(a.logger, locator.CDPProber{}, cfg.Extension.ProbePaths,
		cfg.Timing.ProbeTimeout.Duration, cfg.Extension.Match)
	res, err := loc.ResolveWithRetry(sess.Context(), sess, cfg.Extension.ResolveAttempts, cfg.Timing.SettleTimeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve extension: %w", err)
	}
	return res, nil
}

func (a *App) finish(ctx context.Context, run *types.Run, log *zap.Logger) *types.Run {
	run.FinishedAt = time.Now()
	run.Interrupted = errors.Is(ctx.Err(), context.Canceled)
	run.ExitCode = report.ExitCode(run)

	// Logged here once; the session only collects them.
	for _, w := range run.Warnings {
		log.Warn("cleanup", zap.String("warning", w))
	}
	if run.Fatal != "" {
		log.Error("run aborted", zap.String("reason", run.Fatal))
	}
	log.Info(report.Summary(run),
		zap.Int("exit_code", run.ExitCode),
		zap.Duration("took", run.Duration()))

	if a.history != nil {
		if err := a.history.SaveRun(run); err != nil {
			log.Warn("failed to record run", zap.Error(err))
		}
	}
	return run
}

// Locate starts a session only to resolve the extension ID.
func (a *App) Locate(ctx context.Context) (*locator.Resolution, error) {
	cfg, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer a.release()

	sess, err := browser.Start(ctx, cfg, a.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, w := range sess.Stop().Warnings {
			a.log.Warn("cleanup", zap.Error(w))
		}
	}()

	return a.resolve(sess, cfg)
}

// Preflight runs the static extension checks.
func (a *App) Preflight() *extension.PreflightReport {
	cfg := a.Config()
	return extension.Preflight(cfg.Extension.Path, cfg.Extension.PageCandidates, driver.UISelectors)
}

// Clean removes leftover subtitle downloads and the browser profile.
func (a *App) Clean() ([]string, []error) {
	cfg := a.Config()
	return browser.CleanArtifacts(cfg.Downloads.Dir, cfg.Downloads.SubtitlePattern, cfg.Browser.ProfileDir)
}

// ReloadConfig replaces the configuration. It takes effect on the next run.
func (a *App) ReloadConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	a.config = cfg
	a.mu.Unlock()

	a.log.Info("configuration reloaded")
	return nil
}

func pageCandidates(cfg *config.Config) []string {
	m, _ := extension.LoadManifest(cfg.Extension.Path)
	return extension.PageCandidates(m, cfg.Extension.PageCandidates)
}
