//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ibeckermayer/ytsubtest/internal/app"
	"github.com/ibeckermayer/ytsubtest/internal/browser"
	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/driver"
	"github.com/ibeckermayer/ytsubtest/internal/extension"
	"github.com/ibeckermayer/ytsubtest/internal/locator"
	"github.com/ibeckermayer/ytsubtest/internal/report"
	"github.com/ibeckermayer/ytsubtest/internal/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	download := os.Getenv("YTSUBTEST_DOWNLOAD_BROWSER") == "1"
	if _, found := launcher.LookPath(); !found && !download {
		t.Skip("no Chrome found; set YTSUBTEST_DOWNLOAD_BROWSER=1 to fetch one")
	}

	ext, err := filepath.Abs(filepath.Join("testdata", "extension"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Browser.Headless = true
	cfg.Browser.Download = download
	cfg.Extension.Path = ext
	cfg.Downloads.Dir = filepath.Join(t.TempDir(), "downloads")
	cfg.Browser.ProfileDir, err = os.MkdirTemp(profileRoot, "profile-")
	require.NoError(t, err)
	cfg.Downloads.RequireFile = true
	cfg.Timing.SettleTimeout = config.Duration{Duration: 5 * time.Second}
	cfg.Timing.ProbeTimeout = config.Duration{Duration: 5 * time.Second}
	cfg.Timing.PageTimeout = config.Duration{Duration: 5 * time.Second}
	cfg.Timing.RunTimeout = config.Duration{Duration: 2 * time.Minute}
	require.NoError(t, cfg.Resolve(t.TempDir()))
	require.NoError(t, cfg.Validate())
	return cfg
}

func outcome(t *testing.T, run *types.Run, name string) types.Outcome {
	t.Helper()
	for _, o := range run.Outcomes {
		if o.Scenario == name {
			return o
		}
	}
	t.Fatalf("no outcome for %s", name)
	return types.Outcome{}
}

func TestDefaultSuite(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	hist, err := app.OpenHistory(cfg)
	require.NoError(t, err)
	defer hist.Close()

	run := app.New(cfg, zaptest.NewLogger(t), hist).Run(context.Background(), nil)
	require.Empty(t, run.Fatal)
	assert.Equal(t, report.ExitOK, run.ExitCode, report.Summary(run))
	assert.False(t, run.Synthetic)
	assert.Len(t, run.ExtensionID, 32)

	dl := outcome(t, run, "download-subtitles")
	assert.True(t, dl.Passed, dl.Message)
	assert.Equal(t, types.VerdictSuccess, dl.Verdict)
	require.Len(t, dl.Files, 1)
	assert.Equal(t, "oc6RV5c1yd0_subtitles.txt", filepath.Base(dl.Files[0]))

	bad := outcome(t, run, "invalid-url")
	assert.True(t, bad.Passed, bad.Message)
	assert.Equal(t, types.VerdictError, bad.Verdict)
	assert.Empty(t, bad.Files)

	// Stop removed the downloads and the profile
	left, err := filepath.Glob(filepath.Join(cfg.Downloads.Dir, cfg.Downloads.SubtitlePattern))
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.NoDirExists(t, cfg.Browser.ProfileDir)

	runs, err := hist.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestFormats(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenarios = []config.ScenarioConfig{
		{Name: "srt", VideoURL: "https://youtu.be/oc6RV5c1yd0", Format: "srt"},
		{Name: "vtt", VideoURL: "https://www.youtube.com/live/oc6RV5c1yd0", Format: "vtt", SubtitleType: "manual"},
		{Name: "channel", VideoURL: "https://www.youtube.com/@someone"},
	}

	run := app.New(cfg, zaptest.NewLogger(t), nil).Run(context.Background(), nil)
	require.Empty(t, run.Fatal)
	for _, o := range run.Outcomes {
		assert.True(t, o.Passed, "%s: %s %s", o.Scenario, o.Message, o.Error)
	}
	assert.Equal(t, "vtt", filepath.Ext(outcome(t, run, "vtt").Files[0])[1:])
}

func TestLocateDerivedID(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extension.Match = config.MatchDerivedID

	res, err := app.New(cfg, zaptest.NewLogger(t), nil).Locate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Verified)

	m, err := extension.LoadManifest(cfg.Extension.Path)
	require.NoError(t, err)
	want, err := extension.DeriveID(cfg.Extension.Path, m)
	require.NoError(t, err)
	assert.Equal(t, want, res.ID)
}

func TestMissingExtensionAbortsRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extension.Path = t.TempDir()
	cfg.Extension.ResolveAttempts = 1

	run := app.New(cfg, zaptest.NewLogger(t), nil).Run(context.Background(), []string{"invalid-url"})
	assert.NotEmpty(t, run.Fatal)
	assert.Equal(t, report.ExitFailed, run.ExitCode)
	assert.Empty(t, run.Outcomes)
}

func TestInterruptedRun(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	run := app.New(cfg, zaptest.NewLogger(t), nil).Run(ctx, nil)
	assert.True(t, run.Interrupted)
	assert.Equal(t, report.ExitInterrupted, run.ExitCode)
}

func TestPreflightStub(t *testing.T) {
	cfg := testConfig(t)
	rep := app.New(cfg, zaptest.NewLogger(t), nil).Preflight()
	assert.True(t, rep.OK(), "%+v", rep.Findings)
	assert.Equal(t, "views/options.html", rep.Page)
}

func TestDriverStatusReads(t *testing.T) {
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	sess, err := browser.Start(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer sess.Stop()
	ctx := sess.Context()

	loc := locator.New(logger, locator.CDPProber{}, cfg.Extension.ProbePaths,
		cfg.Timing.ProbeTimeout.Duration, cfg.Extension.Match)
	res, err := loc.ResolveWithRetry(ctx, sess, cfg.Extension.ResolveAttempts, cfg.Timing.SettleTimeout.Duration)
	require.NoError(t, err)

	drv := driver.New(logger, cfg.Timing.PageTimeout.Duration, cfg.Timing.PollInterval.Duration)
	page, err := drv.OpenPage(ctx, res.ID, []string{"views/options.html"})
	require.NoError(t, err)
	require.False(t, page.Synthetic)

	require.NoError(t, drv.FillField(ctx, driver.VideoURLInput, "https://invalid-url.com"))
	require.NoError(t, drv.Click(ctx, driver.GetSubtitlesBtn))
	st, err := drv.WaitStatus(ctx, driver.StatusBox, 2*time.Second)
	require.NoError(t, err)
	require.True(t, st.Settled())

	text, err := drv.ReadText(ctx, driver.StatusBox)
	require.NoError(t, err)
	assert.Equal(t, "无效的YouTube视频URL", text)
	class, err := drv.ReadClass(ctx, driver.StatusBox)
	require.NoError(t, err)
	assert.Contains(t, class, "error")

	require.NoError(t, drv.ClearStatus(ctx, driver.StatusBox))
	text, err = drv.ReadText(ctx, driver.StatusBox)
	require.NoError(t, err)
	assert.Empty(t, text)
	class, err = drv.ReadClass(ctx, driver.StatusBox)
	require.NoError(t, err)
	assert.Empty(t, class)

	_, err = drv.ReadText(ctx, "#nope")
	assert.ErrorIs(t, err, driver.ErrSelectorMissing)
}
