package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/ytsubtest/internal/report"
	"github.com/ibeckermayer/ytsubtest/internal/store"
	"github.com/ibeckermayer/ytsubtest/internal/types"
)

const optionsPage = `<html><head><title>Subtitles</title></head><body>
<input id="videoUrl">
<input type="radio" name="type" id="autoGenerated"><input type="radio" name="type" id="manual">
<input type="radio" name="fmt" id="txt"><input type="radio" name="fmt" id="srt"><input type="radio" name="fmt" id="vtt">
<button id="getSubtitles">Get</button><div id="status"></div>
</body></html>`

type env struct {
	dir       string
	config    string
	extension string
	downloads string
	history   string
}

func newEnv(t *testing.T, withHistory bool) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:       dir,
		config:    filepath.Join(dir, "config.toml"),
		extension: filepath.Join(dir, "src"),
		downloads: filepath.Join(dir, "downloads"),
	}
	if withHistory {
		e.history = filepath.Join(dir, "history.db")
	}

	toml := fmt.Sprintf(`
[extension]
path = %q

[downloads]
dir = %q

[history]
path = %q
`, e.extension, e.downloads, e.history)
	require.NoError(t, os.WriteFile(e.config, []byte(toml), 0600))
	return e
}

func (e env) writeExtension(t *testing.T) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(e.extension, "views"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.extension, "manifest.json"),
		[]byte(`{"manifest_version": 3, "name": "YouTube Subtitles", "version": "1.2"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(e.extension, "views", "options.html"), []byte(optionsPage), 0644))
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := Execute(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestPreflightCommand(t *testing.T) {
	e := newEnv(t, false)

	code, out, _ := execute(t, "preflight", "--config", e.config)
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, out, "[FAIL] manifest")

	e.writeExtension(t)
	code, out, _ = execute(t, "preflight", "--config", e.config)
	assert.Equal(t, report.ExitOK, code, out)
	assert.Contains(t, out, "YouTube Subtitles 1.2")
	assert.Contains(t, out, "all 8 selectors present")
}

func TestCleanCommand(t *testing.T) {
	e := newEnv(t, false)
	require.NoError(t, os.MkdirAll(filepath.Join(e.downloads, "user_data", "Default"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.downloads, "oc6RV5c1yd0_subtitles.txt"), []byte("x"), 0644))

	code, out, _ := execute(t, "clean", "--config", e.config)
	assert.Equal(t, report.ExitOK, code)
	assert.Contains(t, out, "oc6RV5c1yd0_subtitles.txt")
	assert.Contains(t, out, "user_data")

	code, out, _ = execute(t, "clean", "--config", e.config)
	assert.Equal(t, report.ExitOK, code)
	assert.Contains(t, out, "nothing to clean")
}

func TestHistoryCommand(t *testing.T) {
	e := newEnv(t, false)
	code, _, errOut := execute(t, "history", "--config", e.config)
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, errOut, "history is disabled")

	e = newEnv(t, true)
	s, err := store.New(e.history)
	require.NoError(t, err)
	run := &types.Run{
		ID:        "abcdef12-0000-0000-0000-000000000000",
		StartedAt: time.Now(),
		ExitCode:  1,
		Outcomes: []types.Outcome{
			{Scenario: "download-subtitles", Passed: true, Verdict: types.VerdictSuccess, Message: "ok"},
			{Scenario: "invalid-url", Verdict: types.VerdictUnknown, Message: "expected an error message"},
		},
	}
	require.NoError(t, s.SaveRun(run))
	require.NoError(t, s.Close())

	code, out, _ := execute(t, "history", "--config", e.config)
	assert.Equal(t, report.ExitOK, code)
	assert.Contains(t, out, "abcdef12")

	code, out, _ = execute(t, "history", "abcdef", "--config", e.config)
	assert.Equal(t, report.ExitOK, code)
	assert.Contains(t, out, "invalid-url")
	assert.Contains(t, out, "FAIL")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	code, out, _ := execute(t, "config", "init", "--config", path)
	assert.Equal(t, report.ExitOK, code)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	code, _, errOut := execute(t, "config", "init", "--config", path)
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, errOut, "already exists")

	code, _, _ = execute(t, "config", "init", "--force", "--config", path)
	assert.Equal(t, report.ExitOK, code)

	code, out, _ = execute(t, "config", "path", "--config", path)
	assert.Equal(t, report.ExitOK, code)
	assert.Equal(t, path, strings.TrimSpace(out))
}

func TestMissingExplicitConfig(t *testing.T) {
	code, _, errOut := execute(t, "preflight", "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, errOut, "failed to load config")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[extension]\nmatch = \"sometimes\"\n"), 0600))

	code, _, errOut := execute(t, "clean", "--config", path)
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, errOut, "invalid config")
}

func TestOpenUnknownTarget(t *testing.T) {
	e := newEnv(t, false)
	code, _, errOut := execute(t, "open", "trash", "--config", e.config)
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, errOut, "unknown target")
}

func TestWatchNeedsSchedule(t *testing.T) {
	e := newEnv(t, false)
	code, _, errOut := execute(t, "watch", "--config", e.config)
	assert.Equal(t, report.ExitFailed, code)
	assert.Contains(t, errOut, "no schedule")
}

func TestCodeFor(t *testing.T) {
	var errb bytes.Buffer
	bg := context.Background()

	assert.Equal(t, 0, codeFor(bg, nil, &errb))
	assert.Equal(t, 1, codeFor(bg, errors.New("boom"), &errb))
	assert.Equal(t, 130, codeFor(bg, exitCode(130), &errb))
	assert.Nil(t, exitCode(0))

	ctx, cancel := context.WithCancel(bg)
	cancel()
	assert.Equal(t, 130, codeFor(ctx, context.Canceled, &errb))
	assert.Contains(t, errb.String(), "boom")
}
