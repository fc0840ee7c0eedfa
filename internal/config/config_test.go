package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1280, cfg.Browser.WindowWidth)
	assert.Equal(t, 800, cfg.Browser.WindowHeight)
	assert.Equal(t, "*_subtitles.*", cfg.Downloads.SubtitlePattern)
	assert.Equal(t, []string{"views/options.html", "popup.html"}, cfg.Extension.ProbePaths)
	assert.Equal(t, 2*time.Second, cfg.Timing.SettleTimeout.Duration)
	require.Len(t, cfg.Scenarios, 2)
	assert.Equal(t, "https://invalid-url.com", cfg.Scenarios[1].VideoURL)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty extension path", func(c *Config) { c.Extension.Path = "" }},
		{"empty download dir", func(c *Config) { c.Downloads.Dir = "" }},
		{"bad pattern", func(c *Config) { c.Downloads.SubtitlePattern = "[" }},
		{"unknown match", func(c *Config) { c.Extension.Match = "best" }},
		{"no probe paths", func(c *Config) { c.Extension.ProbePaths = nil }},
		{"zero timeout", func(c *Config) { c.Timing.ProbeTimeout = Duration{} }},
		{"unknown format", func(c *Config) { c.Scenarios[0].Format = "ass" }},
		{"unknown expect", func(c *Config) { c.Scenarios[0].Expect = "maybe" }},
		{"unnamed scenario", func(c *Config) { c.Scenarios[0].Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[browser]
headless = true
proxy = "192.168.1.16:10811"

[timing]
probe_timeout = "750ms"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "192.168.1.16:10811", cfg.Browser.Proxy)
	assert.Equal(t, 750*time.Millisecond, cfg.Timing.ProbeTimeout.Duration)
	assert.Equal(t, 3*time.Second, cfg.Timing.PageTimeout.Duration)
	assert.Len(t, cfg.Scenarios, 2)
}

func TestLoadReplacesScenarioList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[[scenarios]]
name = "short-link"
video_url = "https://youtu.be/GiEsyOyk1m4"
format = "srt"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Scenarios, 1)
	assert.Equal(t, "short-link", cfg.Scenarios[0].Name)
	assert.Equal(t, "srt", cfg.Scenarios[0].Format)
	assert.Zero(t, cfg.Scenarios[0].Wait.Duration)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Extension.Match = MatchDerivedID
	cfg.Schedule.Cron = "@every 6h"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, MatchDerivedID, loaded.Extension.Match)
	assert.Equal(t, "@every 6h", loaded.Schedule.Cron)
	assert.Equal(t, cfg.Timing, loaded.Timing)
}

func TestResolve(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	require.NoError(t, cfg.Resolve(base))

	assert.Equal(t, filepath.Join(base, "src"), cfg.Extension.Path)
	assert.Equal(t, filepath.Join(base, "downloads"), cfg.Downloads.Dir)
	assert.Equal(t, filepath.Join(base, "downloads", "user_data"), cfg.Browser.ProfileDir)
	assert.Empty(t, cfg.History.Path)
}
