package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all harness configuration
type Config struct {
	Version   int              `toml:"version"`
	Browser   BrowserConfig    `toml:"browser"`
	Extension ExtensionConfig  `toml:"extension"`
	Downloads DownloadsConfig  `toml:"downloads"`
	Timing    TimingConfig     `toml:"timing"`
	History   HistoryConfig    `toml:"history"`
	Schedule  ScheduleConfig   `toml:"schedule"`
	Scenarios []ScenarioConfig `toml:"scenarios"`
}

type BrowserConfig struct {
	Headless           bool   `toml:"headless"`
	ExecPath           string `toml:"exec_path"`
	Download           bool   `toml:"download"`
	Proxy              string `toml:"proxy"`
	WindowWidth        int    `toml:"window_width"`
	WindowHeight       int    `toml:"window_height"`
	DisableWebSecurity bool   `toml:"disable_web_security"`
	ProfileDir         string `toml:"profile_dir"`
}

type ExtensionConfig struct {
	Path            string   `toml:"path"`
	Match           string   `toml:"match"`
	ProbePaths      []string `toml:"probe_paths"`
	PageCandidates  []string `toml:"page_candidates"`
	ResolveAttempts int      `toml:"resolve_attempts"`
}

type DownloadsConfig struct {
	Dir             string `toml:"dir"`
	SubtitlePattern string `toml:"subtitle_pattern"`
	RequireFile     bool   `toml:"require_file"`
}

// TimingConfig holds the bounded waits that replace fixed sleeps.
type TimingConfig struct {
	SettleTimeout Duration `toml:"settle_timeout"`
	ProbeTimeout  Duration `toml:"probe_timeout"`
	PageTimeout   Duration `toml:"page_timeout"`
	PollInterval  Duration `toml:"poll_interval"`
	RunTimeout    Duration `toml:"run_timeout"`
}

type HistoryConfig struct {
	Path string `toml:"path"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron"`
}

// ScenarioConfig declares one UI scenario. Expect is "download" or "error";
// when empty it is derived from the URL.
type ScenarioConfig struct {
	Name         string   `toml:"name"`
	VideoURL     string   `toml:"video_url"`
	SubtitleType string   `toml:"subtitle_type"`
	Format       string   `toml:"format"`
	Expect       string   `toml:"expect"`
	Wait         Duration `toml:"wait"`
}

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Match policies for extension resolution.
const (
	MatchFirstOK   = "first-ok"
	MatchDerivedID = "derived-id"
)

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Browser: BrowserConfig{
			Headless:           false,
			WindowWidth:        1280,
			WindowHeight:       800,
			DisableWebSecurity: true,
		},
		Extension: ExtensionConfig{
			Path:            "src",
			Match:           MatchFirstOK,
			ProbePaths:      []string{"views/options.html", "popup.html"},
			PageCandidates:  []string{"views/options.html", "options.html", "popup.html", "index.html"},
			ResolveAttempts: 3,
		},
		Downloads: DownloadsConfig{
			Dir:             "downloads",
			SubtitlePattern: "*_subtitles.*",
		},
		Timing: TimingConfig{
			SettleTimeout: Duration{2 * time.Second},
			ProbeTimeout:  Duration{2 * time.Second},
			PageTimeout:   Duration{3 * time.Second},
			PollInterval:  Duration{200 * time.Millisecond},
			RunTimeout:    Duration{5 * time.Minute},
		},
		Scenarios: []ScenarioConfig{
			{
				Name:         "download-subtitles",
				VideoURL:     "https://www.youtube.com/watch?v=oc6RV5c1yd0",
				SubtitleType: "auto",
				Format:       "txt",
				Expect:       "download",
				Wait:         Duration{5 * time.Second},
			},
			{
				Name:     "invalid-url",
				VideoURL: "https://invalid-url.com",
				Expect:   "error",
				Wait:     Duration{2 * time.Second},
			},
		},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Extension.Path == "" {
		return fmt.Errorf("extension.path must be set")
	}
	if c.Downloads.Dir == "" {
		return fmt.Errorf("downloads.dir must be set")
	}
	if _, err := filepath.Match(c.Downloads.SubtitlePattern, ""); err != nil || c.Downloads.SubtitlePattern == "" {
		return fmt.Errorf("invalid downloads.subtitle_pattern %q", c.Downloads.SubtitlePattern)
	}
	switch c.Extension.Match {
	case MatchFirstOK, MatchDerivedID:
	default:
		return fmt.Errorf("unknown extension.match %q", c.Extension.Match)
	}
	if len(c.Extension.ProbePaths) == 0 {
		return fmt.Errorf("extension.probe_paths must not be empty")
	}
	timeouts := map[string]Duration{
		"settle_timeout": c.Timing.SettleTimeout,
		"probe_timeout":  c.Timing.ProbeTimeout,
		"page_timeout":   c.Timing.PageTimeout,
		"poll_interval":  c.Timing.PollInterval,
		"run_timeout":    c.Timing.RunTimeout,
	}
	for name, d := range timeouts {
		if d.Duration <= 0 {
			return fmt.Errorf("timing.%s must be positive", name)
		}
	}
	for i, s := range c.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("scenarios[%d]: name must be set", i)
		}
		switch s.Format {
		case "", "txt", "srt", "vtt":
		default:
			return fmt.Errorf("scenario %s: unknown format %q", s.Name, s.Format)
		}
		switch s.SubtitleType {
		case "", "auto", "manual":
		default:
			return fmt.Errorf("scenario %s: unknown subtitle_type %q", s.Name, s.SubtitleType)
		}
		switch s.Expect {
		case "", "download", "error":
		default:
			return fmt.Errorf("scenario %s: unknown expect %q", s.Name, s.Expect)
		}
	}
	return nil
}

// Resolve makes relative paths absolute against base. The profile dir
// defaults to user_data under the download dir.
func (c *Config) Resolve(base string) error {
	abs := func(p string) (string, error) {
		if p == "" || filepath.IsAbs(p) {
			return p, nil
		}
		return filepath.Abs(filepath.Join(base, p))
	}

	var err error
	if c.Extension.Path, err = abs(c.Extension.Path); err != nil {
		return err
	}
	if c.Downloads.Dir, err = abs(c.Downloads.Dir); err != nil {
		return err
	}
	if c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = filepath.Join(c.Downloads.Dir, "user_data")
	} else if c.Browser.ProfileDir, err = abs(c.Browser.ProfileDir); err != nil {
		return err
	}
	if c.History.Path, err = abs(c.History.Path); err != nil {
		return err
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "ytsubtest"), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "ytsubtest"), nil
}

// Load reads config from path, or from ConfigPath when path is empty.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	// An explicit scenario list replaces the built-in one instead of
	// merging element by element.
	if md.IsDefined("scenarios") {
		var only struct {
			Scenarios []ScenarioConfig `toml:"scenarios"`
		}
		if _, err := toml.DecodeFile(path, &only); err != nil {
			return nil, err
		}
		cfg.Scenarios = only.Scenarios
	}

	return cfg, nil
}

// Save writes config to path, or to ConfigPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
