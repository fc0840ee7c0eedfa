// Package scenario defines the UI scenarios and judges their outcomes.
package scenario

import (
	"strings"
	"time"

	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/types"
	"github.com/ibeckermayer/ytsubtest/internal/ytlink"
)

// Default waits used when a scenario does not set one.
const (
	DefaultDownloadWait = 5 * time.Second
	DefaultErrorWait    = 2 * time.Second
)

// Scenario is one pass through the options UI.
type Scenario struct {
	Name         string
	VideoURL     string
	SubtitleType string
	Format       string
	Expect       types.Expectation
	Wait         time.Duration
}

// FromConfig fills in the defaults of a configured scenario. A missing
// expectation is derived from whether the URL names a YouTube video.
func FromConfig(sc config.ScenarioConfig) Scenario {
	s := Scenario{
		Name:         sc.Name,
		VideoURL:     sc.VideoURL,
		SubtitleType: sc.SubtitleType,
		Format:       strings.ToLower(sc.Format),
		Expect:       types.Expectation(sc.Expect),
		Wait:         sc.Wait.Duration,
	}
	if s.SubtitleType == "" {
		s.SubtitleType = "auto"
	}
	if s.Format == "" {
		s.Format = "txt"
	}
	if s.Expect == "" {
		if ytlink.Valid(s.VideoURL) {
			s.Expect = types.ExpectDownload
		} else {
			s.Expect = types.ExpectError
		}
	}
	if s.Wait <= 0 {
		if s.Expect == types.ExpectDownload {
			s.Wait = DefaultDownloadWait
		} else {
			s.Wait = DefaultErrorWait
		}
	}
	return s
}

// FromConfigs converts every configured scenario, optionally keeping only
// the named ones. Unknown names are returned so the caller can report them.
func FromConfigs(scs []config.ScenarioConfig, only []string) ([]Scenario, []string) {
	want := make(map[string]bool, len(only))
	for _, n := range only {
		want[n] = true
	}

	var out []Scenario
	for _, sc := range scs {
		if len(only) > 0 && !want[sc.Name] {
			continue
		}
		delete(want, sc.Name)
		out = append(out, FromConfig(sc))
	}

	var unknown []string
	for _, n := range only {
		if want[n] {
			unknown = append(unknown, n)
		}
	}
	return out, unknown
}
