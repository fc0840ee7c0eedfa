package scenario

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ibeckermayer/ytsubtest/internal/types"
)

// Status text markers. The extension reports in Chinese, the English forms
// cover localized builds.
var (
	successMarkers     = []string{"成功", "success"}
	noSubtitlesMarkers = []string{"找不到字幕信息", "没有可用的字幕", "no subtitles"}
	errorMarkers       = []string{"无效", "错误", "invalid", "error"}
)

// Classify maps the status element's text and class to a verdict.
// Markers are checked in order success, no-subtitles, error, loading.
func Classify(text, class string) types.Verdict {
	lower := strings.ToLower(text)

	switch {
	case hasClass(class, "success") || containsAny(lower, successMarkers):
		return types.VerdictSuccess
	case containsAny(lower, noSubtitlesMarkers):
		return types.VerdictNoSubtitles
	case hasClass(class, "error") || containsAny(lower, errorMarkers):
		return types.VerdictError
	case hasClass(class, "loading"):
		return types.VerdictLoading
	default:
		return types.VerdictUnknown
	}
}

// Judgement is the verdict of a scenario before it is packed into an Outcome.
type Judgement struct {
	Passed   bool
	Message  string
	Warnings []string
}

// Judge applies the pass rules for an expectation given the classified
// status and the subtitle files found after the action.
//
// A download expectation passes on success, with or without a file unless
// requireFile is set, and on no-subtitles, which shows the extension works
// for a video that has none. An error expectation passes on error unless a
// subtitle file appeared anyway.
func Judge(expect types.Expectation, v types.Verdict, text string, files []string, requireFile bool) Judgement {
	switch expect {
	case types.ExpectDownload:
		switch v {
		case types.VerdictSuccess:
			if len(files) > 0 {
				return Judgement{Passed: true, Message: fmt.Sprintf("subtitles downloaded: %s", baseNames(files))}
			}
			if requireFile {
				return Judgement{Message: "status reports success but no subtitle file was downloaded"}
			}
			return Judgement{
				Passed:   true,
				Message:  "status reports success",
				Warnings: []string{"status reports success but no subtitle file was found"},
			}
		case types.VerdictNoSubtitles:
			return Judgement{Passed: true, Message: "extension works, video has no subtitles"}
		default:
			return Judgement{Message: fmt.Sprintf("download failed, status %s: %q", v, text)}
		}

	case types.ExpectError:
		if v != types.VerdictError {
			return Judgement{Message: fmt.Sprintf("expected an error message, status %s: %q", v, text)}
		}
		if len(files) > 0 {
			return Judgement{Message: fmt.Sprintf("error reported but subtitles were downloaded: %s", baseNames(files))}
		}
		return Judgement{Passed: true, Message: fmt.Sprintf("invalid URL rejected: %q", text)}

	default:
		return Judgement{Message: fmt.Sprintf("unknown expectation %q", expect)}
	}
}

func hasClass(classes, name string) bool {
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func baseNames(files []string) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return strings.Join(names, ", ")
}
