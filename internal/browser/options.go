// Package browser launches and tears down the Chrome instance the harness drives.
package browser

import (
	"fmt"
	"sort"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/ytsubtest/internal/config"
)

// defaultDisabledFeatures repeats chromedp's default disable-features list,
// which a Flag call replaces rather than extends. Branded Chrome 137+ ignores
// --load-extension unless DisableLoadExtensionCommandLineSwitch is disabled.
const defaultDisabledFeatures = "site-per-process,Translate,BlinkGenPropertyTrees,DisableLoadExtensionCommandLineSwitch"

// Paths holds the filesystem locations a session is launched with.
type Paths struct {
	Extension  string
	Downloads  string
	Profile    string
	Executable string
}

// flags returns the command-line switches for a session, keyed by name.
// A false bool removes a switch set by chromedp's defaults.
func flags(b config.BrowserConfig, p Paths) map[string]any {
	f := map[string]any{
		"no-sandbox":                 true,
		"disable-extensions":         false,
		"disable-extensions-except":  p.Extension,
		"load-extension":             p.Extension,
		"disable-features":           defaultDisabledFeatures,
		"download.default_directory": p.Downloads,
		"no-first-run":               true,
		"no-default-browser-check":   true,
	}

	if b.Headless {
		// Extensions only load in the new headless mode.
		f["headless"] = "new"
		f["disable-gpu"] = true
	} else {
		f["headless"] = false
		f["hide-scrollbars"] = false
		f["mute-audio"] = false
	}
	if b.DisableWebSecurity {
		f["disable-web-security"] = true
	}
	if b.Proxy != "" {
		f["proxy-server"] = b.Proxy
	}
	return f
}

// Options returns chromedp allocator options for a session with the
// extension under test loaded and downloads redirected.
func Options(b config.BrowserConfig, p Paths) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(b.WindowWidth, b.WindowHeight),
		chromedp.UserDataDir(p.Profile),
	)

	f := flags(b, p)
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, f[name]))
	}

	if p.Executable != "" {
		opts = append(opts, chromedp.ExecPath(p.Executable))
	}

	return opts
}

// CommandLine renders the switches for logging.
func CommandLine(b config.BrowserConfig, p Paths) []string {
	f := flags(b, p)
	args := make([]string, 0, len(f))
	for name, v := range f {
		switch v := v.(type) {
		case bool:
			if v {
				args = append(args, "--"+name)
			}
		default:
			args = append(args, fmt.Sprintf("--%s=%v", name, v))
		}
	}
	args = append(args, fmt.Sprintf("--window-size=%d,%d", b.WindowWidth, b.WindowHeight))
	args = append(args, "--user-data-dir="+p.Profile)
	sort.Strings(args)
	return args
}
