// Package downloads watches and inspects the browser download directory.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Chrome writes in-progress downloads under these suffixes.
var partialSuffixes = []string{".crdownload", ".tmp"}

// Glob returns the completed files in dir whose base name matches pattern,
// sorted by name.
func Glob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	out := matches[:0]
	for _, m := range matches {
		if isPartial(m) {
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func isPartial(name string) bool {
	for _, s := range partialSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// ErrNoDownload is returned by Wait when no matching file appeared in time.
var ErrNoDownload = errors.New("no matching download appeared")

// Wait blocks until a completed file matching pattern exists in dir or the
// timeout elapses. Files already present count.
func Wait(ctx context.Context, dir, pattern string, timeout time.Duration) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Check after the watch is in place so a file created in between is not missed.
	if files, err := Glob(dir, pattern); err != nil || len(files) > 0 {
		return files, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrNoDownload
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil, ErrNoDownload
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
				continue
			}
			if files, err := Glob(dir, pattern); err != nil || len(files) > 0 {
				return files, err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, ErrNoDownload
			}
			return nil, fmt.Errorf("watch error: %w", err)
		}
	}
}

// Clean removes files matching pattern in dir and then the extra paths
// (directories are removed recursively). Missing paths are not errors; every
// other failure is returned as a warning so callers can report them together.
func Clean(dir, pattern string, extra ...string) (removed []string, warnings []error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, []error{fmt.Errorf("invalid pattern %q: %w", pattern, err)}
	}

	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			warnings = append(warnings, fmt.Errorf("failed to delete %s: %w", f, err))
			continue
		}
		removed = append(removed, f)
	}

	for _, p := range extra {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			warnings = append(warnings, fmt.Errorf("failed to delete %s: %w", p, err))
			continue
		}
		removed = append(removed, p)
	}

	return removed, warnings
}
