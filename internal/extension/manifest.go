// Package extension reads the unpacked extension under test from disk.
package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestFile is the file Chrome requires at the root of an unpacked extension.
const ManifestFile = "manifest.json"

// Manifest holds the manifest fields the harness cares about.
type Manifest struct {
	ManifestVersion int    `json:"manifest_version"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	Key             string `json:"key,omitempty"`
	OptionsPage     string `json:"options_page,omitempty"`
	OptionsUI       *struct {
		Page string `json:"page"`
	} `json:"options_ui,omitempty"`
	Action *struct {
		DefaultPopup string `json:"default_popup"`
	} `json:"action,omitempty"`
	BrowserAction *struct {
		DefaultPopup string `json:"default_popup"`
	} `json:"browser_action,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// ManifestPath returns the manifest location for an extension directory.
func ManifestPath(dir string) string {
	return filepath.Join(dir, ManifestFile)
}

// HasManifest reports whether dir contains a manifest file.
func HasManifest(dir string) bool {
	info, err := os.Stat(ManifestPath(dir))
	return err == nil && !info.IsDir()
}

// LoadManifest parses the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(dir))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	if m.ManifestVersion == 0 {
		return nil, errors.New("manifest_version is missing")
	}
	return &m, nil
}

// OptionsPagePath returns the declared options page, preferring options_ui.
func (m *Manifest) OptionsPagePath() string {
	if m.OptionsUI != nil && m.OptionsUI.Page != "" {
		return cleanPagePath(m.OptionsUI.Page)
	}
	return cleanPagePath(m.OptionsPage)
}

// PopupPath returns the declared popup page, if any.
func (m *Manifest) PopupPath() string {
	if m.Action != nil && m.Action.DefaultPopup != "" {
		return cleanPagePath(m.Action.DefaultPopup)
	}
	if m.BrowserAction != nil {
		return cleanPagePath(m.BrowserAction.DefaultPopup)
	}
	return ""
}

// PageCandidates returns the manifest-declared pages followed by fallback,
// without duplicates. A nil manifest yields fallback unchanged.
func PageCandidates(m *Manifest, fallback []string) []string {
	var declared []string
	if m != nil {
		declared = []string{m.OptionsPagePath(), m.PopupPath()}
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(declared)+len(fallback))
	for _, p := range append(declared, fallback...) {
		p = cleanPagePath(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func cleanPagePath(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "/")
}
