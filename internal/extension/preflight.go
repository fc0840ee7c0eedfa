package extension

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PuerkitoBio/goquery"
)

// Finding is one preflight observation.
type Finding struct {
	Check   string
	OK      bool
	Message string
}

// PreflightReport collects the static checks run before a browser is launched.
type PreflightReport struct {
	Dir      string
	Manifest *Manifest
	Page     string
	Findings []Finding
}

// OK reports whether every check passed.
func (r *PreflightReport) OK() bool {
	for _, f := range r.Findings {
		if !f.OK {
			return false
		}
	}
	return true
}

func (r *PreflightReport) add(check string, ok bool, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Check: check, OK: ok, Message: fmt.Sprintf(format, args...)})
}

// Preflight inspects the extension directory without a browser: the manifest
// must parse, a UI page must exist on disk, and that page must contain every
// selector in required.
func Preflight(dir string, pages []string, required []string) *PreflightReport {
	r := &PreflightReport{Dir: dir}

	m, err := LoadManifest(dir)
	if err != nil {
		r.add("manifest", false, "%v", err)
	} else {
		r.Manifest = m
		r.add("manifest", true, "%s %s (manifest v%d)", m.Name, m.Version, m.ManifestVersion)
	}

	for _, p := range PageCandidates(m, pages) {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			r.Page = p
			break
		}
	}
	if r.Page == "" {
		r.add("page", false, "none of %v exists", PageCandidates(m, pages))
		return r
	}
	r.add("page", true, "%s", r.Page)

	missing, err := MissingSelectors(filepath.Join(dir, filepath.FromSlash(r.Page)), required)
	if err != nil {
		r.add("selectors", false, "%v", err)
		return r
	}
	if len(missing) > 0 {
		r.add("selectors", false, "missing %v", missing)
	} else {
		r.add("selectors", true, "all %d selectors present", len(required))
	}
	return r
}

// MissingSelectors parses the HTML file at path and returns the selectors
// that match nothing.
func MissingSelectors(path string, selectors []string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var missing []string
	for _, sel := range selectors {
		if doc.Find(sel).Length() == 0 {
			missing = append(missing, sel)
		}
	}
	return missing, nil
}
