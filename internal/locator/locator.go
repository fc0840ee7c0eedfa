// Package locator finds the runtime ID Chrome assigned to the extension under test.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/extension"
)

// ErrNotFound is returned when no extension target can be matched.
var ErrNotFound = errors.New("extension not found")

// Prober is the browser surface the locator needs.
type Prober interface {
	Targets(ctx context.Context) ([]*target.Info, error)
	OpenTab(ctx context.Context) (Tab, error)
}

// Tab is a throwaway page used to probe candidate URLs.
type Tab interface {
	// Navigate loads url and returns the HTTP status of the main response.
	Navigate(url string, timeout time.Duration) (int64, error)
	Close() error
}

// Session is the state the locator reads and caches into.
type Session interface {
	ExtensionID() (string, bool)
	SetExtensionID(id string) bool
	ExtensionPath() string
}

// Attempt records one probe of one candidate page.
type Attempt struct {
	ID     string
	URL    string
	Status int64
	Err    error
}

func (a Attempt) OK() bool {
	return a.Err == nil && a.Status >= 200 && a.Status < 300
}

func (a Attempt) String() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: %v", a.URL, a.Err)
	}
	return fmt.Sprintf("%s: status %d", a.URL, a.Status)
}

// NotFoundError carries the diagnostics of a failed resolution.
type NotFoundError struct {
	Candidates []string
	Attempts   []Attempt
	Reason     string
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s (candidates: %v)", ErrNotFound, e.Reason, e.Candidates)
	for _, a := range e.Attempts {
		b.WriteString("; ")
		b.WriteString(a.String())
	}
	return b.String()
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	ID       string
	URL      string
	Verified bool
	Cached   bool
	Attempts []Attempt
}

// Locator resolves the extension ID.
type Locator struct {
	logger     *zap.Logger
	prober     Prober
	probePaths []string
	timeout    time.Duration
	match      string
}

// New creates a locator. match is config.MatchFirstOK or config.MatchDerivedID.
func New(logger *zap.Logger, prober Prober, probePaths []string, timeout time.Duration, match string) *Locator {
	return &Locator{
		logger:     logger.Named("locator"),
		prober:     prober,
		probePaths: probePaths,
		timeout:    timeout,
		match:      match,
	}
}

// Resolve returns the extension ID, caching it in the session on success.
// Extension targets are probed in order; the first one for which any probe
// path answers with a 2xx status wins. If none does but the manifest exists
// on disk, the first extension target is accepted unverified.
func (l *Locator) Resolve(ctx context.Context, sess Session) (*Resolution, error) {
	if id, ok := sess.ExtensionID(); ok {
		return &Resolution{ID: id, Verified: true, Cached: true}, nil
	}

	targets, err := l.prober.Targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	l.logger.Info("listed targets", zap.Int("count", len(targets)))

	candidates := candidateIDs(targets, l.logger)
	if len(candidates) == 0 {
		return nil, &NotFoundError{Reason: "no chrome-extension targets"}
	}

	manifest, err := extension.LoadManifest(sess.ExtensionPath())
	if err != nil {
		l.logger.Debug("manifest unavailable", zap.Error(err))
	}
	paths := extension.PageCandidates(manifest, l.probePaths)

	if l.match == config.MatchDerivedID {
		want, err := extension.DeriveID(sess.ExtensionPath(), manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to derive extension ID: %w", err)
		}
		if !contains(candidates, want) {
			return nil, &NotFoundError{
				Candidates: candidates,
				Reason:     fmt.Sprintf("derived ID %s is not among the targets", want),
			}
		}
		l.logger.Info("matching derived ID", zap.String("id", want))
		candidates = []string{want}
	}

	var attempts []Attempt
	for _, id := range candidates {
		res, tried := l.probe(ctx, id, paths)
		attempts = append(attempts, tried...)
		if res != nil {
			res.Attempts = attempts
			return l.accept(sess, res), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if extension.HasManifest(sess.ExtensionPath()) {
		l.logger.Warn("no candidate answered, using first extension target",
			zap.String("id", candidates[0]),
			zap.String("extension", sess.ExtensionPath()))
		return l.accept(sess, &Resolution{ID: candidates[0], Attempts: attempts}), nil
	}

	return nil, &NotFoundError{
		Candidates: candidates,
		Attempts:   attempts,
		Reason:     "no candidate page answered and no manifest on disk",
	}
}

// probe tries every path of one candidate in a throwaway tab.
func (l *Locator) probe(ctx context.Context, id string, paths []string) (*Resolution, []Attempt) {
	tab, err := l.prober.OpenTab(ctx)
	if err != nil {
		l.logger.Error("failed to open probe tab", zap.String("id", id), zap.Error(err))
		return nil, []Attempt{{ID: id, Err: fmt.Errorf("open tab: %w", err)}}
	}
	defer func() {
		if err := tab.Close(); err != nil {
			l.logger.Warn("failed to close probe tab", zap.Error(err))
		}
	}()

	var attempts []Attempt
	for _, p := range paths {
		url := extension.PageURL(id, p)
		status, err := tab.Navigate(url, l.timeout)
		a := Attempt{ID: id, URL: url, Status: status, Err: err}
		attempts = append(attempts, a)

		if a.OK() {
			l.logger.Info("extension page answered", zap.String("url", url), zap.Int64("status", status))
			return &Resolution{ID: id, URL: url, Verified: true}, attempts
		}
		l.logger.Warn("probe failed", zap.String("attempt", a.String()))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, attempts
}

func (l *Locator) accept(sess Session, res *Resolution) *Resolution {
	if !sess.SetExtensionID(res.ID) {
		// Another caller resolved first; the cached ID stands.
		id, _ := sess.ExtensionID()
		res.ID = id
		res.Cached = true
	}
	l.logger.Info("resolved extension", zap.String("id", res.ID), zap.Bool("verified", res.Verified))
	return res
}

// ResolveWithRetry calls Resolve up to attempts times, waiting backoff
// (doubled each time) between ErrNotFound failures. Other errors return at once.
func (l *Locator) ResolveWithRetry(ctx context.Context, sess Session, attempts int, backoff time.Duration) (*Resolution, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := l.Resolve(ctx, sess)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		l.logger.Warn("extension not found, retrying",
			zap.Int("attempt", i+1),
			zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

// candidateIDs extracts extension IDs from targets, first-seen order, no duplicates.
func candidateIDs(targets []*target.Info, logger *zap.Logger) []string {
	seen := make(map[string]bool)
	var ids []string
	for i, t := range targets {
		logger.Debug("target", zap.Int("index", i), zap.String("type", string(t.Type)), zap.String("url", t.URL))
		id, ok := extension.IDFromURL(t.URL)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
