package locator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/extension"
)

const (
	idA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	idB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var probePaths = []string{"views/options.html", "popup.html"}

type fakeSession struct {
	id   string
	path string
}

func (s *fakeSession) ExtensionID() (string, bool) { return s.id, s.id != "" }
func (s *fakeSession) ExtensionPath() string       { return s.path }
func (s *fakeSession) SetExtensionID(id string) bool {
	if s.id != "" {
		return false
	}
	s.id = id
	return true
}

type fakeProber struct {
	targets   []*target.Info
	targetErr error
	status    map[string]int64 // url -> status; missing means navigation error
	visited   []string
	opened    int
	closed    int
}

func (p *fakeProber) Targets(context.Context) ([]*target.Info, error) {
	return p.targets, p.targetErr
}

func (p *fakeProber) OpenTab(context.Context) (Tab, error) {
	p.opened++
	return &fakeTab{p: p}, nil
}

type fakeTab struct{ p *fakeProber }

func (t *fakeTab) Navigate(url string, _ time.Duration) (int64, error) {
	t.p.visited = append(t.p.visited, url)
	status, ok := t.p.status[url]
	if !ok {
		return 0, errors.New("net::ERR_FILE_NOT_FOUND")
	}
	return status, nil
}

func (t *fakeTab) Close() error {
	t.p.closed++
	return nil
}

func extTarget(id, file string) *target.Info {
	return &target.Info{Type: "service_worker", URL: "chrome-extension://" + id + "/" + file}
}

func newLocator(p Prober, match string) *Locator {
	return New(zap.NewNop(), p, probePaths, time.Second, match)
}

func withManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"),
		[]byte(`{"manifest_version": 3, "name": "Subs", "version": "1.0"}`), 0644))
	return dir
}

func TestResolveFirstAnsweringCandidateWins(t *testing.T) {
	p := &fakeProber{
		targets: []*target.Info{
			{Type: "page", URL: "about:blank"},
			extTarget(idA, "background.js"),
			extTarget(idB, "background.js"),
			extTarget(idA, "offscreen.html"),
		},
		status: map[string]int64{
			"chrome-extension://" + idA + "/popup.html":         404,
			"chrome-extension://" + idB + "/popup.html":         200,
			"chrome-extension://" + idB + "/views/options.html": 200,
		},
	}
	sess := &fakeSession{path: t.TempDir()}

	res, err := newLocator(p, config.MatchFirstOK).Resolve(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, idB, res.ID)
	assert.True(t, res.Verified)
	assert.Equal(t, "chrome-extension://"+idB+"/views/options.html", res.URL)
	assert.Equal(t, idB, sess.id)
	assert.Equal(t, []string{
		"chrome-extension://" + idA + "/views/options.html",
		"chrome-extension://" + idA + "/popup.html",
		"chrome-extension://" + idB + "/views/options.html",
	}, p.visited)
	assert.Equal(t, 2, p.opened)
	assert.Equal(t, p.opened, p.closed)
}

func TestResolveFallsBackToFirstTargetWithManifest(t *testing.T) {
	p := &fakeProber{targets: []*target.Info{extTarget(idA, "bg.js"), extTarget(idB, "bg.js")}}
	sess := &fakeSession{path: withManifest(t)}

	res, err := newLocator(p, config.MatchFirstOK).Resolve(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, idA, res.ID)
	assert.False(t, res.Verified)
	assert.Len(t, res.Attempts, 4)
	assert.Equal(t, 2, p.closed)
}

func TestResolveNotFoundWithoutManifest(t *testing.T) {
	p := &fakeProber{targets: []*target.Info{extTarget(idA, "bg.js")}}
	sess := &fakeSession{path: t.TempDir()}

	_, err := newLocator(p, config.MatchFirstOK).Resolve(context.Background(), sess)
	require.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{idA}, nf.Candidates)
	assert.Len(t, nf.Attempts, 2)
	assert.Contains(t, err.Error(), "ERR_FILE_NOT_FOUND")
	assert.Empty(t, sess.id)
}

func TestResolveNoExtensionTargets(t *testing.T) {
	p := &fakeProber{targets: []*target.Info{{Type: "page", URL: "about:blank"}}}
	sess := &fakeSession{path: withManifest(t)}

	_, err := newLocator(p, config.MatchFirstOK).Resolve(context.Background(), sess)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, p.opened)
}

func TestResolveTargetsError(t *testing.T) {
	p := &fakeProber{targetErr: errors.New("connection closed")}
	_, err := newLocator(p, config.MatchFirstOK).Resolve(context.Background(), &fakeSession{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolveUsesCachedID(t *testing.T) {
	p := &fakeProber{}
	sess := &fakeSession{id: idA}

	res, err := newLocator(p, config.MatchFirstOK).Resolve(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, idA, res.ID)
	assert.True(t, res.Cached)
	assert.Zero(t, p.opened)
}

func TestResolveTriesManifestPagesFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"),
		[]byte(`{"manifest_version": 3, "name": "Subs", "version": "1.0", "options_page": "settings.html"}`), 0644))

	p := &fakeProber{
		targets: []*target.Info{extTarget(idA, "bg.js")},
		status:  map[string]int64{"chrome-extension://" + idA + "/settings.html": 200},
	}
	res, err := newLocator(p, config.MatchFirstOK).Resolve(context.Background(), &fakeSession{path: dir})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, []string{"chrome-extension://" + idA + "/settings.html"}, p.visited)
}

func TestResolveDerivedID(t *testing.T) {
	dir := withManifest(t)
	want, err := extension.DeriveID(dir, &extension.Manifest{ManifestVersion: 3})
	require.NoError(t, err)

	p := &fakeProber{
		targets: []*target.Info{extTarget(idA, "bg.js"), extTarget(want, "bg.js")},
		status: map[string]int64{
			"chrome-extension://" + idA + "/views/options.html":  200,
			"chrome-extension://" + want + "/views/options.html": 200,
		},
	}
	res, err := newLocator(p, config.MatchDerivedID).Resolve(context.Background(), &fakeSession{path: dir})
	require.NoError(t, err)
	assert.Equal(t, want, res.ID)
	assert.Equal(t, 1, p.opened)

	p = &fakeProber{targets: []*target.Info{extTarget(idA, "bg.js")}}
	_, err = newLocator(p, config.MatchDerivedID).Resolve(context.Background(), &fakeSession{path: dir})
	assert.ErrorIs(t, err, ErrNotFound)
}

type flakyProber struct {
	fakeProber
	calls int
	after int
}

func (p *flakyProber) Targets(ctx context.Context) ([]*target.Info, error) {
	p.calls++
	if p.calls <= p.after {
		return nil, nil
	}
	return p.fakeProber.Targets(ctx)
}

func (p *flakyProber) OpenTab(ctx context.Context) (Tab, error) {
	return p.fakeProber.OpenTab(ctx)
}

func TestResolveWithRetry(t *testing.T) {
	p := &flakyProber{
		fakeProber: fakeProber{
			targets: []*target.Info{extTarget(idA, "bg.js")},
			status:  map[string]int64{"chrome-extension://" + idA + "/views/options.html": 200},
		},
		after: 2,
	}
	l := New(zap.NewNop(), p, probePaths, time.Second, config.MatchFirstOK)

	res, err := l.ResolveWithRetry(context.Background(), &fakeSession{}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, idA, res.ID)
	assert.Equal(t, 3, p.calls)
}

func TestResolveWithRetryGivesUp(t *testing.T) {
	p := &fakeProber{}
	l := newLocator(p, config.MatchFirstOK)

	_, err := l.ResolveWithRetry(context.Background(), &fakeSession{}, 2, time.Millisecond)
	assert.ErrorIs(t, err, ErrNotFound)
}
