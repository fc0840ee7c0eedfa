// Package driver operates the extension's options page through chromedp.
// Every method takes the chromedp context of the page it acts on.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/extension"
)

// ErrSelectorMissing is returned when an element the scenario needs is not on the page.
var ErrSelectorMissing = errors.New("selector not found")

// Driver handles UI interaction with an extension page
type Driver struct {
	logger       *zap.Logger
	pageTimeout  time.Duration
	pollInterval time.Duration
}

// New creates a new driver. pageTimeout bounds each navigation and each
// element action; pollInterval paces the readiness polls.
func New(logger *zap.Logger, pageTimeout, pollInterval time.Duration) *Driver {
	return &Driver{
		logger:       logger.Named("driver"),
		pageTimeout:  pageTimeout,
		pollInterval: pollInterval,
	}
}

// PageInfo describes the page OpenPage settled on.
type PageInfo struct {
	URL       string
	Title     string
	Synthetic bool
}

// OpenPage navigates to the first candidate page of the extension that
// produces a non-empty title. When none does, it injects the synthetic UI
// into about:blank.
func (d *Driver) OpenPage(ctx context.Context, id string, candidates []string) (PageInfo, error) {
	for _, p := range candidates {
		url := extension.PageURL(id, p)
		d.logger.Info("trying page", zap.String("url", url))

		title, err := d.navigateForTitle(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return PageInfo{}, ctx.Err()
			}
			d.logger.Warn("failed to open page", zap.String("url", url), zap.Error(err))
			continue
		}
		d.logger.Info("opened page", zap.String("url", url), zap.String("title", title))
		return PageInfo{URL: url, Title: title}, nil
	}

	d.logger.Warn("no extension page could be opened, injecting synthetic UI")
	if err := d.injectSyntheticUI(ctx); err != nil {
		return PageInfo{}, fmt.Errorf("failed to inject synthetic UI: %w", err)
	}
	return PageInfo{URL: "about:blank", Title: "", Synthetic: true}, nil
}

// navigateForTitle navigates and polls until the document title is non-empty.
func (d *Driver) navigateForTitle(ctx context.Context, url string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, d.pageTimeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return "", err
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		var title string
		if err := chromedp.Run(tctx, chromedp.Title(&title)); err == nil && strings.TrimSpace(title) != "" {
			return title, nil
		}

		select {
		case <-tctx.Done():
			return "", fmt.Errorf("page has no title: %w", tctx.Err())
		case <-ticker.C:
		}
	}
}

func (d *Driver) injectSyntheticUI(ctx context.Context) error {
	markup, err := json.Marshal(syntheticUI)
	if err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, d.pageTimeout)
	defer cancel()

	return chromedp.Run(tctx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(fmt.Sprintf(`document.body.innerHTML = %s; true`, markup), nil),
	)
}

// Exists reports whether sel matches an element on the page without waiting for it.
func (d *Driver) Exists(ctx context.Context, sel string) (bool, error) {
	var nodes []*cdp.Node
	err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (d *Driver) require(ctx context.Context, sel string) error {
	ok, err := d.Exists(ctx, sel)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", sel, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSelectorMissing, sel)
	}
	return nil
}

// FillField clears the input matched by sel and types value into it.
func (d *Driver) FillField(ctx context.Context, sel, value string) error {
	if err := d.require(ctx, sel); err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, d.pageTimeout)
	defer cancel()

	if err := chromedp.Run(tctx,
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to fill %s: %w", sel, err)
	}
	return nil
}

// Click clicks the element matched by sel.
func (d *Driver) Click(ctx context.Context, sel string) error {
	if err := d.require(ctx, sel); err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, d.pageTimeout)
	defer cancel()

	if err := chromedp.Run(tctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	return nil
}

// Check selects the radio button or checkbox matched by sel.
func (d *Driver) Check(ctx context.Context, sel string) error {
	if err := d.require(ctx, sel); err != nil {
		return err
	}

	quoted, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		el.checked = true;
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return el.checked;
	})()`, quoted)

	var checked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &checked)); err != nil {
		return fmt.Errorf("failed to check %s: %w", sel, err)
	}
	if !checked {
		return fmt.Errorf("%s did not become checked", sel)
	}
	return nil
}

// Status is a snapshot of the status element.
type Status struct {
	Text  string `json:"text"`
	Class string `json:"className"`
	Found bool   `json:"found"`
}

// Settled reports whether the status shows a final message.
func (s Status) Settled() bool {
	return strings.TrimSpace(s.Text) != "" && !hasClass(s.Class, "loading")
}

func hasClass(classes, name string) bool {
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

// ReadStatus reads the text and class of the element matched by sel in one round trip.
func (d *Driver) ReadStatus(ctx context.Context, sel string) (Status, error) {
	quoted, err := json.Marshal(sel)
	if err != nil {
		return Status{}, err
	}
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return { found: false, text: "", className: "" };
		return { found: true, text: el.textContent || "", className: el.className || "" };
	})()`, quoted)

	var st Status
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &st)); err != nil {
		return Status{}, fmt.Errorf("failed to read %s: %w", sel, err)
	}
	if !st.Found {
		return st, fmt.Errorf("%w: %s", ErrSelectorMissing, sel)
	}
	st.Text = strings.TrimSpace(st.Text)
	return st, nil
}

// ClearStatus empties the text and class of the element matched by sel so
// a message left by an earlier action cannot be read as the next result.
func (d *Driver) ClearStatus(ctx context.Context, sel string) error {
	quoted, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.textContent = "";
		el.className = "";
		return true;
	})()`, quoted)

	var found bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", sel, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrSelectorMissing, sel)
	}
	return nil
}

// ReadText returns the text content of the element matched by sel.
func (d *Driver) ReadText(ctx context.Context, sel string) (string, error) {
	st, err := d.ReadStatus(ctx, sel)
	return st.Text, err
}

// ReadClass returns the class attribute of the element matched by sel.
func (d *Driver) ReadClass(ctx context.Context, sel string) (string, error) {
	st, err := d.ReadStatus(ctx, sel)
	return st.Class, err
}

// WaitStatus polls the status element until it shows a settled message or
// timeout elapses, and returns the last observation. Running out of time is
// not an error; the caller classifies whatever was shown.
func (d *Driver) WaitStatus(ctx context.Context, sel string, timeout time.Duration) (Status, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	var last Status
	for {
		st, err := d.ReadStatus(ctx, sel)
		if err != nil {
			return last, err
		}
		last = st
		if st.Settled() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-deadline.C:
			d.logger.Debug("status did not settle", zap.String("text", last.Text), zap.String("class", last.Class))
			return last, nil
		case <-ticker.C:
		}
	}
}
