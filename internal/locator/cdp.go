package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// CDPProber implements Prober over chromedp. The contexts passed to it must
// descend from a chromedp browser context.
type CDPProber struct{}

func (CDPProber) Targets(ctx context.Context) ([]*target.Info, error) {
	return chromedp.Targets(ctx)
}

func (CDPProber) OpenTab(ctx context.Context) (Tab, error) {
	tabCtx, cancel := chromedp.NewContext(ctx)
	// An empty Run creates the target.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, err
	}
	return &cdpTab{ctx: tabCtx, cancel: cancel}, nil
}

type cdpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *cdpTab) Navigate(url string, timeout time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(ctx, chromedp.Navigate(url))
	if err != nil {
		return 0, err
	}
	if resp == nil {
		return 0, fmt.Errorf("no response for %s", url)
	}
	return resp.Status, nil
}

func (t *cdpTab) Close() error {
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
