// Command inspect opens a visible browser with the extension under test
// loaded and navigates to its options page, so the UI and the launch flags
// can be checked by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/browser"
	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/extension"
	"github.com/ibeckermayer/ytsubtest/internal/locator"
	"github.com/ibeckermayer/ytsubtest/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (default is the user config dir)")
	flag.Parse()

	logger, err := logging.New("debug", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("could not load config, using defaults", zap.Error(err))
		cfg = config.Default()
	}
	cfg.Browser.Headless = false // visible so you can see it

	wd, _ := os.Getwd()
	if err := cfg.Resolve(wd); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	sess, err := browser.Start(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to start browser", zap.Error(err))
	}
	defer sess.Stop()

	loc := locator.New(logger, locator.CDPProber{}, cfg.Extension.ProbePaths,
		cfg.Timing.ProbeTimeout.Duration, cfg.Extension.Match)
	res, err := loc.Resolve(sess.Context(), sess)
	if err != nil {
		logger.Error("could not resolve extension", zap.Error(err))
	} else {
		m, _ := extension.LoadManifest(cfg.Extension.Path)
		page := extension.PageURL(res.ID, extension.PageCandidates(m, cfg.Extension.PageCandidates)[0])
		logger.Info("opening extension page", zap.String("url", page))
		if err := chromedp.Run(sess.Context(), chromedp.Navigate(page)); err != nil {
			logger.Error("failed to navigate", zap.Error(err))
		}
	}

	fmt.Println("Press Enter to close the browser...")
	fmt.Scanln()

	logger.Info("done")
}
