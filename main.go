package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/app"
	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/logging"
	"github.com/ibeckermayer/ytsubtest/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger, err := logging.New("info", false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return report.ExitFailed
	}
	defer logger.Sync()

	// Load or create configuration
	cfg, err := config.Load("")
	if err != nil {
		if os.IsNotExist(err) {
			// First run - create default config
			cfg = config.Default()
			if err := cfg.Save(""); err != nil {
				logger.Warn("could not save default config", zap.Error(err))
			} else {
				path, _ := config.ConfigPath()
				logger.Info("created default config", zap.String("path", path))
			}
		} else {
			logger.Warn("could not load config, using defaults", zap.Error(err))
			cfg = config.Default()
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		logger.Error("failed to get working dir", zap.Error(err))
		return report.ExitFailed
	}
	if err := cfg.Resolve(wd); err != nil {
		logger.Error("invalid config", zap.Error(err))
		return report.ExitFailed
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", zap.Error(err))
		return report.ExitFailed
	}

	hist, err := app.OpenHistory(cfg)
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
	}
	var a *app.App
	if hist != nil {
		defer hist.Close()
		a = app.New(cfg, logger, hist)
	} else {
		a = app.New(cfg, logger, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("ytsubtest starting...")
	r := a.Run(ctx, nil)

	if b, err := report.New(); err == nil {
		if rep, err := b.Build(r); err == nil {
			fmt.Print(rep.PlainBody)
		}
	}
	return r.ExitCode
}
