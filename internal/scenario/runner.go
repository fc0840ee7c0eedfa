package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/ytsubtest/internal/downloads"
	"github.com/ibeckermayer/ytsubtest/internal/driver"
	"github.com/ibeckermayer/ytsubtest/internal/types"
)

// UI is the part of the driver a scenario uses.
type UI interface {
	FillField(ctx context.Context, sel, value string) error
	Click(ctx context.Context, sel string) error
	Check(ctx context.Context, sel string) error
	ClearStatus(ctx context.Context, sel string) error
	WaitStatus(ctx context.Context, sel string, timeout time.Duration) (driver.Status, error)
}

// Options control how outcomes are judged.
type Options struct {
	DownloadDir string
	Pattern     string
	RequireFile bool
	// FileWait bounds how long a reported success may take to produce a file.
	FileWait time.Duration
}

// Runner executes scenarios against the options page.
type Runner struct {
	logger *zap.Logger
	ui     UI
	opts   Options
}

// NewRunner creates a runner.
func NewRunner(logger *zap.Logger, ui UI, opts Options) *Runner {
	if opts.FileWait <= 0 {
		opts.FileWait = 2 * time.Second
	}
	return &Runner{
		logger: logger.Named("scenario"),
		ui:     ui,
		opts:   opts,
	}
}

// RunAll runs the scenarios in order. A failing scenario never stops the
// others; only a cancelled context does.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) []types.Outcome {
	outcomes := make([]types.Outcome, 0, len(scenarios))
	for _, s := range scenarios {
		if ctx.Err() != nil {
			r.logger.Warn("skipping remaining scenarios", zap.Error(ctx.Err()))
			break
		}
		outcomes = append(outcomes, r.Run(ctx, s))
	}
	return outcomes
}

// Run executes one scenario. Every failure, including driver errors, is
// reported through the returned Outcome.
func (r *Runner) Run(ctx context.Context, s Scenario) types.Outcome {
	log := r.logger.With(zap.String("scenario", s.Name))
	log.Info("starting", zap.String("url", s.VideoURL), zap.String("expect", string(s.Expect)))

	start := time.Now()
	out := r.run(ctx, s, log)
	out.Duration = time.Since(start)

	if out.Passed {
		log.Info("passed", zap.String("message", out.Message), zap.Duration("took", out.Duration))
	} else {
		log.Error("failed", zap.String("message", out.Message), zap.String("error", out.Error))
	}
	for _, w := range out.Warnings {
		log.Warn(w)
	}
	return out
}

func (r *Runner) run(ctx context.Context, s Scenario, log *zap.Logger) types.Outcome {
	out := types.Outcome{Scenario: s.Name, Expect: s.Expect}

	// Leftovers from an earlier scenario must not count for this one.
	removed, warnings := downloads.Clean(r.opts.DownloadDir, r.opts.Pattern)
	if len(removed) > 0 {
		log.Debug("removed earlier downloads", zap.Strings("files", removed))
	}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}

	if err := r.drive(ctx, s); err != nil {
		return fail(out, "UI interaction failed", err)
	}

	st, err := r.ui.WaitStatus(ctx, driver.StatusBox, s.Wait)
	if err != nil {
		return fail(out, "could not read status", err)
	}
	out.StatusText = st.Text
	out.StatusClass = st.Class
	out.Verdict = Classify(st.Text, st.Class)
	log.Info("status", zap.String("text", st.Text), zap.String("class", st.Class), zap.String("verdict", string(out.Verdict)))

	files, err := r.collectFiles(ctx, s.Expect, out.Verdict)
	if err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	}
	out.Files = files

	j := Judge(s.Expect, out.Verdict, st.Text, files, r.opts.RequireFile)
	out.Passed = j.Passed
	out.Message = j.Message
	out.Warnings = append(out.Warnings, j.Warnings...)

	if out.Passed && s.Expect == types.ExpectDownload {
		for _, f := range files {
			if err := downloads.Validate(f, s.Format); err != nil {
				return fail(out, "downloaded subtitles are malformed", err)
			}
		}
	}
	return out
}

func (r *Runner) drive(ctx context.Context, s Scenario) error {
	if err := r.ui.FillField(ctx, driver.VideoURLInput, s.VideoURL); err != nil {
		return err
	}
	if err := r.ui.Check(ctx, driver.SubtitleTypeSelector(s.SubtitleType)); err != nil {
		return err
	}
	if err := r.ui.Check(ctx, driver.FormatSelector(s.Format)); err != nil {
		return err
	}
	if err := r.ui.ClearStatus(ctx, driver.StatusBox); err != nil {
		return err
	}
	return r.ui.Click(ctx, driver.GetSubtitlesBtn)
}

// collectFiles waits for a download after a reported success and otherwise
// takes a snapshot of whatever matched.
func (r *Runner) collectFiles(ctx context.Context, expect types.Expectation, v types.Verdict) ([]string, error) {
	if expect == types.ExpectDownload && v == types.VerdictSuccess {
		files, err := downloads.Wait(ctx, r.opts.DownloadDir, r.opts.Pattern, r.opts.FileWait)
		if errors.Is(err, downloads.ErrNoDownload) {
			return nil, nil
		}
		return files, err
	}
	return downloads.Glob(r.opts.DownloadDir, r.opts.Pattern)
}

func fail(out types.Outcome, msg string, err error) types.Outcome {
	out.Passed = false
	out.Message = msg
	if err != nil {
		out.Error = err.Error()
		if errors.Is(err, driver.ErrSelectorMissing) {
			out.Message = fmt.Sprintf("%s: element missing", msg)
		}
	}
	return out
}
