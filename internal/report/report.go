package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/ytsubtest/internal/types"
)

// Exit codes of a run
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitInterrupted = 130
)

// ExitCode maps a run to the process exit code
func ExitCode(run *types.Run) int {
	switch {
	case run == nil:
		return ExitFailed
	case run.Interrupted:
		return ExitInterrupted
	case run.OK():
		return ExitOK
	default:
		return ExitFailed
	}
}

// Summary returns the final "N passed, M failed" line
func Summary(run *types.Run) string {
	passed, failed := run.Counts()
	return fmt.Sprintf("%d passed, %d failed", passed, failed)
}

// Builder renders run reports
type Builder struct {
	template *template.Template
}

// New creates a new report builder
func New() (*Builder, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"base": filepath.Base,
		"ms":   func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	}).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{template: tmpl}, nil
}

// Report is a rendered run
type Report struct {
	Title     string
	Summary   string
	HTMLBody  string
	PlainBody string
}

// ReportData is the template data structure
type ReportData struct {
	Title       string
	Date        string
	RunID       string
	ExtensionID string
	Synthetic   bool
	Summary     string
	OK          bool
	Fatal       string
	Interrupted bool
	Duration    time.Duration
	Outcomes    []types.Outcome
	Warnings    []string
}

// Build renders the run as HTML and plain text
func (b *Builder) Build(run *types.Run) (*Report, error) {
	if run == nil {
		return nil, fmt.Errorf("no run to report")
	}

	data := ReportData{
		Title:       "Subtitle extension test run",
		Date:        run.StartedAt.Format("Monday, January 2 15:04"),
		RunID:       run.ID,
		ExtensionID: run.ExtensionID,
		Synthetic:   run.Synthetic,
		Summary:     Summary(run),
		OK:          run.OK(),
		Fatal:       run.Fatal,
		Interrupted: run.Interrupted,
		Duration:    run.Duration(),
		Outcomes:    run.Outcomes,
		Warnings:    run.Warnings,
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Title:     data.Title,
		Summary:   data.Summary,
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
	}, nil
}

// WriteHTML renders the run and writes the HTML report to path
func (b *Builder) WriteHTML(run *types.Run, path string) error {
	r, err := b.Build(run)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(r.HTMLBody), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%s\n", data.Title, data.Date)
	if data.ExtensionID != "" {
		fmt.Fprintf(&buf, "extension: %s", data.ExtensionID)
		if data.Synthetic {
			buf.WriteString(" (synthetic UI)")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("\n")

	for _, o := range data.Outcomes {
		mark := "PASS"
		if !o.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&buf, "[%s] %s: %s\n", mark, o.Scenario, o.Message)
		if o.StatusText != "" {
			fmt.Fprintf(&buf, "       status: %q (%s)\n", o.StatusText, o.StatusClass)
		}
		if o.Error != "" {
			fmt.Fprintf(&buf, "       error: %s\n", o.Error)
		}
		for _, f := range o.Files {
			fmt.Fprintf(&buf, "       file: %s\n", filepath.Base(f))
		}
		for _, w := range o.Warnings {
			fmt.Fprintf(&buf, "       warning: %s\n", w)
		}
	}

	if data.Fatal != "" {
		fmt.Fprintf(&buf, "\naborted: %s\n", data.Fatal)
	}
	if data.Interrupted {
		buf.WriteString("\ninterrupted\n")
	}
	for _, w := range data.Warnings {
		fmt.Fprintf(&buf, "cleanup warning: %s\n", w)
	}

	fmt.Fprintf(&buf, "\n%s\n", data.Summary)
	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 720px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .meta { color: #666; font-size: 13px; }
        .outcome { border-bottom: 1px solid #eee; padding: 15px 0; }
        .outcome:last-child { border-bottom: none; }
        .name { font-weight: bold; color: #333; }
        .pass { color: #2e7d32; }
        .fail { color: #c62828; }
        .status { margin: 8px 0; font-family: monospace; }
        .warning { color: #ef6c00; font-size: 13px; }
        .summary { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; font-weight: bold; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>
        <div class="meta">run {{.RunID}}{{if .ExtensionID}} · extension {{.ExtensionID}}{{end}}{{if .Synthetic}} · synthetic UI{{end}} · {{ms .Duration}}</div>

        {{if .Fatal}}<p class="fail">Aborted: {{.Fatal}}</p>{{end}}
        {{if .Interrupted}}<p class="fail">Interrupted</p>{{end}}

        {{range .Outcomes}}
        <div class="outcome">
            <div class="name">{{.Scenario}} {{if .Passed}}<span class="pass">PASS</span>{{else}}<span class="fail">FAIL</span>{{end}}</div>
            <div>{{.Message}}</div>
            {{if .StatusText}}<div class="status">{{.StatusText}} ({{.StatusClass}}, {{.Verdict}})</div>{{end}}
            {{if .Error}}<div class="fail">{{.Error}}</div>{{end}}
            {{range .Files}}<div class="meta">file: {{base .}}</div>{{end}}
            {{range .Warnings}}<div class="warning">{{.}}</div>{{end}}
            <div class="meta">{{ms .Duration}}</div>
        </div>
        {{end}}

        {{range .Warnings}}<div class="warning">cleanup: {{.}}</div>{{end}}

        <div class="summary {{if .OK}}pass{{else}}fail{{end}}">{{.Summary}}</div>
    </div>
</body>
</html>`
