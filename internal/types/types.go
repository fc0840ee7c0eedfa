package types

import "time"

// Verdict is how a status message was classified
type Verdict string

const (
	VerdictSuccess     Verdict = "success"
	VerdictNoSubtitles Verdict = "no-subtitles"
	VerdictError       Verdict = "error"
	VerdictLoading     Verdict = "loading"
	VerdictUnknown     Verdict = "unknown"
)

// Expectation is what a scenario expects the extension to do
type Expectation string

const (
	ExpectDownload Expectation = "download"
	ExpectError    Expectation = "error"
)

// Outcome is the result of one scenario
type Outcome struct {
	Scenario    string        `json:"scenario"`
	Expect      Expectation   `json:"expect"`
	Passed      bool          `json:"passed"`
	Message     string        `json:"message"`
	StatusText  string        `json:"status_text"`
	StatusClass string        `json:"status_class"`
	Verdict     Verdict       `json:"verdict"`
	Files       []string      `json:"files,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Run is one execution of the scenario suite
type Run struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ExtensionID string    `json:"extension_id"`
	Synthetic   bool      `json:"synthetic"`
	Outcomes    []Outcome `json:"outcomes"`
	// Fatal is set when the run aborted before or between scenarios
	Fatal       string   `json:"fatal,omitempty"`
	Interrupted bool     `json:"interrupted"`
	Warnings    []string `json:"warnings,omitempty"`
	ExitCode    int      `json:"exit_code"`
}

// Counts returns the number of passed and failed outcomes.
func (r *Run) Counts() (passed, failed int) {
	for _, o := range r.Outcomes {
		if o.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// OK reports whether the run finished and every outcome passed.
func (r *Run) OK() bool {
	if r.Fatal != "" || r.Interrupted {
		return false
	}
	_, failed := r.Counts()
	return failed == 0
}

// Duration returns the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
