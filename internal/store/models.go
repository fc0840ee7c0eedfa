package store

import "time"

// RunSummary is one row of the run history
type RunSummary struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ExtensionID string    `json:"extension_id"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	ExitCode    int       `json:"exit_code"`
	Fatal       string    `json:"fatal,omitempty"`
	Interrupted bool      `json:"interrupted"`
}
