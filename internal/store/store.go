// Package store keeps an optional history of runs in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/ytsubtest/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		extension_id TEXT,
		synthetic BOOLEAN,
		passed INTEGER,
		failed INTEGER,
		exit_code INTEGER,
		fatal TEXT,
		interrupted BOOLEAN,
		warnings TEXT
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		expect TEXT,
		passed BOOLEAN,
		message TEXT,
		status_text TEXT,
		status_class TEXT,
		verdict TEXT,
		files TEXT,
		warnings TEXT,
		error TEXT,
		duration_ns INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun records a finished run and its outcomes. Saving the same run
// again replaces it.
func (s *Store) SaveRun(run *types.Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	passed, failed := run.Counts()
	warningsJSON, _ := json.Marshal(run.Warnings)

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, extension_id, synthetic,
			passed, failed, exit_code, fatal, interrupted, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			extension_id = excluded.extension_id,
			synthetic = excluded.synthetic,
			passed = excluded.passed,
			failed = excluded.failed,
			exit_code = excluded.exit_code,
			fatal = excluded.fatal,
			interrupted = excluded.interrupted,
			warnings = excluded.warnings
	`, run.ID, run.StartedAt, run.FinishedAt, run.ExtensionID, run.Synthetic,
		passed, failed, run.ExitCode, run.Fatal, run.Interrupted, string(warningsJSON))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM outcomes WHERE run_id = ?`, run.ID); err != nil {
		return err
	}

	for i, o := range run.Outcomes {
		filesJSON, _ := json.Marshal(o.Files)
		outWarningsJSON, _ := json.Marshal(o.Warnings)

		_, err := tx.Exec(`
			INSERT INTO outcomes (run_id, position, scenario, expect, passed, message,
				status_text, status_class, verdict, files, warnings, error, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, o.Scenario, string(o.Expect), o.Passed, o.Message,
			o.StatusText, o.StatusClass, string(o.Verdict), string(filesJSON),
			string(outWarningsJSON), o.Error, int64(o.Duration))
		if err != nil {
			return fmt.Errorf("failed to save outcome %s: %w", o.Scenario, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, extension_id, passed, failed,
			exit_code, fatal, interrupted
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.ExtensionID,
			&r.Passed, &r.Failed, &r.ExitCode, &r.Fatal, &r.Interrupted)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns the outcomes of a run in scenario order
func (s *Store) Outcomes(runID string) ([]types.Outcome, error) {
	rows, err := s.db.Query(`
		SELECT scenario, expect, passed, message, status_text, status_class,
			verdict, files, warnings, error, duration_ns
		FROM outcomes
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []types.Outcome
	for rows.Next() {
		var o types.Outcome
		var expect, verdict, filesJSON, warningsJSON string
		var durationNS int64

		err := rows.Scan(&o.Scenario, &expect, &o.Passed, &o.Message,
			&o.StatusText, &o.StatusClass, &verdict, &filesJSON, &warningsJSON,
			&o.Error, &durationNS)
		if err != nil {
			return nil, err
		}

		o.Expect = types.Expectation(expect)
		o.Verdict = types.Verdict(verdict)
		o.Duration = time.Duration(durationNS)
		json.Unmarshal([]byte(filesJSON), &o.Files)
		json.Unmarshal([]byte(warningsJSON), &o.Warnings)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// FindRun resolves a full run ID from a unique prefix. The prefix is
// matched literally.
func (s *Store) FindRun(prefix string) (string, error) {
	rows, err := s.db.Query(`SELECT id FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, prefix, prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no run matches %q", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run prefix %q is ambiguous", prefix)
	}
}
