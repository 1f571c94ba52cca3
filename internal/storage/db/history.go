package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dlcinst/internal/domain"
)

// Run is a recorded install or uninstall run
type Run struct {
	ID         int64
	Mode       string
	Total      int
	State      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Failed     int
}

// SelectionResult is the recorded result of one selection within a run
type SelectionResult struct {
	RunID       int64
	Platform    string
	SelectionID string
	Name        string
	Succeeded   bool
	Error       string
	ErrorClass  string
	RecordedAt  time.Time
}

// BeginRun records the start of a run and returns its id
func (d *DB) BeginRun(mode string, total int) (int64, error) {
	res, err := d.Exec(`INSERT INTO runs (mode, total, started_at) VALUES (?, ?, ?)`, mode, total, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// RecordSelection stores the result of a selection. Recording the same
// selection twice in a run keeps the latest result.
func (d *DB) RecordSelection(runID int64, sel *domain.ProgramSelection, runErr error) error {
	var msg, class sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
		class = sql.NullString{String: errorClass(runErr), Valid: true}
	}
	_, err := d.Exec(`
		INSERT INTO run_selections (run_id, platform, selection_id, name, succeeded, error, error_class, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, platform, selection_id) DO UPDATE SET
			succeeded = excluded.succeeded,
			error = excluded.error,
			error_class = excluded.error_class,
			recorded_at = excluded.recorded_at
	`, runID, sel.Platform.String(), sel.ID, sel.Name, runErr == nil, msg, class, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording selection %s: %w", sel.ID, err)
	}
	return nil
}

// FinishRun stores the final state of a run
func (d *DB) FinishRun(runID int64, state string) error {
	_, err := d.Exec(`UPDATE runs SET state = ?, finished_at = ? WHERE id = ?`, state, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first
func (d *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.Query(`
		SELECT r.id, r.mode, r.total, r.state, r.started_at, r.finished_at,
			(SELECT COUNT(*) FROM run_selections s WHERE s.run_id = r.id AND s.succeeded = 0)
		FROM runs r
		ORDER BY r.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Mode, &r.Total, &r.State, &r.StartedAt, &finished, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunSelections returns the selection results of a run in recording order
func (d *DB) RunSelections(runID int64) ([]SelectionResult, error) {
	rows, err := d.Query(`
		SELECT run_id, platform, selection_id, name, succeeded, COALESCE(error, ''), COALESCE(error_class, ''), recorded_at
		FROM run_selections
		WHERE run_id = ?
		ORDER BY recorded_at, rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run selections: %w", err)
	}
	defer rows.Close()

	var results []SelectionResult
	for rows.Next() {
		var r SelectionResult
		if err := rows.Scan(&r.RunID, &r.Platform, &r.SelectionID, &r.Name, &r.Succeeded, &r.Error, &r.ErrorClass, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning run selection: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// LastResult returns the latest recorded result for a selection, or nil
func (d *DB) LastResult(platform domain.Platform, id string) (*SelectionResult, error) {
	var r SelectionResult
	err := d.QueryRow(`
		SELECT run_id, platform, selection_id, name, succeeded, COALESCE(error, ''), COALESCE(error_class, ''), recorded_at
		FROM run_selections
		WHERE platform = ? AND selection_id = ?
		ORDER BY run_id DESC
		LIMIT 1
	`, platform.String(), id).Scan(&r.RunID, &r.Platform, &r.SelectionID, &r.Name, &r.Succeeded, &r.Error, &r.ErrorClass, &r.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting last result: %w", err)
	}
	return &r, nil
}

// Prune deletes all but the newest keep runs
func (d *DB) Prune(keep int) (int64, error) {
	res, err := d.Exec(`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrProcessRunning):
		return "process_running"
	case errors.Is(err, domain.ErrFilesystem):
		return "filesystem"
	default:
		return "other"
	}
}
