package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-amplicon-pipeline/internal/model"
)

// Store is the run tracking ledger. It records what happened; nothing reads it back
// to decide what to run.
type Store struct {
	db *sql.DB
}

// RunRecord is one batch run
type RunRecord struct {
	ID         string
	ConfigPath string
	Samples    int
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JobEvent is one state transition of a barcode job
type JobEvent struct {
	RunID     string
	Sample    string
	Barcode   string
	State     model.JobState
	Detail    string
	CreatedAt time.Time
}

// Open opens (creating if needed) the tracking database at dbPath
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking db %s: %w", dbPath, err)
	}

	// Create tables if not exists
	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		config_path TEXT,
		samples INTEGER,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	eventTable := `
	CREATE TABLE IF NOT EXISTS job_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		sample TEXT,
		barcode TEXT,
		state TEXT,
		detail TEXT,
		created_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, eventTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialise tracking db: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a new run in the running state
func (s *Store) SaveRun(runID, configPath string, samples int) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`INSERT INTO runs (id, config_path, samples, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, configPath, samples, model.RunRunning, now, now)
	return err
}

// UpdateRunStatus updates run status
func (s *Store) UpdateRunStatus(runID, status string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveJobEvent records a barcode job entering a state
func (s *Store) SaveJobEvent(runID, sample, barcode string, state model.JobState, detail string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`INSERT INTO job_events (run_id, sample, barcode, state, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, sample, barcode, string(state), detail, now)
	return err
}

// SaveRunError records an error for a run
func (s *Store) SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := s.db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// GetRun fetches one run
func (s *Store) GetRun(runID string) (RunRecord, error) {
	rec := RunRecord{ID: runID}
	err := s.db.QueryRow(`SELECT config_path, samples, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&rec.ConfigPath, &rec.Samples, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// ListJobEvents returns a run's job events in the order they were recorded
func (s *Store) ListJobEvents(runID string) ([]JobEvent, error) {
	rows, err := s.db.Query(`SELECT sample, barcode, state, detail, created_at FROM job_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []JobEvent
	for rows.Next() {
		ev := JobEvent{RunID: runID}
		var state string
		if err := rows.Scan(&ev.Sample, &ev.Barcode, &state, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.State = model.JobState(state)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListRunErrors returns the error messages recorded for a run
func (s *Store) ListRunErrors(runID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT error_message FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
