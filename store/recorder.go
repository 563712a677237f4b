// ABOUTME: SQLite-backed recorder that persists streamed log lines and metric samples per run.
// ABOUTME: Attached to feeds as an observer; rows survive the session for later replay or export.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/runboard/runboard/api"
)

// LogRow is one recorded log line.
type LogRow struct {
	ID         string
	RunID      string
	Line       string
	RecordedAt string
}

// SampleRow is one recorded metric sample.
type SampleRow struct {
	ID                string
	RunID             string
	Timestamp         string
	CPUPercent        float64
	RAMMb             float64
	RAMLimitMb        *float64
	SoftLimitExceeded bool
	RecordedAt        string
}

// Recorder writes every observed feed event to a SQLite database. One
// recorder serves the whole process; SetRun switches which run new rows are
// attributed to.
type Recorder struct {
	db *sql.DB

	mu    sync.Mutex
	runID string
}

// Open opens or creates the recording database at the given path and runs
// migrations.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS log_lines (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			line TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_log_lines_run ON log_lines(run_id, id);

		CREATE TABLE IF NOT EXISTS metric_samples (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			cpu_percent REAL NOT NULL,
			ram_mb REAL NOT NULL,
			ram_limit_mb REAL,
			soft_limit_exceeded INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_metric_samples_run ON metric_samples(run_id, id);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// SetRun sets the run subsequent events are recorded under.
func (r *Recorder) SetRun(runID string) {
	r.mu.Lock()
	r.runID = runID
	r.mu.Unlock()
}

func (r *Recorder) currentRun() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// LogLine records one streamed log line. Implements the feed observer; errors
// are swallowed because a recording failure must not disturb the live view.
func (r *Recorder) LogLine(line string) {
	runID := r.currentRun()
	if runID == "" {
		return
	}
	_, _ = r.db.Exec(
		"INSERT INTO log_lines (id, run_id, line, recorded_at) VALUES (?, ?, ?, ?)",
		ulid.Make().String(), runID, line, time.Now().UTC().Format(time.RFC3339Nano))
}

// MetricSample records one streamed metric sample.
func (r *Recorder) MetricSample(s api.MetricSample) {
	runID := r.currentRun()
	if runID == "" {
		return
	}
	exceeded := 0
	if s.SoftLimitExceeded {
		exceeded = 1
	}
	_, _ = r.db.Exec(
		`INSERT INTO metric_samples (id, run_id, ts, cpu_percent, ram_mb, ram_limit_mb, soft_limit_exceeded, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ulid.Make().String(), runID, s.Timestamp, s.CPUPercent, s.RAMMb, s.RAMLimitMb,
		exceeded, time.Now().UTC().Format(time.RFC3339Nano))
}

// Lines returns all recorded log lines for a run in arrival order. ULID ids
// sort lexicographically by creation time, so ordering by id is ordering by
// arrival.
func (r *Recorder) Lines(runID string) ([]LogRow, error) {
	rows, err := r.db.Query(
		"SELECT id, run_id, line, recorded_at FROM log_lines WHERE run_id = ? ORDER BY id ASC", runID)
	if err != nil {
		return nil, fmt.Errorf("query log lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LogRow
	for rows.Next() {
		var l LogRow
		if err := rows.Scan(&l.ID, &l.RunID, &l.Line, &l.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Samples returns all recorded metric samples for a run in arrival order.
func (r *Recorder) Samples(runID string) ([]SampleRow, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, ts, cpu_percent, ram_mb, ram_limit_mb, soft_limit_exceeded, recorded_at
		 FROM metric_samples WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query metric samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SampleRow
	for rows.Next() {
		var s SampleRow
		var exceeded int
		if err := rows.Scan(&s.ID, &s.RunID, &s.Timestamp, &s.CPUPercent, &s.RAMMb,
			&s.RAMLimitMb, &exceeded, &s.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}
		s.SoftLimitExceeded = exceeded != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// Runs returns the distinct run ids with any recorded data, newest first.
func (r *Recorder) Runs() ([]string, error) {
	rows, err := r.db.Query(
		`SELECT run_id FROM (
			SELECT run_id, MAX(id) AS last FROM log_lines GROUP BY run_id
			UNION ALL
			SELECT run_id, MAX(id) AS last FROM metric_samples GROUP BY run_id
		 ) GROUP BY run_id ORDER BY MAX(last) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
