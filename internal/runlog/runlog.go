// Package runlog keeps a ledger of pipeline runs in a SQLite database.
package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Register sqlite driver
)

//go:embed migrations/001_runs.sql
var migration string

// ErrInvalidLimit is returned by List for a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be positive")

// Stage names recorded by the pipeline.
const (
	StageIngest = "ingest"
	StageClean  = "clean"
	StageReport = "report"
)

// Run is one recorded pipeline stage execution.
type Run struct {
	ID         int64
	Stage      string
	Source     string
	Outputs    []string
	StartedAt  time.Time
	FinishedAt time.Time
	RowsIn     int
	RowsOut    int

	Duplicates     int
	MissingTitle   int
	InvalidSalary  int
	DroppedColumns []string

	// Error is empty for a successful run.
	Error string
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the run ended with an error.
func (r Run) Failed() bool {
	return r.Error != ""
}

// Recorder stores runs.
type Recorder interface {
	Record(ctx context.Context, r *Run) error
}

// Store is a Recorder backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the ledger at dsn and applies the schema. Use ":memory:" for a
// throwaway ledger.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// Each connection to ":memory:" gets its own database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts r and sets its ID.
func (s *Store) Record(ctx context.Context, r *Run) error {
	const query = `INSERT INTO runs (stage, source, outputs, started_at, finished_at,
		rows_in, rows_out, duplicates, missing_title, invalid_salary, dropped_columns, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	outputs, err := encodeList(r.Outputs)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	dropped, err := encodeList(r.DroppedColumns)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	var runErr sql.NullString
	if r.Error != "" {
		runErr = sql.NullString{String: r.Error, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, query,
		r.Stage, r.Source, outputs,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.RowsIn, r.RowsOut, r.Duplicates, r.MissingTitle, r.InvalidSalary,
		dropped, runErr,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	r.ID, _ = res.LastInsertId()

	return nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	const query = `SELECT id, stage, source, outputs, started_at, finished_at,
		rows_in, rows_out, duplicates, missing_title, invalid_salary, dropped_columns, error
		FROM runs ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run

	for rows.Next() {
		var (
			r                 Run
			outputs, dropped  string
			started, finished string
			runErr            sql.NullString
		)

		if err := rows.Scan(
			&r.ID, &r.Stage, &r.Source, &outputs, &started, &finished,
			&r.RowsIn, &r.RowsOut, &r.Duplicates, &r.MissingTitle, &r.InvalidSalary,
			&dropped, &runErr,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		r.Error = runErr.String

		if r.Outputs, err = decodeList(outputs); err != nil {
			return nil, fmt.Errorf("run %d outputs: %w", r.ID, err)
		}

		if r.DroppedColumns, err = decodeList(dropped); err != nil {
			return nil, fmt.Errorf("run %d dropped columns: %w", r.ID, err)
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

func encodeList(l []string) (string, error) {
	if l == nil {
		l = []string{}
	}

	b, err := json.Marshal(l)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var l []string
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		return nil, err
	}

	return l, nil
}
