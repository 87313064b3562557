package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test ledger: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestRecord_And_List(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	ingest := &Run{
		Stage:      StageIngest,
		Source:     "data/raw/SGJobData.csv",
		Outputs:    []string{"a.parquet", "a.csv"},
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		RowsIn:     10,
		RowsOut:    10,
	}

	if err := s.Record(ctx, ingest); err != nil {
		t.Fatalf("record: %v", err)
	}

	if ingest.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	clean := &Run{
		Stage:          StageClean,
		Source:         "a.parquet",
		StartedAt:      started.Add(time.Minute),
		FinishedAt:     started.Add(2 * time.Minute),
		RowsIn:         10,
		RowsOut:        7,
		Duplicates:     1,
		MissingTitle:   1,
		InvalidSalary:  1,
		DroppedColumns: []string{"categories"},
		Error:          "boom",
	}

	if err := s.Record(ctx, clean); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	if runs[0].Stage != StageClean || runs[1].Stage != StageIngest {
		t.Errorf("expected newest first, got %s, %s", runs[0].Stage, runs[1].Stage)
	}

	got := runs[0]
	if got.RowsOut != 7 || got.Duplicates != 1 || got.InvalidSalary != 1 {
		t.Errorf("counters not stored: %+v", got)
	}

	if !got.Failed() || got.Error != "boom" {
		t.Errorf("expected failed run with error, got %q", got.Error)
	}

	if !slices.Equal(got.DroppedColumns, []string{"categories"}) {
		t.Errorf("dropped columns = %v", got.DroppedColumns)
	}

	if got.Outputs == nil || len(got.Outputs) != 0 {
		t.Errorf("expected empty outputs, got %v", got.Outputs)
	}

	if d := runs[1].Duration(); d != 1500*time.Millisecond {
		t.Errorf("duration = %v", d)
	}

	if runs[1].Failed() {
		t.Error("ingest run should not be failed")
	}
}

func TestList_Limit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for range 3 {
		if err := s.Record(ctx, &Run{Stage: StageIngest, Source: "x"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}

	if _, err := s.List(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Record(context.Background(), &Run{Stage: StageReport, Source: "clean.csv"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	_ = s.Close()

	// Reopening applies the schema again without losing data.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()

	runs, err := s.List(context.Background(), 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(runs) != 1 || runs[0].Stage != StageReport {
		t.Errorf("unexpected runs after reopen: %+v", runs)
	}
}
