package pipeline

import (
	"context"
	"fmt"

	"sgjobs/internal/normalizer"
	"sgjobs/internal/runlog"
	"sgjobs/internal/storage"
)

// IngestResult is the outcome of the ingest stage.
type IngestResult struct {
	Rows      int
	Columns   int
	Normalize *normalizer.Result
	Outputs   []string
}

// Ingest reads the raw CSV, normalizes it and writes the structured snapshot.
func (p *Pipeline) Ingest(ctx context.Context) (*IngestResult, error) {
	var res *IngestResult

	err := p.locked(func() error {
		var err error
		res, err = p.ingest(ctx)

		return err
	})

	return res, err
}

func (p *Pipeline) ingest(ctx context.Context) (res *IngestResult, err error) {
	paths := p.cfg.Pipeline.Paths
	log := p.log.Stage(runlog.StageIngest)

	run := &runlog.Run{
		Stage:     runlog.StageIngest,
		Source:    paths.Raw,
		Outputs:   []string{paths.StructuredParquet, paths.StructuredCSV},
		StartedAt: p.now(),
	}

	defer func() {
		if res != nil {
			run.RowsOut = res.Rows
		}

		p.record(ctx, run, err)
	}()

	log.Info("loading raw file", "path", paths.Raw)

	t, err := storage.ReadCSV(p.fs, paths.Raw, p.readOpts...)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	run.RowsIn = t.NumRows()
	log.Info("raw file loaded", "rows", t.NumRows(), "columns", t.NumCols())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	norm, err := normalizer.NewProcessor(p.cfg.Pipeline.Columns, log).Process(t)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := storage.WriteStructured(p.fs, t, paths.StructuredParquet, paths.StructuredCSV); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	log.Info("structured snapshot written", "parquet", paths.StructuredParquet, "csv", paths.StructuredCSV, "rows", t.NumRows())

	return &IngestResult{
		Rows:      t.NumRows(),
		Columns:   t.NumCols(),
		Normalize: norm,
		Outputs:   run.Outputs,
	}, nil
}
