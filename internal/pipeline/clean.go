package pipeline

import (
	"context"
	"fmt"

	"sgjobs/internal/cleaner"
	"sgjobs/internal/runlog"
	"sgjobs/internal/storage"
)

// CleanResult is the outcome of the clean stage.
type CleanResult struct {
	Stats   cleaner.Stats
	Columns int
	Output  string
}

// Clean reads the structured snapshot, cleans it and writes the clean CSV.
func (p *Pipeline) Clean(ctx context.Context) (*CleanResult, error) {
	var res *CleanResult

	err := p.locked(func() error {
		var err error
		res, err = p.clean(ctx)

		return err
	})

	return res, err
}

func (p *Pipeline) clean(ctx context.Context) (res *CleanResult, err error) {
	paths := p.cfg.Pipeline.Paths
	log := p.log.Stage(runlog.StageClean)

	run := &runlog.Run{
		Stage:     runlog.StageClean,
		Source:    paths.StructuredParquet,
		Outputs:   []string{paths.CleanCSV},
		StartedAt: p.now(),
	}

	defer func() {
		if res != nil {
			s := res.Stats
			run.RowsIn, run.RowsOut = s.InputRows, s.OutputRows
			run.Duplicates, run.MissingTitle, run.InvalidSalary = s.Duplicates, s.MissingTitle, s.InvalidSalary
			run.DroppedColumns = s.DroppedColumns
		}

		p.record(ctx, run, err)
	}()

	log.Info("loading structured snapshot", "path", paths.StructuredParquet)

	t, err := storage.ReadParquet(ctx, p.fs, paths.StructuredParquet)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, stats := cleaner.Clean(t, cleaner.OptionsFromConfig(p.cfg, log))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := storage.WriteCSV(p.fs, out, paths.CleanCSV); err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	p.cache.Invalidate(paths.CleanCSV)
	log.Info("clean table written", "path", paths.CleanCSV, "rows", out.NumRows(), "columns", out.NumCols())

	return &CleanResult{Stats: stats, Columns: out.NumCols(), Output: paths.CleanCSV}, nil
}
