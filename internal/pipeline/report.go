package pipeline

import (
	"context"
	"fmt"

	"sgjobs/internal/dataset"
	"sgjobs/internal/report"
	"sgjobs/internal/runlog"
	"sgjobs/internal/storage"
)

// ReportResult is the outcome of the report stage.
type ReportResult struct {
	Summary *report.Summary
	Load    dataset.Stats
	Output  string
}

// Report loads the clean CSV and writes the signed markdown summary. It only
// reads pipeline outputs, so it does not take the lock.
func (p *Pipeline) Report(ctx context.Context) (res *ReportResult, err error) {
	paths := p.cfg.Pipeline.Paths
	log := p.log.Stage(runlog.StageReport)

	run := &runlog.Run{
		Stage:     runlog.StageReport,
		Source:    paths.CleanCSV,
		Outputs:   []string{paths.Report},
		StartedAt: p.now(),
	}

	defer func() {
		if res != nil {
			run.RowsIn, run.RowsOut = res.Load.RowsRead, res.Load.Rows
		}

		p.record(ctx, run, err)
	}()

	t, stats, err := p.cache.Get(paths.CleanCSV)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	log.Info("clean table loaded", "rows", stats.Rows, "salary_outliers", stats.SalaryOutliers, "experience_out_of_range", stats.ExperienceOut)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := report.Build(t, report.Options{
		IDColumn:             p.cfg.Pipeline.Columns.ID,
		EmploymentTypeColumn: p.cfg.Pipeline.Columns.EmploymentType,
		TopN:                 p.cfg.Report.TopN,
	})

	doc := report.Render(summary, report.RenderOptions{Source: paths.CleanCSV, GeneratedAt: p.now()})

	if err := storage.WriteFile(p.fs, paths.Report, []byte(doc)); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	log.Info("report written", "path", paths.Report)

	return &ReportResult{Summary: summary, Load: stats, Output: paths.Report}, nil
}
