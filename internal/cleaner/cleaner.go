// Package cleaner turns the structured table into the clean table consumed by
// reports: duplicate and invalid rows are removed, degenerate columns dropped,
// numeric gaps filled and analytic columns derived.
package cleaner

import (
	"strings"

	"sgjobs/internal/config"
	"sgjobs/internal/logger"
	"sgjobs/internal/table"
)

// Feed columns used by the salary filter and the derivations.
const (
	SalaryMinimumColumn       = "salary_minimum"
	SalaryMaximumColumn       = "salary_maximum"
	OriginalPostingDateColumn = "metadata_originalPostingDate"
	NewPostingDateColumn      = "metadata_newPostingDate"
	ExpiryDateColumn          = "metadata_expiryDate"
	CategoriesListColumn      = "categories_list"
)

// Derived columns, in the order they are appended.
const (
	AverageSalaryColumn   = "average_salary"
	PostingDurationColumn = "posting_duration"
	NumCategoriesColumn   = "num_categories"
	PostingMonthColumn    = "posting_month"
)

// Options controls a Clean call.
type Options struct {
	Columns config.ColumnsConfig

	// FillNumericGaps replaces nulls in numeric columns with 0. This cannot be
	// undone downstream: a filled value is indistinguishable from a real zero.
	FillNumericGaps bool

	Logger *logger.Logger
}

// OptionsFromConfig builds Options from the pipeline configuration.
func OptionsFromConfig(cfg *config.Config, log *logger.Logger) Options {
	return Options{
		Columns:         cfg.Pipeline.Columns,
		FillNumericGaps: cfg.Pipeline.Cleaning.FillNumericGaps,
		Logger:          log,
	}
}

// Stats counts what each pass removed or changed.
type Stats struct {
	InputRows     int
	Duplicates    int
	MissingTitle  int
	InvalidSalary int
	// DroppedColumns lists the all-null columns and the raw categories column.
	DroppedColumns []string
	FilledValues   int
	OutputRows     int
}

// Clean applies the cleaning passes to a copy of t and returns it. The input is
// not modified. Cleaning a clean table returns an equal table.
func Clean(t *table.Table, opts Options) (*table.Table, Stats) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	out := t.Clone()
	stats := Stats{InputRows: out.NumRows()}

	log.Info("cleaning started", "rows", stats.InputRows, "columns", out.NumCols())

	// Derived columns are always recomputed from their inputs.
	if stale := derivable(out); len(stale) > 0 {
		out.Drop(stale...)
	}

	stats.Duplicates = dropDuplicates(out, opts.Columns.ID)
	log.Info("dropped duplicate rows", "step", "dedup", "column", opts.Columns.ID, "removed", stats.Duplicates, "rows", out.NumRows())

	stats.MissingTitle = dropMissingTitle(out, opts.Columns.Title)
	log.Info("dropped rows without title", "step", "title", "removed", stats.MissingTitle, "rows", out.NumRows())

	stats.InvalidSalary = dropInvalidSalary(out)
	log.Info("dropped rows with invalid salary", "step", "salary", "removed", stats.InvalidSalary, "rows", out.NumRows())

	stats.DroppedColumns = dropAllNull(out)
	if len(stats.DroppedColumns) > 0 {
		log.Info("dropped all-null columns", "step", "columns", "columns", stats.DroppedColumns)
	}

	if out.Has(opts.Columns.Categories) {
		out.Drop(opts.Columns.Categories)
		stats.DroppedColumns = append(stats.DroppedColumns, opts.Columns.Categories)
		log.Info("dropped raw categories column", "step", "categories", "column", opts.Columns.Categories)
	}

	if opts.FillNumericGaps {
		stats.FilledValues = fillNumericGaps(out)
		log.Info("filled numeric gaps with zero", "step", "fill", "values", stats.FilledValues)
	}

	canonicalizeEmployment(out, opts.Columns.EmploymentType)

	derived := derive(out)
	log.Info("derived columns", "step", "derive", "columns", derived)

	stats.OutputRows = out.NumRows()
	log.Info("cleaning finished", "rows", stats.OutputRows, "columns", out.NumCols())

	return out, stats
}

func dropDuplicates(t *table.Table, idColumn string) int {
	col := t.Column(idColumn)
	if col == nil {
		return 0
	}

	seen := make(map[any]struct{}, col.Len())
	keep := make([]bool, col.Len())

	for i, v := range col.Values {
		k := key(v)
		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		keep[i] = true
	}

	removed, _ := t.Filter(keep)

	return removed
}

// key makes a value usable as a map key. Nulls share one key, so a second
// null id is a duplicate of the first.
func key(v any) any {
	if l, ok := v.([]string); ok {
		return listKey(strings.Join(l, "\x1f"))
	}

	return v
}

type listKey string

func dropMissingTitle(t *table.Table, titleColumn string) int {
	keep := make([]bool, t.NumRows())

	if col := t.Column(titleColumn); col != nil {
		for i, v := range col.Values {
			keep[i] = v != nil
		}
	}

	removed, _ := t.Filter(keep)

	return removed
}

func dropInvalidSalary(t *table.Table) int {
	lo, hi := t.Column(SalaryMinimumColumn), t.Column(SalaryMaximumColumn)
	if lo == nil || hi == nil {
		return 0
	}

	keep := make([]bool, t.NumRows())

	for i := range keep {
		minimum, okMin := lo.Float(i)
		maximum, okMax := hi.Float(i)
		keep[i] = okMin && okMax && minimum > 0 && maximum > 0
	}

	removed, _ := t.Filter(keep)

	return removed
}

func dropAllNull(t *table.Table) []string {
	var names []string

	for _, c := range t.Columns() {
		if c.IsAllNull() {
			names = append(names, c.Name)
		}
	}

	t.Drop(names...)

	return names
}

func fillNumericGaps(t *table.Table) int {
	filled := 0

	for _, c := range t.Columns() {
		if !c.IsNumeric() {
			continue
		}

		var zero any = 0.0
		if c.Kind == table.Int {
			zero = int64(0)
		}

		for i, v := range c.Values {
			if v == nil {
				c.Values[i] = zero
				filled++
			}
		}
	}

	return filled
}
