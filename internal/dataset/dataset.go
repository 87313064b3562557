// Package dataset loads the clean table for reporting. Loading re-types the CSV
// columns, adds per-vacancy ratios and trims salary outliers.
package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"sgjobs/internal/cleaner"
	"sgjobs/internal/config"
	"sgjobs/internal/normalizer"
	"sgjobs/internal/storage"
	"sgjobs/internal/table"
)

// Columns added or relied on by the loader.
const (
	AppsPerVacancyColumn = "apps_per_vacancy"
	ApplicationsColumn   = "metadata_totalNumberJobApplication"
	VacanciesColumn      = "numberOfVacancies"
	ViewsColumn          = "metadata_totalNumberOfView"
	ExperienceColumn     = "minimumYearsExperience"
	CompanyColumn        = "postedCompany_name"
)

// derivedNumerics are written by the cleaner and typed again on load.
var derivedNumerics = []string{
	cleaner.AverageSalaryColumn,
	cleaner.PostingDurationColumn,
	cleaner.NumCategoriesColumn,
}

// Options controls Load.
type Options struct {
	Columns config.ColumnsConfig

	RemoveOutliers bool
	LowerQuantile  float64
	UpperQuantile  float64

	// MaxExperienceYears bounds minimumYearsExperience to [0, max]. Zero
	// disables the bound.
	MaxExperienceYears float64
}

// OptionsFromConfig builds Options from the report configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Columns:            cfg.Pipeline.Columns,
		RemoveOutliers:     cfg.Report.RemoveOutliers,
		LowerQuantile:      cfg.Report.LowerQuantile,
		UpperQuantile:      cfg.Report.UpperQuantile,
		MaxExperienceYears: cfg.Report.MaxExperienceYears,
	}
}

// Stats reports how many rows each trim removed.
type Stats struct {
	RowsRead       int
	SalaryOutliers int
	ExperienceOut  int
	Rows           int
}

// Load reads the clean CSV at path and prepares it for reporting.
func Load(fs afero.Fs, path string, opts Options, readOpts ...storage.ReadOption) (*table.Table, Stats, error) {
	t, err := storage.ReadCSV(fs, path, readOpts...)
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{RowsRead: t.NumRows()}

	retype(t, opts.Columns)
	bucketMonths(t)

	if err := addAppsPerVacancy(t); err != nil {
		return nil, stats, err
	}

	if opts.RemoveOutliers {
		if stats.SalaryOutliers, err = trimQuantiles(t, cleaner.AverageSalaryColumn, opts.LowerQuantile, opts.UpperQuantile); err != nil {
			return nil, stats, err
		}
	}

	if opts.MaxExperienceYears > 0 {
		if stats.ExperienceOut, err = bound(t, ExperienceColumn, 0, opts.MaxExperienceYears); err != nil {
			return nil, stats, err
		}
	}

	stats.Rows = t.NumRows()

	return t, stats, nil
}

func retype(t *table.Table, cols config.ColumnsConfig) {
	tr := normalizer.NewTransformer()

	tr.NormalizeBools(t, cols.Booleans)
	tr.NormalizeDates(t, cols.Dates)
	tr.NormalizeNumerics(t, append(append([]string{}, cols.Numerics...), derivedNumerics...))
	tr.Tighten(t)

	if c := t.Column(cleaner.CategoriesListColumn); c != nil && c.Kind == table.String {
		list := table.NewColumn(c.Name, table.List, c.Len())

		for i := range c.Values {
			s, ok := c.Str(i)
			if !ok {
				continue
			}

			var l []string
			if json.Unmarshal([]byte(s), &l) == nil && l != nil {
				list.Values[i] = l
			}
		}

		_ = t.Add(list)
	}
}

// bucketMonths recomputes posting_month from the original posting date, which
// is the date the reports group by.
func bucketMonths(t *table.Table) {
	posted := t.Column(cleaner.OriginalPostingDateColumn)
	if posted == nil || posted.Kind != table.Time {
		return
	}

	month := table.NewColumn(cleaner.PostingMonthColumn, table.String, t.NumRows())

	for i := range month.Values {
		if ts, ok := posted.TimeAt(i); ok {
			month.Values[i] = ts.Format("2006-01")
		}
	}

	_ = t.Add(month)
}

func addAppsPerVacancy(t *table.Table) error {
	apps, vac := t.Column(ApplicationsColumn), t.Column(VacanciesColumn)
	if apps == nil || vac == nil {
		return nil
	}

	ratio := table.NewColumn(AppsPerVacancyColumn, table.Float, t.NumRows())

	for i := range ratio.Values {
		a, okA := apps.Float(i)
		v, okV := vac.Float(i)

		if okA && okV && v != 0 {
			ratio.Values[i] = a / v
		}
	}

	if err := t.Add(ratio); err != nil {
		return fmt.Errorf("add %s: %w", AppsPerVacancyColumn, err)
	}

	return nil
}

// trimQuantiles keeps rows whose value in column lies within the [lower, upper]
// quantiles of the column. Rows with a null value are removed.
func trimQuantiles(t *table.Table, column string, lower, upper float64) (int, error) {
	col := t.Column(column)
	if col == nil {
		return 0, nil
	}

	values := floats(col)
	if len(values) == 0 {
		return 0, nil
	}

	return bound(t, column, Quantile(values, lower), Quantile(values, upper))
}

// bound keeps rows whose value in column lies within [lo, hi].
func bound(t *table.Table, column string, lo, hi float64) (int, error) {
	col := t.Column(column)
	if col == nil {
		return 0, nil
	}

	keep := make([]bool, col.Len())

	for i := range keep {
		v, ok := col.Float(i)
		keep[i] = ok && v >= lo && v <= hi
	}

	return t.Filter(keep)
}

// floats returns the non-null numeric values of c.
func floats(c *table.Column) []float64 {
	out := make([]float64, 0, c.Len())

	for i := range c.Values {
		if v, ok := c.Float(i); ok {
			out = append(out, v)
		}
	}

	return out
}

// Floats returns the non-null numeric values of the named column, or nil when
// the column is absent.
func Floats(t *table.Table, column string) []float64 {
	c := t.Column(column)
	if c == nil {
		return nil
	}

	return floats(c)
}
