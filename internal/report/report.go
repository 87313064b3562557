// Package report summarises the clean table: headline figures plus breakdowns
// by category, employment type, month and experience band.
package report

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"sgjobs/internal/cleaner"
	"sgjobs/internal/dataset"
	"sgjobs/internal/normalizer"
	"sgjobs/internal/table"
)

// KPIs are the headline figures of a summary.
type KPIs struct {
	Postings          int
	Companies         int
	Sectors           int
	MeanSalary        float64
	MedianSalary      float64
	MedianExperience  float64
	TotalVacancies    float64
	TotalApplications float64
	AppsPerVacancy    float64
}

// Group is one row of a breakdown.
type Group struct {
	Label        string
	Postings     int
	MedianSalary float64
}

// Month is one row of the monthly trend.
type Month struct {
	Month        string
	Postings     int
	AppsPerPost  float64
	ViewsPerPost float64
	MedianSalary float64
}

// Summary is the computed report. Float fields are NaN when there is no data.
type Summary struct {
	KPIs            KPIs
	TopCategories   []Group
	EmploymentTypes []Group
	Months          []Month
	ExperienceBands []Group
}

// Options controls Build.
type Options struct {
	IDColumn             string
	EmploymentTypeColumn string
	TopN                 int
}

// ExperienceBands are the labels used for minimumYearsExperience buckets.
var ExperienceBands = []string{"0-2", "3-5", "6-10", "11+"}

// Build computes the summary of t.
func Build(t *table.Table, opts Options) *Summary {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}

	ids := postingKeys(t, opts.IDColumn)
	salary := t.Column(cleaner.AverageSalaryColumn)

	s := &Summary{
		KPIs: KPIs{
			Postings:          distinct(ids, allRows(t)),
			Companies:         distinctValues(t.Column(dataset.CompanyColumn)),
			Sectors:           distinctValues(t.Column(normalizer.PrimaryCategoryColumn)),
			MeanSalary:        dataset.Mean(dataset.Floats(t, cleaner.AverageSalaryColumn)),
			MedianSalary:      dataset.Median(dataset.Floats(t, cleaner.AverageSalaryColumn)),
			MedianExperience:  dataset.Median(dataset.Floats(t, dataset.ExperienceColumn)),
			TotalVacancies:    sum(dataset.Floats(t, dataset.VacanciesColumn)),
			TotalApplications: sum(dataset.Floats(t, dataset.ApplicationsColumn)),
			AppsPerVacancy:    dataset.Mean(dataset.Floats(t, dataset.AppsPerVacancyColumn)),
		},
	}

	if col := t.Column(normalizer.PrimaryCategoryColumn); col != nil {
		groups := groupBy(col, ids, salary)
		s.TopCategories = groups[:min(topN, len(groups))]
	}

	if col := t.Column(opts.EmploymentTypeColumn); col != nil {
		s.EmploymentTypes = groupBy(col, ids, salary)
	}

	if col := t.Column(cleaner.PostingMonthColumn); col != nil {
		s.Months = months(t, col, ids, salary)
	}

	if col := t.Column(dataset.ExperienceColumn); col != nil {
		s.ExperienceBands = experienceBands(col, ids, salary)
	}

	return s
}

// ExperienceBand returns the band label for a number of years, or "" for a
// negative or NaN value.
func ExperienceBand(years float64) string {
	switch {
	case math.IsNaN(years) || years < 0:
		return ""
	case years <= 2:
		return ExperienceBands[0]
	case years <= 5:
		return ExperienceBands[1]
	case years <= 10:
		return ExperienceBands[2]
	default:
		return ExperienceBands[3]
	}
}

// postingKeys returns the value identifying each row's posting. Without an id
// column every row is its own posting.
func postingKeys(t *table.Table, idColumn string) []any {
	keys := make([]any, t.NumRows())

	col := t.Column(idColumn)

	for i := range keys {
		if col != nil && col.Values[i] != nil {
			keys[i] = col.Values[i]
			continue
		}

		keys[i] = i
	}

	return keys
}

func allRows(t *table.Table) []int {
	rows := make([]int, t.NumRows())
	for i := range rows {
		rows[i] = i
	}

	return rows
}

// distinct counts the distinct keys among rows.
func distinct(keys []any, rows []int) int {
	seen := make(map[any]struct{}, len(rows))
	for _, r := range rows {
		seen[keys[r]] = struct{}{}
	}

	return len(seen)
}

func distinctValues(col *table.Column) int {
	if col == nil {
		return 0
	}

	seen := make(map[string]struct{})

	for i := range col.Values {
		if s, ok := col.Str(i); ok {
			seen[s] = struct{}{}
		}
	}

	return len(seen)
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}

	return total
}

func medianOf(salary *table.Column, rows []int) float64 {
	if salary == nil {
		return math.NaN()
	}

	values := make([]float64, 0, len(rows))

	for _, r := range rows {
		if v, ok := salary.Float(r); ok {
			values = append(values, v)
		}
	}

	return dataset.Median(values)
}

// groupBy groups rows by the text value of col, largest group first. Ties are
// broken by label. Null values are skipped.
func groupBy(col *table.Column, ids []any, salary *table.Column) []Group {
	rows := make(map[string][]int)

	for i := range col.Values {
		s, ok := col.Str(i)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}

		rows[s] = append(rows[s], i)
	}

	groups := make([]Group, 0, len(rows))
	for label, r := range rows {
		groups = append(groups, Group{Label: label, Postings: distinct(ids, r), MedianSalary: medianOf(salary, r)})
	}

	slices.SortFunc(groups, func(a, b Group) int {
		if c := cmp.Compare(b.Postings, a.Postings); c != 0 {
			return c
		}

		return cmp.Compare(a.Label, b.Label)
	})

	return groups
}

func months(t *table.Table, col *table.Column, ids []any, salary *table.Column) []Month {
	rows := make(map[string][]int)

	for i := range col.Values {
		if s, ok := col.Str(i); ok {
			rows[s] = append(rows[s], i)
		}
	}

	apps := t.Column(dataset.ApplicationsColumn)
	views := t.Column(dataset.ViewsColumn)

	out := make([]Month, 0, len(rows))

	for label, r := range rows {
		postings := distinct(ids, r)

		out = append(out, Month{
			Month:        label,
			Postings:     postings,
			AppsPerPost:  perPosting(apps, r, postings),
			ViewsPerPost: perPosting(views, r, postings),
			MedianSalary: medianOf(salary, r),
		})
	}

	slices.SortFunc(out, func(a, b Month) int { return cmp.Compare(a.Month, b.Month) })

	return out
}

func perPosting(col *table.Column, rows []int, postings int) float64 {
	if col == nil || postings == 0 {
		return math.NaN()
	}

	var total float64

	for _, r := range rows {
		if v, ok := col.Float(r); ok {
			total += v
		}
	}

	return total / float64(postings)
}

func experienceBands(col *table.Column, ids []any, salary *table.Column) []Group {
	rows := make(map[string][]int, len(ExperienceBands))

	for i := range col.Values {
		years, ok := col.Float(i)
		if !ok {
			continue
		}

		if band := ExperienceBand(years); band != "" {
			rows[band] = append(rows[band], i)
		}
	}

	out := make([]Group, 0, len(ExperienceBands))

	for _, band := range ExperienceBands {
		r, ok := rows[band]
		if !ok {
			continue
		}

		out = append(out, Group{Label: band, Postings: distinct(ids, r), MedianSalary: medianOf(salary, r)})
	}

	return out
}
