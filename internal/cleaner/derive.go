package cleaner

import (
	"strings"
	"time"

	"sgjobs/internal/table"
)

const monthLayout = "2006-01"

// employmentLabels maps trimmed, lowercased employment types to their labels.
var employmentLabels = map[string]string{
	"full-time":  "Full Time",
	"full time":  "Full Time",
	"permanent":  "Permanent",
	"contract":   "Contract",
	"temp":       "Temporary",
	"temporary":  "Temporary",
	"internship": "Internship",
	"part time":  "Part Time",
}

// CanonicalEmploymentType returns the label for an employment type. Unknown
// values come back trimmed and lowercased.
func CanonicalEmploymentType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if label, ok := employmentLabels[s]; ok {
		return label
	}

	return s
}

func canonicalizeEmployment(t *table.Table, column string) {
	col := t.Column(column)
	if col == nil || col.Kind != table.String {
		return
	}

	for i := range col.Values {
		if s, ok := col.Str(i); ok {
			col.Values[i] = CanonicalEmploymentType(s)
		}
	}
}

type derivation struct {
	name    string
	kind    table.Kind
	ready   func(t *table.Table) bool
	compute func(t *table.Table, row int) any
}

var derivations = []derivation{
	{
		name:    AverageSalaryColumn,
		kind:    table.Float,
		ready:   func(t *table.Table) bool { return t.HasAll(SalaryMinimumColumn, SalaryMaximumColumn) },
		compute: averageSalary,
	},
	{
		name:    PostingDurationColumn,
		kind:    table.Int,
		ready:   func(t *table.Table) bool { return t.HasAll(ExpiryDateColumn, OriginalPostingDateColumn) },
		compute: postingDuration,
	},
	{
		name:    NumCategoriesColumn,
		kind:    table.Int,
		ready:   func(t *table.Table) bool { return t.Has(CategoriesListColumn) },
		compute: numCategories,
	},
	{
		name: PostingMonthColumn,
		kind: table.String,
		ready: func(t *table.Table) bool {
			return t.Has(NewPostingDateColumn) || t.Has(OriginalPostingDateColumn)
		},
		compute: postingMonth,
	},
}

// derivable returns the derived columns already present in t whose inputs are
// also present, i.e. the ones derive would overwrite.
func derivable(t *table.Table) []string {
	var names []string

	for _, d := range derivations {
		if t.Has(d.name) && d.ready(t) {
			names = append(names, d.name)
		}
	}

	return names
}

// derive appends every derived column whose inputs are present and returns
// their names.
func derive(t *table.Table) []string {
	var names []string

	for _, d := range derivations {
		if !d.ready(t) {
			continue
		}

		col := table.NewColumn(d.name, d.kind, t.NumRows())
		for r := range col.Values {
			col.Values[r] = d.compute(t, r)
		}

		_ = t.Add(col)
		names = append(names, d.name)
	}

	return names
}

func averageSalary(t *table.Table, row int) any {
	lo, okLo := t.Column(SalaryMinimumColumn).Float(row)
	hi, okHi := t.Column(SalaryMaximumColumn).Float(row)

	if !okLo || !okHi {
		return nil
	}

	return (lo + hi) / 2
}

// postingDuration is the whole number of days between posting and expiry,
// rounded down.
func postingDuration(t *table.Table, row int) any {
	expiry, okExp := t.Column(ExpiryDateColumn).TimeAt(row)
	posted, okPost := t.Column(OriginalPostingDateColumn).TimeAt(row)

	if !okExp || !okPost {
		return nil
	}

	d := expiry.Sub(posted)
	days := int64(d / (24 * time.Hour))

	if d%(24*time.Hour) < 0 {
		days--
	}

	return days
}

func numCategories(t *table.Table, row int) any {
	l, _ := t.Column(CategoriesListColumn).Strings(row)
	return int64(len(l))
}

// postingMonth buckets a row by the repost date when it has one and by the
// original posting date otherwise.
func postingMonth(t *table.Table, row int) any {
	for _, name := range []string{NewPostingDateColumn, OriginalPostingDateColumn} {
		col := t.Column(name)
		if col == nil {
			continue
		}

		if ts, ok := col.TimeAt(row); ok {
			return ts.UTC().Format(monthLayout)
		}
	}

	return nil
}
