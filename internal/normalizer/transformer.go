package normalizer

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"sgjobs/internal/table"
)

// Derived column names produced by ParseCategories.
const (
	CategoriesListColumn  = "categories_list"
	PrimaryCategoryColumn = "primary_category"
)

// Extra layouts tried before the parser's built-in list.
var dateLayouts = []string{
	"2006/1/2",
	"2006/1/2 15:4:5",
	"2006/1/2 15:4",
	"1/2/2006",
	"1/2/2006 15:4:5",
	"1/2/2006 15:4",
	"2006-1-2T15:4:5",
}

// Transformer coerces raw text columns into typed columns.
//
// Every method works on a single value at a time: a value that cannot be
// converted becomes null and the column keeps going.
type Transformer struct {
	categoryPattern *regexp.Regexp
	dateShape       *regexp.Regexp
	dates           *now.Config
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		categoryPattern: regexp.MustCompile(`"category":"([^"]+)"`),
		dateShape:       regexp.MustCompile(`^(\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}/\d{1,2}/\d{4})([ T].*)?$`),
		dates: &now.Config{
			TimeLocation: time.UTC,
			TimeFormats:  append(slices.Clone(dateLayouts), now.TimeFormats...),
		},
	}
}

// ParseCategories adds categories_list and primary_category derived from the raw
// categories column. The raw column is left untouched. Absent column: no-op.
func (t *Transformer) ParseCategories(tbl *table.Table, col string) error {
	raw := tbl.Column(col)
	if raw == nil {
		return nil
	}

	n := tbl.NumRows()
	list := table.NewColumn(CategoriesListColumn, table.List, n)
	primary := table.NewColumn(PrimaryCategoryColumn, table.String, n)

	for i := range n {
		s, _ := raw.Str(i)
		cats := t.ExtractCategories(s)
		list.Values[i] = cats

		if len(cats) > 0 {
			primary.Values[i] = cats[0]
		}
	}

	if err := tbl.Add(list); err != nil {
		return err
	}

	return tbl.Add(primary)
}

// ExtractCategories returns every "category":"<value>" occurrence in s, in order.
// Malformed or truncated JSON still yields whatever pairs are intact.
func (t *Transformer) ExtractCategories(s string) []string {
	matches := t.categoryPattern.FindAllStringSubmatch(s, -1)
	cats := make([]string, 0, len(matches))

	for _, m := range matches {
		cats = append(cats, m[1])
	}

	return cats
}

// NormalizeBools converts the named columns to tri-state booleans and returns
// how many non-null values could not be mapped.
func (t *Transformer) NormalizeBools(tbl *table.Table, cols []string) int {
	return convert(tbl, cols, table.Bool, ParseBool)
}

// NormalizeDates converts the named columns to UTC times and returns how many
// non-null values could not be parsed.
func (t *Transformer) NormalizeDates(tbl *table.Table, cols []string) int {
	return convert(tbl, cols, table.Time, t.ParseDate)
}

// NormalizeNumerics converts the named columns to floats and returns how many
// non-null values could not be parsed.
func (t *Transformer) NormalizeNumerics(tbl *table.Table, cols []string) int {
	return convert(tbl, cols, table.Float, ParseNumber)
}

// convert rewrites each present String column in place. Columns that already
// have a non-text kind are left alone.
func convert(tbl *table.Table, cols []string, kind table.Kind, parse func(string) (any, bool)) int {
	failed := 0

	for _, name := range cols {
		c := tbl.Column(name)
		if c == nil || c.Kind != table.String {
			continue
		}

		for i, v := range c.Values {
			s, ok := v.(string)
			if !ok {
				continue
			}

			parsed, ok := parse(s)
			if !ok {
				c.Values[i] = nil

				if strings.TrimSpace(s) != "" {
					failed++
				}

				continue
			}

			c.Values[i] = parsed
		}

		c.Kind = kind
	}

	return failed
}

// ParseBool maps true/1/yes and false/0/no, case-insensitively. Anything else is unknown.
func ParseBool(s string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}

	return nil, false
}

// ParseNumber parses a decimal number. NaN and infinities are rejected.
func ParseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return nil, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}

	return f, true
}

// ParseDate parses a date or date-time. The value must start with a full date.
func (t *Transformer) ParseDate(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if !t.dateShape.MatchString(s) {
		return nil, false
	}

	parsed, err := t.dates.Parse(s)
	if err != nil {
		return nil, false
	}

	return parsed.UTC(), true
}

// Tighten turns Float columns whose values are all integral into Int columns.
// Logical values do not change. It returns the names of converted columns.
func (t *Transformer) Tighten(tbl *table.Table) []string {
	var converted []string

	for _, c := range tbl.Columns() {
		if c.Kind != table.Float || c.IsAllNull() || !integral(c) {
			continue
		}

		for i, v := range c.Values {
			if f, ok := v.(float64); ok {
				c.Values[i] = int64(f)
			}
		}

		c.Kind = table.Int
		converted = append(converted, c.Name)
	}

	return converted
}

func integral(c *table.Column) bool {
	for _, v := range c.Values {
		f, ok := v.(float64)
		if !ok {
			continue
		}

		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return false
		}
	}

	return true
}
