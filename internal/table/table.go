// Package table provides the schema-on-read job posting table shared by both pipeline phases.
package table

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Kind identifies the logical type of a column.
type Kind int

// Column kinds.
const (
	String Kind = iota
	Float
	Int
	Bool
	Time
	List
)

// Table errors.
var (
	ErrLengthMismatch = errors.New("column length does not match table row count")
	ErrKeepMismatch   = errors.New("keep mask length does not match table row count")
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Time:
		return "time"
	case List:
		return "list"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Column is a named, typed column. A nil entry in Values is null.
//
// The dynamic type of each non-null value matches Kind: string, float64, int64,
// bool, time.Time or []string.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// NewColumn creates a column of n null values.
func NewColumn(name string, kind Kind, n int) *Column {
	return &Column{Name: name, Kind: kind, Values: make([]any, n)}
}

// Len returns the number of values.
func (c *Column) Len() int {
	return len(c.Values)
}

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool {
	return c.Values[i] == nil
}

// IsAllNull reports whether every value is null. An empty column counts as all-null.
func (c *Column) IsAllNull() bool {
	for _, v := range c.Values {
		if v != nil {
			return false
		}
	}

	return true
}

// IsNumeric reports whether the column holds floats or integers.
func (c *Column) IsNumeric() bool {
	return c.Kind == Float || c.Kind == Int
}

// Float returns row i as a float64 for numeric columns.
func (c *Column) Float(i int) (float64, bool) {
	switch v := c.Values[i].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}

	return 0, false
}

// Str returns row i as a string for string columns.
func (c *Column) Str(i int) (string, bool) {
	s, ok := c.Values[i].(string)
	return s, ok
}

// TimeAt returns row i as a time for time columns.
func (c *Column) TimeAt(i int) (time.Time, bool) {
	t, ok := c.Values[i].(time.Time)
	return t, ok
}

// Strings returns row i as a list for list columns.
func (c *Column) Strings(i int) ([]string, bool) {
	l, ok := c.Values[i].([]string)
	return l, ok
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Values: make([]any, len(c.Values))}

	for i, v := range c.Values {
		if l, ok := v.([]string); ok {
			out.Values[i] = slices.Clone(l)
			continue
		}

		out.Values[i] = v
	}

	return out
}

// Table is an ordered set of equally long columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a table with the given columns. All columns must have the same length.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int)}

	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		}

		if err := t.Add(c); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}

	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return t.rows
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.columns)
}

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}

	return names
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// HasAll reports whether every named column exists.
func (t *Table) HasAll(names ...string) bool {
	for _, n := range names {
		if !t.Has(n) {
			return false
		}
	}

	return true
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}

	return t.columns[i]
}

// Add appends a column, replacing any existing column of the same name in place.
func (t *Table) Add(c *Column) error {
	if len(t.columns) > 0 && c.Len() != t.rows {
		return fmt.Errorf("%w: %s has %d values, table has %d rows", ErrLengthMismatch, c.Name, c.Len(), t.rows)
	}

	if len(t.columns) == 0 {
		t.rows = c.Len()
	}

	if i, ok := t.index[c.Name]; ok {
		t.columns[i] = c
		return nil
	}

	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)

	return nil
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) {
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			continue
		}

		t.columns = slices.Delete(t.columns, i, i+1)
		t.reindex()
	}
}

func (t *Table) reindex() {
	clear(t.index)

	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}

// Filter keeps the rows where keep is true and returns the number removed.
func (t *Table) Filter(keep []bool) (int, error) {
	if len(keep) != t.rows {
		return 0, fmt.Errorf("%w: %d != %d", ErrKeepMismatch, len(keep), t.rows)
	}

	kept := 0

	for _, k := range keep {
		if k {
			kept++
		}
	}

	for _, c := range t.columns {
		values := make([]any, 0, kept)

		for i, v := range c.Values {
			if keep[i] {
				values = append(values, v)
			}
		}

		c.Values = values
	}

	removed := t.rows - kept
	t.rows = kept

	return removed, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    t.rows,
	}

	for i, c := range t.columns {
		out.columns[i] = c.Clone()
		out.index[c.Name] = i
	}

	return out
}

// Equal reports whether both tables have the same columns, kinds and values.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}

	for i, c := range t.columns {
		oc := o.columns[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}

		for r := range c.Values {
			if !valueEqual(c.Values[r], oc.Values[r]) {
				return false
			}
		}
	}

	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case []string:
		bv, ok := b.([]string)
		return ok && slices.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case float64:
		bv, ok := b.(float64)
		return ok && (av == bv || (math.IsNaN(av) && math.IsNaN(bv)))
	}

	return a == b
}
