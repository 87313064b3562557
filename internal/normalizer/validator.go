package normalizer

import (
	"errors"
	"fmt"
	"slices"

	"sgjobs/internal/config"
	"sgjobs/internal/table"
)

// Validation errors.
var (
	ErrNilTable   = errors.New("raw table is nil")
	ErrNoColumns  = errors.New("raw table has no columns")
	ErrNotRawText = errors.New("column to normalize is not raw text")
	ErrTypedTwice = errors.New("column listed under more than one type class")
)

// Validator checks that a raw table can be normalized.
type Validator struct {
	columns config.ColumnsConfig
}

// NewValidator creates a new validator instance.
func NewValidator(columns config.ColumnsConfig) *Validator {
	return &Validator{columns: columns}
}

// Validate checks structural requirements and returns the recognized columns the table lacks.
// Missing recognized columns are not an error; the matching passes are skipped downstream.
func (v *Validator) Validate(t *table.Table) ([]string, error) {
	if t == nil {
		return nil, ErrNilTable
	}

	if t.NumCols() == 0 {
		return nil, ErrNoColumns
	}

	typed := make(map[string]bool)

	for _, group := range [][]string{v.columns.Booleans, v.columns.Dates, v.columns.Numerics} {
		for _, name := range group {
			if typed[name] {
				return nil, fmt.Errorf("%w: %s", ErrTypedTwice, name)
			}

			typed[name] = true

			// Already-typed columns are accepted so the processor stays idempotent
			if c := t.Column(name); c != nil && c.Kind == table.List {
				return nil, fmt.Errorf("%w: %s is %s", ErrNotRawText, name, c.Kind)
			}
		}
	}

	var missing []string

	recognized := []string{v.columns.ID, v.columns.Title, v.columns.Categories, v.columns.EmploymentType}
	recognized = append(recognized, v.columns.Booleans...)
	recognized = append(recognized, v.columns.Dates...)
	recognized = append(recognized, v.columns.Numerics...)

	for _, name := range recognized {
		if name != "" && !t.Has(name) && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}

	return missing, nil
}
