// Package normalizer turns the raw job postings table into the structured table:
// categories are parsed and boolean, date and numeric columns are typed.
package normalizer

import (
	"fmt"

	"sgjobs/internal/config"
	"sgjobs/internal/logger"
	"sgjobs/internal/table"
)

// Result summarises what a Process call changed.
type Result struct {
	MissingColumns []string
	UnknownBools   int
	InvalidDates   int
	InvalidNumbers int
	Tightened      []string
}

// Processor handles the Phase 1 column passes.
type Processor struct {
	columns     config.ColumnsConfig
	validator   *Validator
	transformer *Transformer
	log         *logger.Logger
}

// NewProcessor creates a new processor instance.
func NewProcessor(columns config.ColumnsConfig, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}

	return &Processor{
		columns:     columns,
		validator:   NewValidator(columns),
		transformer: NewTransformer(),
		log:         log,
	}
}

// Process normalizes t in place.
func (p *Processor) Process(t *table.Table) (*Result, error) {
	// 1. Validate the raw table
	missing, err := p.validator.Validate(t)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	res := &Result{MissingColumns: missing}
	if len(missing) > 0 {
		p.log.Warn("recognized columns absent, related passes skipped", "columns", missing)
	}

	// 2. Categories
	p.log.Info("parsing categories column", "column", p.columns.Categories)

	if err := p.transformer.ParseCategories(t, p.columns.Categories); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	// 3. Booleans, dates, numerics
	res.UnknownBools = p.transformer.NormalizeBools(t, p.columns.Booleans)
	p.log.Info("normalized boolean columns", "unknown", res.UnknownBools)

	res.InvalidDates = p.transformer.NormalizeDates(t, p.columns.Dates)
	p.log.Info("normalized date columns", "unparsable", res.InvalidDates)

	res.InvalidNumbers = p.transformer.NormalizeNumerics(t, p.columns.Numerics)
	p.log.Info("normalized numeric columns", "unparsable", res.InvalidNumbers)

	// 4. Shrink types where no value changes
	res.Tightened = p.transformer.Tighten(t)
	p.log.Debug("tightened column types", "columns", res.Tightened)

	return res, nil
}
