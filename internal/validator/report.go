// Package validator checks the structure and integrity of generated markdown reports.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"sgjobs/pkg/metadata"
)

// ErrInvalidReport is returned by ValidationResult.Err when validation failed.
var ErrInvalidReport = errors.New("report failed validation")

// ValidationError represents a validation error with context.
type ValidationError struct {
	Section string
	Value   string
	Message string
	Line    int
	Column  int
}

func (e ValidationError) String() string {
	var sb strings.Builder

	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)

		if e.Column > 0 {
			fmt.Fprintf(&sb, ", col %d", e.Column)
		}

		sb.WriteString(": ")
	}

	sb.WriteString(e.Message)

	if e.Value != "" {
		fmt.Fprintf(&sb, " (found %q)", e.Value)
	}

	return sb.String()
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	Metadata *metadata.Metadata
	IsValid  bool
}

// ValidationStats contains validation statistics.
type ValidationStats struct {
	Sections    int
	Tables      int
	TotalRows   int
	ValidRows   int
	InvalidRows int
}

// ReportValidator validates summary reports.
type ReportValidator struct {
	required []string

	separatorPattern *regexp.Regexp
	numericPattern   *regexp.Regexp
}

// NewReportValidator creates a validator that also requires the named "## "
// sections to be present.
func NewReportValidator(requiredSections ...string) *ReportValidator {
	return &ReportValidator{
		required:         requiredSections,
		separatorPattern: regexp.MustCompile(`^:?-+:?$`),
		numericPattern:   regexp.MustCompile(`^-?\d{1,3}(,\d{3})*(\.\d+)?$|^-?\d+(\.\d+)?$`),
	}
}

// table tracks the table currently being read.
type table struct {
	header     int
	rightAlign []bool
	rows       int
	startLine  int
}

// Validate checks the metadata signature and every markdown table in content.
// Right-aligned columns must hold numbers or "n/a".
func (v *ReportValidator) Validate(content string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	meta, err := metadata.Verify(content)
	result.Metadata = meta

	if err != nil {
		result.addError(ValidationError{Message: fmt.Sprintf("integrity check failed: %v", err)})
	}

	_, body := metadata.Extract(content)

	var (
		section  string
		sections []string
		current  *table
	)

	closeTable := func() {
		if current != nil && current.rows == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("table at line %d in %q has no data rows", current.startLine, section))
		}

		current = nil
	}

	for i, line := range strings.Split(body, "\n") {
		lineNum := i + 1
		line = strings.TrimSpace(line)

		if heading, ok := strings.CutPrefix(line, "## "); ok {
			closeTable()

			section = strings.TrimSpace(heading)
			sections = append(sections, section)
			result.Stats.Sections++

			continue
		}

		if !strings.HasPrefix(line, "|") {
			closeTable()
			continue
		}

		cells := splitCells(line)

		switch {
		case current == nil:
			current = &table{header: len(cells), startLine: lineNum}
			result.Stats.Tables++
		case current.rightAlign == nil:
			current.rightAlign = make([]bool, len(cells))

			if len(cells) != current.header {
				result.addError(ValidationError{
					Section: section,
					Line:    lineNum,
					Message: fmt.Sprintf("separator has %d cells, header has %d", len(cells), current.header),
				})
			}

			for j, cell := range cells {
				if !v.separatorPattern.MatchString(cell) {
					result.addError(ValidationError{
						Section: section,
						Line:    lineNum,
						Column:  j + 1,
						Value:   cell,
						Message: "malformed table separator",
					})
				}

				current.rightAlign[j] = strings.HasSuffix(cell, ":")
			}
		default:
			current.rows++
			result.Stats.TotalRows++

			if errs := v.validateRow(current, cells, section, lineNum); len(errs) > 0 {
				result.Stats.InvalidRows++
				for _, e := range errs {
					result.addError(e)
				}
			} else {
				result.Stats.ValidRows++
			}
		}
	}

	closeTable()

	for _, name := range v.required {
		if !slices.Contains(sections, name) {
			result.addError(ValidationError{Message: fmt.Sprintf("missing section %q", name)})
		}
	}

	if result.Stats.Tables == 0 {
		result.Warnings = append(result.Warnings, "report contains no tables")
	}

	return result
}

func (v *ReportValidator) validateRow(t *table, cells []string, section string, lineNum int) []ValidationError {
	if len(cells) != t.header {
		return []ValidationError{{
			Section: section,
			Line:    lineNum,
			Message: fmt.Sprintf("expected %d cells, got %d", t.header, len(cells)),
		}}
	}

	var errs []ValidationError

	for j, cell := range cells {
		if j >= len(t.rightAlign) || !t.rightAlign[j] {
			continue
		}

		if cell != "n/a" && !v.numericPattern.MatchString(cell) {
			errs = append(errs, ValidationError{
				Section: section,
				Line:    lineNum,
				Column:  j + 1,
				Value:   cell,
				Message: "numeric column holds a non-numeric value",
			})
		}
	}

	return errs
}

func (r *ValidationResult) addError(e ValidationError) {
	r.IsValid = false
	r.Errors = append(r.Errors, e)
}

// Err returns nil for a valid report and an ErrInvalidReport error naming the
// first problem otherwise.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}

	return fmt.Errorf("%w: %s (%d problems)", ErrInvalidReport, r.Errors[0], len(r.Errors))
}

// String returns string representation of validation result.
func (r *ValidationResult) String() string {
	status := "VALID"
	if !r.IsValid {
		status = "INVALID"
	}

	return fmt.Sprintf(
		"%s | Sections: %d | Tables: %d | Rows: %d | Invalid: %d | Warnings: %d",
		status,
		r.Stats.Sections,
		r.Stats.Tables,
		r.Stats.TotalRows,
		r.Stats.InvalidRows,
		len(r.Warnings),
	)
}

// splitCells splits a markdown table row on unescaped pipes and trims each cell.
func splitCells(line string) []string {
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = strings.TrimSuffix(line, "|")
	}

	var (
		cells []string
		cell  strings.Builder
	)

	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			cell.WriteString(`\|`)
			i++
		case line[i] == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteByte(line[i])
		}
	}

	return append(cells, strings.TrimSpace(cell.String()))
}
