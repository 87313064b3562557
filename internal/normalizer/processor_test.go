package normalizer

import (
	"errors"
	"slices"
	"testing"

	"sgjobs/internal/config"
	"sgjobs/internal/table"
)

func TestNewProcessor(t *testing.T) {
	p := NewProcessor(config.Default().Pipeline.Columns, nil)
	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
}

func TestProcessor_Process(t *testing.T) {
	p := NewProcessor(config.Default().Pipeline.Columns, nil)

	tbl := rawTable(t, map[string][]any{
		"metadata_jobPostId":           {"MCF-1", "MCF-2"},
		"title":                        {"Accountant", "Chef"},
		"categories":                   {`[{"id":1,"category":"Accounting"}]`, ""},
		"metadata_isPostedOnBehalf":    {"FALSE", "maybe"},
		"metadata_originalPostingDate": {"2023-01-01", "garbage"},
		"salary_minimum":               {"3000", "n/a"},
		"salary_maximum":               {"4500.50", "5000"},
		"employmentTypes":              {"Full Time", "Contract"},
	})

	res, err := p.Process(tbl)
	if err != nil {
		t.Fatalf("Process returned unexpected error: %v", err)
	}

	if res.UnknownBools != 1 || res.InvalidDates != 1 || res.InvalidNumbers != 1 {
		t.Errorf("counters = %+v", res)
	}

	if !slices.Contains(res.MissingColumns, "metadata_expiryDate") {
		t.Errorf("MissingColumns = %v, want metadata_expiryDate listed", res.MissingColumns)
	}

	if got := tbl.Column("salary_minimum"); got.Kind != table.Int || got.Values[0] != int64(3000) {
		t.Errorf("salary_minimum = %v (%v), want tightened int", got.Values, got.Kind)
	}

	if got := tbl.Column("salary_maximum"); got.Kind != table.Float || got.Values[0] != 4500.5 {
		t.Errorf("salary_maximum = %v (%v), want float", got.Values, got.Kind)
	}

	if got := tbl.Column(PrimaryCategoryColumn).Values; got[0] != "Accounting" || got[1] != nil {
		t.Errorf("primary_category = %v", got)
	}

	if tbl.Column("metadata_jobPostId").Kind != table.String {
		t.Error("id column must stay text")
	}
}

func TestProcessor_Process_Idempotent(t *testing.T) {
	p := NewProcessor(config.Default().Pipeline.Columns, nil)

	tbl := rawTable(t, map[string][]any{
		"title":          {"A"},
		"salary_minimum": {"10"},
		"categories":     {`{"category":"X"}`},
	})

	if _, err := p.Process(tbl); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	once := tbl.Clone()

	if _, err := p.Process(tbl); err != nil {
		t.Fatalf("second Process: %v", err)
	}

	if !tbl.Equal(once) {
		t.Error("second Process changed the table")
	}
}

func TestProcessor_Process_ValidationError(t *testing.T) {
	p := NewProcessor(config.Default().Pipeline.Columns, nil)

	result, err := p.Process(table.MustNew())
	if !errors.Is(err, ErrNoColumns) {
		t.Errorf("Process error = %v, want ErrNoColumns", err)
	}

	if result != nil {
		t.Error("Process expected nil result for invalid input")
	}
}
