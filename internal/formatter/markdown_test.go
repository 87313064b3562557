package formatter

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		aligns   []Align
		expected string
	}{
		{
			name:   "Right aligned counts",
			header: []string{"Category", "Postings"},
			rows:   [][]string{{"IT", "12"}, {"Sales", "3"}},
			aligns: []Align{AlignLeft, AlignRight},
			expected: `
| Category | Postings |
| -------- | -------: |
| IT       |       12 |
| Sales    |        3 |
`,
		},
		{
			name:   "Short rows and minimum width",
			header: []string{"A", "B"},
			rows:   [][]string{{"x"}},
			expected: `
| A   | B   |
| --- | --- |
| x   |     |
`,
		},
		{
			name:   "Escape pipes",
			header: []string{"Title"},
			rows:   [][]string{{"  a|b  "}},
			expected: `
| Title |
| ----- |
| a\|b  |
`,
		},
		{
			// "資訊科技" is four wide characters, display width 8.
			name:   "Mixed CJK and ASCII",
			header: []string{"Category", "Median"},
			rows:   [][]string{{"資訊科技", "4500"}, {"Sales", "3200.5"}},
			aligns: []Align{AlignLeft, AlignRight},
			expected: `
| Category | Median |
| -------- | -----: |
| 資訊科技 |   4500 |
| Sales    | 3200.5 |
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderTable(tt.header, tt.rows, tt.aligns...)

			if strings.TrimSpace(got) != strings.TrimSpace(tt.expected) {
				t.Errorf("RenderTable() = \n%v\nwant \n%v", got, tt.expected)
			}
		})
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if got := RenderTable(nil, nil); got != "" {
		t.Errorf("RenderTable() = %q, want empty", got)
	}
}
