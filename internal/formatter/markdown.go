// Package formatter renders markdown tables for the summary report.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Align is the horizontal alignment of a table column.
type Align int

// Column alignments.
const (
	AlignLeft Align = iota
	AlignRight
)

const minColumnWidth = 3

// RenderTable renders a markdown table with every column padded to its widest
// cell. Widths are display widths, so CJK text lines up in a terminal.
//
// aligns may be shorter than header; missing entries are left aligned. Rows
// with fewer cells than the header are padded with empty cells.
func RenderTable(header []string, rows [][]string, aligns ...Align) string {
	colCount := len(header)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}

	if colCount == 0 {
		return ""
	}

	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, escapeRow(header))

	for _, row := range rows {
		cells = append(cells, escapeRow(row))
	}

	widths := make([]int, colCount)
	for i := range widths {
		widths[i] = minColumnWidth
	}

	for _, row := range cells {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	alignAt := func(i int) Align {
		if i < len(aligns) {
			return aligns[i]
		}

		return AlignLeft
	}

	var sb strings.Builder

	writeRow(&sb, cells[0], widths, alignAt)
	writeSeparator(&sb, widths, alignAt)

	for _, row := range cells[1:] {
		writeRow(&sb, row, widths, alignAt)
	}

	return sb.String()
}

func escapeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		cell = strings.ReplaceAll(cell, "\n", " ")
		out[i] = strings.ReplaceAll(cell, "|", `\|`)
	}

	return out
}

func writeRow(sb *strings.Builder, row []string, widths []int, alignAt func(int) Align) {
	sb.WriteString("|")

	for j, width := range widths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		padding := strings.Repeat(" ", width-runewidth.StringWidth(content))

		sb.WriteString(" ")

		if alignAt(j) == AlignRight {
			sb.WriteString(padding)
			sb.WriteString(content)
		} else {
			sb.WriteString(content)
			sb.WriteString(padding)
		}

		sb.WriteString(" |")
	}

	sb.WriteString("\n")
}

func writeSeparator(sb *strings.Builder, widths []int, alignAt func(int) Align) {
	sb.WriteString("|")

	for j, width := range widths {
		sb.WriteString(" ")

		if alignAt(j) == AlignRight {
			sb.WriteString(strings.Repeat("-", width-1))
			sb.WriteString(":")
		} else {
			sb.WriteString(strings.Repeat("-", width))
		}

		sb.WriteString(" |")
	}

	sb.WriteString("\n")
}
