package db

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// SimpleTable provides basic table formatting without external dependencies
type SimpleTable struct {
	writer  io.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a new table writer
func NewTable(w io.Writer) *SimpleTable {
	return &SimpleTable{
		writer: w,
		rows:   make([][]string, 0),
	}
}

// Header sets the table headers
func (t *SimpleTable) Header(headers []string) {
	t.headers = headers
}

// Row adds a single row
func (t *SimpleTable) Row(row []string) {
	t.rows = append(t.rows, row)
}

// Bulk adds multiple rows
func (t *SimpleTable) Bulk(rows [][]string) {
	t.rows = append(t.rows, rows...)
}

// Render outputs the formatted table
func (t *SimpleTable) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}

	widths := t.calculateWidths()
	separator := t.buildSeparator(widths)

	fmt.Fprintln(t.writer, separator)

	if len(t.headers) > 0 {
		fmt.Fprintln(t.writer, t.formatRow(t.headers, widths))
		fmt.Fprintln(t.writer, separator)
	}

	for _, row := range t.rows {
		fmt.Fprintln(t.writer, t.formatRow(row, widths))
	}

	fmt.Fprintln(t.writer, separator)
}

// cellWidth measures a cell in runes, not bytes, so quoted and non-ASCII
// values line up.
func cellWidth(cell string) int {
	return utf8.RuneCountInString(cell)
}

// calculateWidths determines the width needed for each column
func (t *SimpleTable) calculateWidths() []int {
	numCols := len(t.headers)
	for _, row := range t.rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}

	widths := make([]int, numCols)

	for i, header := range t.headers {
		if cellWidth(header) > widths[i] {
			widths[i] = cellWidth(header)
		}
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i < numCols && cellWidth(cell) > widths[i] {
				widths[i] = cellWidth(cell)
			}
		}
	}

	for i := range widths {
		if widths[i] < 1 {
			widths[i] = 1
		}
	}

	return widths
}

// buildSeparator creates the horizontal line
func (t *SimpleTable) buildSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

// formatRow formats a single row with proper padding
func (t *SimpleTable) formatRow(row []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		parts[i] = " " + cell + strings.Repeat(" ", w-cellWidth(cell)+1)
	}
	return "|" + strings.Join(parts, "|") + "|"
}
