package db

import (
	"fmt"
	"os"
	"sort"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	PageResultType
)

type Result interface {
	Type() ResultType
	Display()
}

// QueryRow is one result row of the SQL path: ID is the row's 0-based
// position in the result set, Data the column name to value mapping.
type QueryRow struct {
	ID   int            `json:"id"`
	Data map[string]any `json:"data"`
}

// QueryResult is what the SQL path returns: the engine's column list and the
// wrapped result rows, stamped with the transaction the data was read at.
type QueryResult struct {
	Transaction      ps.Transaction
	Columns          []string
	Rows             []QueryRow
	ExecutionTimeSec float64
}

// PageRequest carries the structured path's paging, sorting and top-N
// parameters. TopN > 0 wins over Page/PageSize.
type PageRequest struct {
	Page       int
	PageSize   int
	SortColumn string
	SortOrder  string
	TopN       int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Descending reports whether the requested sort order is "desc". Anything
// else, including empty, sorts ascending.
func (req PageRequest) Descending() bool {
	return req.SortOrder == "desc" || req.SortOrder == "DESC"
}

// Page is what the structured path returns. Total is always the full
// unpaginated row count and ColumnTypes the full schema map, independent of
// the window that Data covers.
type Page struct {
	Columns          []string
	Data             []core.Row
	Total            int
	Page             int
	PageSize         int
	ColumnTypes      map[string]core.DataType
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (page Page) Type() ResultType {
	return PageResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 0.01 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (page Page) ExecutionTime() string {
	return formatDuration(page.ExecutionTimeSec)
}

// FormatCell renders a result value for display: nil prints as NULL, floats
// drop their trailing zeros so 10.50 shows as 10.5 and 3.0 as 3.
func FormatCell(value any) string {
	if value == nil {
		return "NULL"
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (result QueryResult) Display() {
	if len(result.Rows) > 0 {
		table := NewTable(os.Stdout)
		table.Header(result.Columns)
		for _, row := range result.Rows {
			cells := make([]string, len(result.Columns))
			for i, column := range result.Columns {
				cells[i] = FormatCell(row.Data[column])
			}
			table.Row(cells)
		}
		table.Render()
	}

	fmt.Printf("%d row(s) (%s)\n", len(result.Rows), result.ExecutionTime())
}

func (page Page) Display() {
	columns := page.Columns
	if len(columns) == 0 && len(page.Data) > 0 {
		// Schema-less fallback: show whatever fields the rows carry.
		seen := make(map[string]bool)
		for _, row := range page.Data {
			for name := range row {
				if !seen[name] {
					seen[name] = true
					columns = append(columns, name)
				}
			}
		}
		sort.Strings(columns)
	}

	if len(page.Data) > 0 {
		table := NewTable(os.Stdout)
		table.Header(columns)
		for _, row := range page.Data {
			cells := make([]string, len(columns))
			for i, column := range columns {
				cells[i] = FormatCell(row[column])
			}
			table.Row(cells)
		}
		table.Render()
	}

	fmt.Printf("%d of %d row(s), page %d (%s)\n", len(page.Data), page.Total, page.Page, page.ExecutionTime())
}
