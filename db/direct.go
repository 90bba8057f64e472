package db

import (
	"context"
	"sort"
	"time"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/op"
	"github.com/nickyhof/TabulaDB/ps"
)

// directStrategy answers structured paging, sorting and top-N requests
// straight from the row store, without touching the materialized engine.
type directStrategy struct {
	persistence *ps.Persistence
}

func (strategy directStrategy) Name() string {
	return DirectStrategy
}

func (strategy directStrategy) Execute(ctx context.Context, req Request) (Result, error) {
	return strategy.page(req)
}

// page loads the table's rows in creation order, coerces every field by its
// column's declared type, optionally stable-sorts, then windows. TopN wins
// over paging and takes the first N rows with no offset; otherwise the page
// size is clamped to MaxPageSize. Total always counts every row and
// ColumnTypes always carries the full schema map.
func (strategy directStrategy) page(req Request) (Page, error) {
	startTime := time.Now()

	tableOp, err := op.GetTable(req.Database, req.Table, strategy.persistence)
	if err != nil {
		return Page{}, err
	}

	columnTypes := tableOp.ColumnTypes()
	formats := make(map[string]string, len(tableOp.Table.Columns))
	columns := make([]string, 0, len(tableOp.Table.Columns))
	for _, column := range tableOp.Table.Columns {
		formats[column.Name] = column.Format
		columns = append(columns, column.Name)
	}

	stored, err := tableOp.Rows()
	if err != nil {
		return Page{}, err
	}

	rows := make([]core.Row, len(stored))
	for i, row := range stored {
		rows[i] = coerceRow(row, columnTypes, formats)
	}

	if declared, known := columnTypes[req.Page.SortColumn]; known {
		sortRows(rows, req.Page.SortColumn, declared, req.Page.Descending())
	}

	total := len(rows)

	if req.Page.TopN > 0 {
		n := req.Page.TopN
		if n > total {
			n = total
		}

		return Page{
			Columns:          columns,
			Data:             rows[:n],
			Total:            total,
			Page:             req.Page.Page,
			PageSize:         req.Page.PageSize,
			ColumnTypes:      columnTypes,
			ExecutionTimeSec: time.Since(startTime).Seconds(),
		}, nil
	}

	page := req.Page.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.Page.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	skip := (page - 1) * pageSize
	var window []core.Row
	if skip < total {
		end := skip + pageSize
		if end > total {
			end = total
		}
		window = rows[skip:end]
	}

	return Page{
		Columns:          columns,
		Data:             window,
		Total:            total,
		Page:             page,
		PageSize:         pageSize,
		ColumnTypes:      columnTypes,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// coerceRow coerces every field present in the row mapping by its column's
// declared type. Fields outside the schema coerce as VARCHAR.
func coerceRow(row core.Row, columnTypes map[string]core.DataType, formats map[string]string) core.Row {
	coerced := make(core.Row, len(row))
	for name, value := range row {
		declared, known := columnTypes[name]
		if !known {
			declared = core.VarcharType
		}
		coerced[name] = core.ParseValue(value, declared, formats[name])
	}

	return coerced
}

// sortRows stable-sorts by the column's coerced value. Nulls order last in
// both directions; descending negates the comparison for non-null pairs
// only.
func sortRows(rows []core.Row, column string, declared core.DataType, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i][column], rows[j][column]
		cmp := core.Compare(a, b, declared)
		if a == nil || b == nil {
			return cmp < 0
		}
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
}
