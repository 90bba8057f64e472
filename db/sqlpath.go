package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/sql"
)

// materializedStrategy answers raw SQL text against the cached engine
// instance of a database.
type materializedStrategy struct {
	materializer *materializer
}

func (strategy materializedStrategy) Name() string {
	return MaterializedStrategy
}

// Execute rewrites the statement's FROM targets to escaped identifiers and
// runs it on the materialized instance. Result rows are numbered by their
// 0-based position and wrapped as column name to value mappings. Engine
// execution errors are client-correctable query errors, never retried.
func (strategy materializedStrategy) Execute(ctx context.Context, req Request) (Result, error) {
	startTime := time.Now()

	if strings.TrimSpace(req.SQL) == "" {
		return QueryResult{}, fmt.Errorf("sql text is required: %w", core.ErrQuery)
	}
	if req.Database == "" {
		return QueryResult{}, fmt.Errorf("database is required: %w", core.ErrQuery)
	}

	instanceDB, err := strategy.materializer.instanceFor(req.Database)
	if err != nil {
		return QueryResult{}, err
	}

	table, err := sql.ExtractTableName(req.SQL)
	if err != nil {
		return QueryResult{}, err
	}

	rows, err := instanceDB.QueryContext(ctx, sql.RewriteFrom(req.SQL, table))
	if err != nil {
		return QueryResult{}, fmt.Errorf("query failed: %v: %w", err, core.ErrQuery)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to read result columns: %v: %w", err, core.ErrQuery)
	}

	var wrapped []QueryRow
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return QueryResult{}, fmt.Errorf("failed to scan result row: %v: %w", err, core.ErrQuery)
		}

		data := make(map[string]any, len(columns))
		for i, column := range columns {
			data[column] = resultValue(values[i])
		}
		wrapped = append(wrapped, QueryRow{ID: len(wrapped), Data: data})
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("query failed: %v: %w", err, core.ErrQuery)
	}

	return QueryResult{
		Transaction:      strategy.materializer.persistence.LatestTransaction(),
		Columns:          columns,
		Rows:             wrapped,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// resultValue normalizes driver scan output: byte slices become strings,
// everything else passes through.
func resultValue(value any) any {
	if raw, isBytes := value.([]byte); isBytes {
		return string(raw)
	}

	return value
}
