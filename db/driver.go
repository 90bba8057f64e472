package db

import (
	gosql "database/sql"
	"fmt"
	"strings"

	"github.com/nickyhof/TabulaDB/core"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"
)

// Driver names a relational engine that hosts materialized databases. A
// driver opens fresh in-memory instances and maps declared column types to
// the engine's physical column types.
type Driver interface {
	Name() string
	Open() (*gosql.DB, error)
	ColumnType(declared core.DataType) string
}

const (
	SQLiteDriver = "sqlite"
	DuckDBDriver = "duckdb"
)

// DriverByName resolves a configured driver name. Empty means sqlite.
func DriverByName(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SQLiteDriver:
		return sqliteDriver{}, nil
	case DuckDBDriver:
		return duckdbDriver{}, nil
	default:
		return nil, fmt.Errorf("unknown engine driver %q: %w", name, core.ErrValidation)
	}
}

// physicalClass is the engine-independent storage class of a declared type.
// INTEGER and BOOLEAN store as integers, NUMERIC as reals, everything else
// (TIMESTAMP, VARCHAR, unknown) as text.
type physicalClass int

const (
	classInteger physicalClass = iota
	classReal
	classText
)

// classOf also accepts the common aliases (INT, NUMBER, DECIMAL, FLOAT,
// DOUBLE) even though schema validation only ever admits the closed five.
func classOf(declared core.DataType) physicalClass {
	switch core.DataType(strings.ToUpper(string(declared))) {
	case core.IntegerType, "INT", "NUMBER":
		return classInteger
	case core.NumericType, "DECIMAL", "FLOAT", "DOUBLE":
		return classReal
	case core.BooleanType:
		return classInteger
	default:
		return classText
	}
}

type sqliteDriver struct{}

func (sqliteDriver) Name() string {
	return SQLiteDriver
}

// Open returns a private in-memory instance. The pool is pinned to one
// connection: every :memory: connection is its own database, so the pool
// must never fan out.
func (sqliteDriver) Open() (*gosql.DB, error) {
	instance, err := gosql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite instance: %w", err)
	}
	instance.SetMaxOpenConns(1)

	return instance, nil
}

func (sqliteDriver) ColumnType(declared core.DataType) string {
	switch classOf(declared) {
	case classInteger:
		return "INTEGER"
	case classReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

type duckdbDriver struct{}

func (duckdbDriver) Name() string {
	return DuckDBDriver
}

func (duckdbDriver) Open() (*gosql.DB, error) {
	instance, err := gosql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb instance: %w", err)
	}
	instance.SetMaxOpenConns(1)

	return instance, nil
}

func (duckdbDriver) ColumnType(declared core.DataType) string {
	switch classOf(declared) {
	case classInteger:
		return "BIGINT"
	case classReal:
		return "DOUBLE"
	default:
		return "VARCHAR"
	}
}
