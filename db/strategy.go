package db

import "context"

// Strategy names for the two execution paths.
const (
	MaterializedStrategy = "materialized"
	DirectStrategy       = "direct"
)

// Request carries everything either execution path can need. The SQL path
// reads Database and SQL; the structured path reads Database, Table and
// Page.
type Request struct {
	Database string
	Table    string
	SQL      string
	Page     PageRequest
}

// Strategy is one of the two named ways a query executes. The materialized
// strategy runs raw SQL text against a cached engine instance with the
// engine's type semantics; the direct strategy interprets structured
// parameters against the row store with ParseValue semantics. The two
// deliberately diverge on TIMESTAMP (text vs epoch milliseconds) and
// BOOLEAN (0/1 vs bool).
type Strategy interface {
	Name() string
	Execute(ctx context.Context, req Request) (Result, error)
}
