package db

import (
	"context"
	"time"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/op"
	"github.com/nickyhof/TabulaDB/ps"
)

// DefaultQueryTimeout bounds SQL execution when Options leave the timeout
// unset.
const DefaultQueryTimeout = 30 * time.Second

// QueryContext carries the per-engine execution context: the identity
// stamped on every write.
type QueryContext struct {
	Identity core.Identity
}

// Options configures an Engine beyond its defaults.
type Options struct {
	// Driver picks the materialization engine: "sqlite" (default) or
	// "duckdb".
	Driver string

	// QueryTimeout bounds each SQL execution. Zero means
	// DefaultQueryTimeout; negative disables the bound.
	QueryTimeout time.Duration
}

// Engine is the query surface over a store: raw SQL through the
// materialized strategy, structured paging through the direct strategy, and
// the schema and row mutations that feed them. Every write invalidates the
// written database's materialized instance; writes that bypass the Engine
// are still caught by the version stamp, since cache entries are keyed by
// commit hash.
type Engine struct {
	*ps.Persistence
	QueryContext

	options      Options
	materializer *materializer
	materialized Strategy
	direct       Strategy
}

func NewEngine(persistence *ps.Persistence, identity core.Identity) *Engine {
	engine, _ := NewEngineWithOptions(persistence, identity, Options{})
	return engine
}

// NewEngineWithOptions fails only when the options name an unknown driver.
func NewEngineWithOptions(persistence *ps.Persistence, identity core.Identity, options Options) (*Engine, error) {
	driver, err := DriverByName(options.Driver)
	if err != nil {
		return nil, err
	}

	m := newMaterializer(persistence, driver)

	return &Engine{
		Persistence:  persistence,
		QueryContext: QueryContext{Identity: identity},
		options:      options,
		materializer: m,
		materialized: materializedStrategy{materializer: m},
		direct:       directStrategy{persistence: persistence},
	}, nil
}

// WithIdentity derives an engine that stamps writes with a different
// identity. The derived engine shares the receiver's store, options and
// materialized instances.
func (engine *Engine) WithIdentity(identity core.Identity) *Engine {
	derived := *engine
	derived.QueryContext = QueryContext{Identity: identity}

	return &derived
}

// Close releases every cached engine instance. The store itself stays open.
func (engine *Engine) Close() error {
	engine.materializer.invalidateAll()
	return nil
}

func (engine *Engine) queryDeadline() (context.Context, context.CancelFunc) {
	timeout := engine.options.QueryTimeout
	if timeout == 0 {
		timeout = DefaultQueryTimeout
	}
	if timeout < 0 {
		return context.Background(), func() {}
	}

	return context.WithTimeout(context.Background(), timeout)
}

// RunSQL executes raw SQL text against the database's materialized
// instance.
func (engine *Engine) RunSQL(database string, sqlText string) (QueryResult, error) {
	ctx, cancel := engine.queryDeadline()
	defer cancel()

	result, err := engine.materialized.Execute(ctx, Request{Database: database, SQL: sqlText})
	if err != nil {
		return QueryResult{}, err
	}

	return result.(QueryResult), nil
}

// GetPage serves a structured page, sort or top-N request from the row
// store.
func (engine *Engine) GetPage(database string, table string, req PageRequest) (Page, error) {
	result, err := engine.direct.Execute(context.Background(), Request{Database: database, Table: table, Page: req})
	if err != nil {
		return Page{}, err
	}

	return result.(Page), nil
}

// CreateDatabase creates a logical database.
func (engine *Engine) CreateDatabase(name string) (ps.Transaction, error) {
	txn, _, err := op.CreateDatabase(core.Database{Name: name}, engine.Persistence, engine.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.materializer.invalidate(name)

	return *txn, nil
}

// DropDatabase drops a database and everything in it.
func (engine *Engine) DropDatabase(name string) (ps.Transaction, error) {
	databaseOp, err := op.GetDatabase(name, engine.Persistence)
	if err != nil {
		return ps.Transaction{}, err
	}

	txn, err := databaseOp.DropDatabase(engine.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.materializer.invalidate(name)

	return txn, nil
}

// CreateTable creates a table from a validated schema.
func (engine *Engine) CreateTable(table core.Table) (ps.Transaction, error) {
	txn, _, err := op.CreateTable(table, engine.Persistence, engine.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.materializer.invalidate(table.Database)

	return *txn, nil
}

// ReplaceTableColumns swaps the table's full column set. Stored rows stay
// as they are and reads coerce them against the new declared types.
func (engine *Engine) ReplaceTableColumns(database string, table string, columns []core.Column) (ps.Transaction, error) {
	tableOp, err := op.GetTable(database, table, engine.Persistence)
	if err != nil {
		return ps.Transaction{}, err
	}

	txn, err := tableOp.ReplaceColumns(columns, engine.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.materializer.invalidate(database)

	return txn, nil
}

// DropTable drops the table's schema and rows.
func (engine *Engine) DropTable(database string, table string) (ps.Transaction, error) {
	tableOp, err := op.GetTable(database, table, engine.Persistence)
	if err != nil {
		return ps.Transaction{}, err
	}

	txn, err := tableOp.DropTable(engine.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.materializer.invalidate(database)

	return txn, nil
}

// TableColumns returns the table's declared columns in declaration order.
func (engine *Engine) TableColumns(database string, table string) ([]core.Column, error) {
	tableOp, err := op.GetTable(database, table, engine.Persistence)
	if err != nil {
		return nil, err
	}

	return tableOp.Columns(), nil
}

// InsertRows appends a batch of rows in one transaction, returning the
// synthetic ids assigned to them.
func (engine *Engine) InsertRows(database string, table string, rows []core.Row) ([]int64, ps.Transaction, error) {
	tableOp, err := op.GetTable(database, table, engine.Persistence)
	if err != nil {
		return nil, ps.Transaction{}, err
	}

	ids, txn, err := tableOp.InsertRows(rows, engine.Identity)
	if err != nil {
		return nil, ps.Transaction{}, err
	}
	engine.materializer.invalidate(database)

	return ids, txn, nil
}

// UpdateRow rewrites one row, keeping its synthetic id.
func (engine *Engine) UpdateRow(database string, table string, id int64, row core.Row) (ps.Transaction, error) {
	tableOp, err := op.GetTable(database, table, engine.Persistence)
	if err != nil {
		return ps.Transaction{}, err
	}

	txn, err := tableOp.UpdateRow(id, row, engine.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.materializer.invalidate(database)

	return txn, nil
}

// DeleteRow removes one row by synthetic id.
func (engine *Engine) DeleteRow(database string, table string, id int64) (ps.Transaction, error) {
	tableOp, err := op.GetTable(database, table, engine.Persistence)
	if err != nil {
		return ps.Transaction{}, err
	}

	txn, err := tableOp.DeleteRow(id, engine.Identity)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.materializer.invalidate(database)

	return txn, nil
}

// DeleteAllRows clears the table's rows, keeping its schema, and returns
// how many rows were removed.
func (engine *Engine) DeleteAllRows(database string, table string) (int, ps.Transaction, error) {
	tableOp, err := op.GetTable(database, table, engine.Persistence)
	if err != nil {
		return 0, ps.Transaction{}, err
	}

	count := tableOp.Count()
	txn, err := tableOp.DeleteAllRows(engine.Identity)
	if err != nil {
		return 0, ps.Transaction{}, err
	}
	engine.materializer.invalidate(database)

	return count, txn, nil
}

// Snapshot tags the store's current state under a name.
func (engine *Engine) Snapshot(name string) error {
	return engine.Persistence.Snapshot(name, nil)
}

// RestoreSnapshot resets the store to a named snapshot and retires every
// materialized instance.
func (engine *Engine) RestoreSnapshot(name string) error {
	if err := engine.Persistence.Recover(name); err != nil {
		return err
	}
	engine.materializer.invalidateAll()

	return nil
}

// History lists the most recent transactions, newest first. A limit of
// zero or less means all of them.
func (engine *Engine) History(limit int) []ps.Transaction {
	transactions := engine.Persistence.TransactionsSince(time.Time{})
	if limit > 0 && len(transactions) > limit {
		transactions = transactions[:limit]
	}

	return transactions
}
