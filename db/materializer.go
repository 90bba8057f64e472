package db

import (
	gosql "database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/op"
	"github.com/nickyhof/TabulaDB/ps"
	"github.com/nickyhof/TabulaDB/sql"
)

// materializer builds and caches one in-memory engine instance per logical
// database. An entry is served only while the version it was built from
// matches the store's current head, so a commit anywhere retires it; Engine
// writes also invalidate eagerly. Concurrent cold requests for the same
// database collapse to a single build.
type materializer struct {
	persistence *ps.Persistence
	driver      Driver

	mu        sync.Mutex
	instances map[string]*instance
	group     singleflight.Group

	builds atomic.Int64
}

// instance is one materialized database: a live engine handle and the store
// version it was built from.
type instance struct {
	db      *gosql.DB
	version string
}

func newMaterializer(persistence *ps.Persistence, driver Driver) *materializer {
	return &materializer{
		persistence: persistence,
		driver:      driver,
		instances:   make(map[string]*instance),
	}
}

// instanceFor returns an engine instance for the database, building one when
// the cache holds no entry at the store's current version.
func (m *materializer) instanceFor(database string) (*gosql.DB, error) {
	version := m.persistence.HeadVersion()

	m.mu.Lock()
	if entry, exists := m.instances[database]; exists && entry.version == version {
		m.mu.Unlock()
		return entry.db, nil
	}
	m.mu.Unlock()

	built, err, _ := m.group.Do(database+"@"+version, func() (any, error) {
		return m.build(database)
	})
	if err != nil {
		return nil, err
	}

	return built.(*gosql.DB), nil
}

// build materializes every table of the database into one fresh engine
// instance. The store read lock is held across the whole build so schemas,
// rows and the recorded version form one consistent snapshot. Any failure
// closes the instance and leaves no cache entry behind. A build overlapping
// a commit can briefly store an entry for a superseded version; the version
// check retires it on the next request.
func (m *materializer) build(database string) (*gosql.DB, error) {
	m.builds.Add(1)

	m.persistence.RLock()
	defer m.persistence.RUnlock()

	version := m.persistence.HeadVersion()

	databaseOp, err := op.GetDatabase(database, m.persistence)
	if err != nil {
		return nil, err
	}

	tables, err := databaseOp.Tables()
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas for %s: %v: %w", database, err, core.ErrMaterialization)
	}

	instanceDB, err := m.driver.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s instance: %v: %w", m.driver.Name(), err, core.ErrMaterialization)
	}

	for _, table := range tables {
		if err := m.loadTable(instanceDB, table); err != nil {
			instanceDB.Close()
			return nil, fmt.Errorf("failed to materialize %s.%s: %w", database, table.Name, err)
		}
	}

	m.mu.Lock()
	if previous, exists := m.instances[database]; exists {
		previous.db.Close()
	}
	m.instances[database] = &instance{db: instanceDB, version: version}
	m.mu.Unlock()

	return instanceDB, nil
}

// loadTable creates the physical table and bulk-loads its rows inside one
// engine transaction. Declared columns project out of each row mapping in
// column order; values absent from a row load as NULL.
func (m *materializer) loadTable(instanceDB *gosql.DB, table core.Table) error {
	if len(table.Columns) == 0 {
		// A table with no declared columns has no physical shape.
		return nil
	}

	if _, err := instanceDB.Exec(createTableSQL(m.driver, table)); err != nil {
		return fmt.Errorf("failed to create physical table: %v: %w", err, core.ErrMaterialization)
	}

	rows, err := (&op.TableOp{Table: table, Persistence: m.persistence}).Rows()
	if err != nil {
		return fmt.Errorf("failed to load rows: %v: %w", err, core.ErrMaterialization)
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := instanceDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin bulk load: %v: %w", err, core.ErrMaterialization)
	}

	stmt, err := tx.Prepare(insertSQL(table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare bulk insert: %v: %w", err, core.ErrMaterialization)
	}

	for _, row := range rows {
		args := make([]any, len(table.Columns))
		for i, column := range table.Columns {
			args[i] = physicalValue(row[column.Name], column)
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to load row: %v: %w", err, core.ErrMaterialization)
		}
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk load: %v: %w", err, core.ErrMaterialization)
	}

	return nil
}

// createTableSQL renders the CREATE TABLE statement with every identifier
// escaped.
func createTableSQL(driver Driver, table core.Table) string {
	columns := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		columns[i] = sql.EscapeIdentifier(column.Name) + " " + driver.ColumnType(column.Type)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", sql.EscapeIdentifier(table.Name), strings.Join(columns, ", "))
}

// insertSQL renders the prepared bulk-insert statement for the table.
func insertSQL(table core.Table) string {
	columns := make([]string, len(table.Columns))
	holes := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		columns[i] = sql.EscapeIdentifier(column.Name)
		holes[i] = "?"
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", sql.EscapeIdentifier(table.Name), strings.Join(columns, ", "), strings.Join(holes, ", "))
}

// physicalValue converts a stored scalar to its engine representation.
// Integer and real columns coerce through ParseValue, booleans storing as
// 0/1 and unparsable input as NULL. Text columns take the raw string form,
// which keeps the engine's TIMESTAMP representation distinct from the
// coercion engine's epoch milliseconds.
func physicalValue(raw any, column core.Column) any {
	if raw == nil {
		return nil
	}

	switch classOf(column.Type) {
	case classInteger:
		parsed := core.ParseValue(raw, column.Type, column.Format)
		if truth, isBool := parsed.(bool); isBool {
			if truth {
				return int64(1)
			}
			return int64(0)
		}
		return parsed
	case classReal:
		return core.ParseValue(raw, column.Type, column.Format)
	default:
		return core.ParseValue(raw, core.VarcharType, "")
	}
}

// invalidate retires the database's cache entry. The next query rebuilds
// from the store.
func (m *materializer) invalidate(database string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, exists := m.instances[database]; exists {
		entry.db.Close()
		delete(m.instances, database)
	}
}

// invalidateAll retires every entry, for store-wide changes like restores.
func (m *materializer) invalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for database, entry := range m.instances {
		entry.db.Close()
		delete(m.instances, database)
	}
}
