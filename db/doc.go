// Package db provides the query engine for TabulaDB.
//
// The Engine type is the main entry point. It layers two read paths and the
// full write surface over a persistent row store.
//
// # Engine Usage
//
//	engine := db.NewEngine(persistence, identity)
//	defer engine.Close()
//
//	result, err := engine.RunSQL("mydb", "SELECT * FROM users WHERE amount > 5")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display()
//
// # Read Paths
//
// There are two query strategies behind the Strategy interface:
//   - materialized: SQL text runs against an in-memory SQL engine loaded
//     with the database's current rows. Instances are cached per database
//     and rebuilt only when the store's head version moves.
//   - direct: structured page requests read the stored rows directly, with
//     sorting, paging and top-N applied in the engine.
//
// RunSQL uses the materialized strategy and returns a QueryResult; GetPage
// uses the direct strategy and returns a Page.
//
// # Drivers
//
// The materialized strategy runs on a pluggable embedded SQL engine. SQLite
// is the default; DuckDB is available via Options{Driver: db.DuckDBDriver}.
package db
