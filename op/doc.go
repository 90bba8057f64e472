// Package op provides high-level operations for working with TabulaDB databases and tables.
//
// The op package sits between the query engine (db/) and the persistence layer (ps/),
// providing convenient abstractions for common database operations. Validation
// happens here: names are checked before they become storage paths, schemas are
// checked against the declared type set before they are written.
//
// # DatabaseOp
//
// DatabaseOp wraps database-level operations:
//
//	dbOp, err := op.GetDatabase("mydb", persistence)
//	tables := dbOp.TableNames()           // List all tables
//	dbOp.DropDatabase(identity)           // Drop database
//	dbOp.Restore(transaction, identity)   // Restore to point in time
//
// # TableOp
//
// TableOp wraps table-level operations for schema and row access:
//
//	tableOp, err := op.GetTable("mydb", "sales", persistence)
//
//	// Schema
//	cols := tableOp.Columns()             // Declared columns in order
//	types := tableOp.ColumnTypes()        // Name -> declared type
//
//	// Rows (synthetic ids are assigned on insert)
//	ids, txn, _ := tableOp.InsertRows(rows, identity)
//	row, exists := tableOp.Get(ids[0])
//	tableOp.UpdateRow(ids[0], updated, identity)
//	tableOp.DeleteRow(ids[0], identity)
//	all, _ := tableOp.Rows()              // Insertion order
//
//	// Scanning raw records with optional filter
//	for key, value := range tableOp.Scan() {
//	    // process all records
//	}
//
// # Architecture
//
// The layering is:
//
//	Query Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Git Storage (go-git)
package op
