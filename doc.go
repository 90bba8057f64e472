// Package TabulaDB provides a Git-backed row store with a dynamic SQL
// query layer.
//
// TabulaDB stores schemas and rows as Git blobs, making every mutation a
// commit. Tables carry declared column types; stored rows are loosely
// typed JSON objects coerced against the declared types on every read.
// Queries run two ways: raw SQL is executed by materializing the target
// table into an embedded relational engine (SQLite by default, DuckDB as
// an alternative), and structured paging, sorting and top-N requests are
// served straight from the row store without SQL.
//
// # Quick Start
//
// Create an in-memory database:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	instance := TabulaDB.Open(&persistence)
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.CreateDatabase("shop")
//	engine.CreateTable(core.Table{
//	    Database: "shop",
//	    Name:     "sales",
//	    Columns: []core.Column{
//	        {Name: "region", Type: core.VarcharType},
//	        {Name: "amount", Type: core.NumericType},
//	    },
//	})
//	engine.InsertRows("shop", "sales", []core.Row{
//	    {"region": "east", "amount": 100.50},
//	    {"region": "west", "amount": "75.25"},
//	})
//
//	result, _ := engine.RunSQL("shop", `SELECT region, SUM(amount) FROM sales GROUP BY region`)
//	result.Display()
//
//	page, _ := engine.GetPage("shop", "sales", db.PageRequest{SortColumn: "amount", SortOrder: "desc"})
//
// # Materialization
//
// The first SQL query against a database builds its tables into an
// in-memory engine instance; later queries reuse the instance until a
// write lands, at which point it is rebuilt. Instances are keyed by the
// store's HEAD commit, so writes that bypass the engine are still seen.
//
// # Versioning
//
// Because storage is Git, the full history of every database is kept.
// Snapshots tag a state under a name, RestoreSnapshot rewinds to it, and
// History lists recent transactions.
package TabulaDB
