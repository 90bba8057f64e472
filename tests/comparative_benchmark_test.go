//go:build comparative

package tests

import (
	"fmt"
	"testing"

	"github.com/nickyhof/TabulaDB"
	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/db"
	"github.com/nickyhof/TabulaDB/ps"
)

// ============================================================================
// SETUP FUNCTIONS
// ============================================================================

// setupDriverEngine creates an engine on the named embedded driver with a
// populated, already materialized bench.users table
func setupDriverEngine(b *testing.B, driver string) *db.Engine {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		b.Fatalf("Failed to initialize persistence: %v", err)
	}
	instance := TabulaDB.Open(&persistence)
	engine, err := instance.EngineWithOptions(
		core.Identity{Name: "benchmark", Email: "bench@test.com"},
		db.Options{Driver: driver})
	if err != nil {
		b.Fatalf("Failed to create engine: %v", err)
	}
	b.Cleanup(func() { engine.Close() })

	if _, err := engine.CreateDatabase("bench"); err != nil {
		b.Fatalf("Failed to create database: %v", err)
	}
	_, err = engine.CreateTable(core.Table{
		Database: "bench",
		Name:     "users",
		Columns: []core.Column{
			{Name: "id", Type: core.IntegerType, PrimaryKey: true},
			{Name: "name", Type: core.VarcharType},
			{Name: "age", Type: core.IntegerType},
			{Name: "city", Type: core.VarcharType},
		},
	})
	if err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	for offset := 0; offset < 1000; offset += 100 {
		rows := make([]core.Row, 100)
		for j := range rows {
			i := offset + j + 1
			rows[j] = core.Row{
				"name": fmt.Sprintf("User%d", i),
				"age":  20 + i%50,
				"city": fmt.Sprintf("City%d", i%10),
			}
		}
		if _, _, err := engine.InsertRows("bench", "users", rows); err != nil {
			b.Fatalf("Failed to insert rows: %v", err)
		}
	}

	// Materialize up front so iterations compare query execution, not builds
	if _, err := engine.RunSQL("bench", "SELECT COUNT(*) FROM users"); err != nil {
		b.Fatalf("Failed to warm cache: %v", err)
	}

	return engine
}

// benchmarkDriverQuery runs the same query repeatedly against a warm engine
func benchmarkDriverQuery(b *testing.B, driver string, query string) {
	engine := setupDriverEngine(b, driver)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", query)
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// ============================================================================
// SELECT ALL BENCHMARKS
// ============================================================================

func BenchmarkSQLite_SelectAll(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT * FROM users")
}

func BenchmarkDuckDB_SelectAll(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT * FROM users")
}

// ============================================================================
// SELECT WITH WHERE BENCHMARKS
// ============================================================================

func BenchmarkSQLite_SelectWhere(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT * FROM users WHERE age > 40")
}

func BenchmarkDuckDB_SelectWhere(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT * FROM users WHERE age > 40")
}

// ============================================================================
// ORDER BY BENCHMARKS
// ============================================================================

func BenchmarkSQLite_OrderBy(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT * FROM users ORDER BY age DESC")
}

func BenchmarkDuckDB_OrderBy(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT * FROM users ORDER BY age DESC")
}

// ============================================================================
// AGGREGATE BENCHMARKS
// ============================================================================

func BenchmarkSQLite_Count(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT COUNT(*) FROM users")
}

func BenchmarkDuckDB_Count(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT COUNT(*) FROM users")
}

func BenchmarkSQLite_Sum(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT SUM(age) FROM users")
}

func BenchmarkDuckDB_Sum(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT SUM(age) FROM users")
}

func BenchmarkSQLite_Avg(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT AVG(age) FROM users")
}

func BenchmarkDuckDB_Avg(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT AVG(age) FROM users")
}

// ============================================================================
// GROUP BY BENCHMARKS
// ============================================================================

func BenchmarkSQLite_GroupBy(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT city, COUNT(*), AVG(age) FROM users GROUP BY city")
}

func BenchmarkDuckDB_GroupBy(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT city, COUNT(*), AVG(age) FROM users GROUP BY city")
}

// ============================================================================
// INSERT BENCHMARKS
// ============================================================================

// benchmarkDriverInsert measures single row inserts followed by a query, so
// each iteration pays the cache invalidation the write causes
func benchmarkDriverInsert(b *testing.B, driver string) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		b.Fatalf("Failed to initialize persistence: %v", err)
	}
	instance := TabulaDB.Open(&persistence)
	engine, err := instance.EngineWithOptions(
		core.Identity{Name: "benchmark", Email: "bench@test.com"},
		db.Options{Driver: driver})
	if err != nil {
		b.Fatalf("Failed to create engine: %v", err)
	}
	b.Cleanup(func() { engine.Close() })

	engine.CreateDatabase("bench")
	engine.CreateTable(core.Table{
		Database: "bench",
		Name:     "items",
		Columns: []core.Column{
			{Name: "id", Type: core.IntegerType, PrimaryKey: true},
			{Name: "value", Type: core.VarcharType},
		},
	})

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _, err := engine.InsertRows("bench", "items", []core.Row{
			{"value": fmt.Sprintf("value%d", i)},
		})
		if err != nil {
			b.Fatalf("Insert error: %v", err)
		}
		if _, err := engine.RunSQL("bench", "SELECT COUNT(*) FROM items"); err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

func BenchmarkSQLite_Insert(b *testing.B) {
	benchmarkDriverInsert(b, db.SQLiteDriver)
}

func BenchmarkDuckDB_Insert(b *testing.B) {
	benchmarkDriverInsert(b, db.DuckDBDriver)
}

// ============================================================================
// LIMIT BENCHMARKS
// ============================================================================

func BenchmarkSQLite_Limit(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT * FROM users LIMIT 10")
}

func BenchmarkDuckDB_Limit(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT * FROM users LIMIT 10")
}

// ============================================================================
// COMPLEX QUERY BENCHMARKS
// ============================================================================

func BenchmarkSQLite_Complex(b *testing.B) {
	benchmarkDriverQuery(b, db.SQLiteDriver, "SELECT * FROM users WHERE age > 30 AND city = 'City5' ORDER BY age DESC LIMIT 20")
}

func BenchmarkDuckDB_Complex(b *testing.B) {
	benchmarkDriverQuery(b, db.DuckDBDriver, "SELECT * FROM users WHERE age > 30 AND city = 'City5' ORDER BY age DESC LIMIT 20")
}

// ============================================================================
// MATERIALIZATION BENCHMARKS
// ============================================================================

// benchmarkDriverMaterialize measures the cold build of 1000 rows into the
// embedded engine. A fresh Engine per iteration means nothing is cached.
func benchmarkDriverMaterialize(b *testing.B, driver string) {
	engine := setupDriverEngine(b, driver)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		cold, err := db.NewEngineWithOptions(engine.Persistence,
			core.Identity{Name: "benchmark", Email: "bench@test.com"},
			db.Options{Driver: driver})
		if err != nil {
			b.Fatalf("Failed to create engine: %v", err)
		}
		if _, err := cold.RunSQL("bench", "SELECT COUNT(*) FROM users"); err != nil {
			b.Fatalf("Query error: %v", err)
		}
		cold.Close()
	}
}

func BenchmarkSQLite_Materialize(b *testing.B) {
	benchmarkDriverMaterialize(b, db.SQLiteDriver)
}

func BenchmarkDuckDB_Materialize(b *testing.B) {
	benchmarkDriverMaterialize(b, db.DuckDBDriver)
}
