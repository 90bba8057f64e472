package tests

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nickyhof/TabulaDB"
	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/db"
	"github.com/nickyhof/TabulaDB/ps"
	"github.com/nickyhof/TabulaDB/sql"
)

// setupBenchmarkEngine creates an engine with a populated bench.users table
func setupBenchmarkEngine(b *testing.B) *db.Engine {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		b.Fatalf("Failed to initialize persistence: %v", err)
	}
	instance := TabulaDB.Open(&persistence)
	engine := instance.Engine(core.Identity{Name: "benchmark", Email: "bench@test.com"})
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

	// Insert 1000 records in batches so setup stays a handful of transactions
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

	return engine
}

// warmCache runs one query so timed iterations hit the materialized database
// instead of paying for the initial build
func warmCache(b *testing.B, engine *db.Engine) {
	if _, err := engine.RunSQL("bench", "SELECT COUNT(*) FROM users"); err != nil {
		b.Fatalf("Failed to warm cache: %v", err)
	}
}

// BenchmarkLexer benchmarks token scanning performance
func BenchmarkLexer(b *testing.B) {
	query := "SELECT id, name, age FROM users WHERE age > 25 AND city = 'NYC' ORDER BY name ASC LIMIT 100 OFFSET 10"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lexer := sql.NewLexer(query)
		for {
			token := lexer.NextToken()
			if token.Type == sql.EOF {
				break
			}
		}
	}
}

// BenchmarkTokens benchmarks scanning a whole statement into a token slice
func BenchmarkTokens(b *testing.B) {
	query := "SELECT id, name, age FROM \"My\"\"Table\" WHERE city IN ('City1', 'City2') ORDER BY age DESC"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tokens := sql.Tokens(query)
		if len(tokens) == 0 {
			b.Fatal("Expected tokens")
		}
	}
}

// BenchmarkExtractTableName benchmarks FROM-clause extraction
func BenchmarkExtractTableName(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"SimpleSelect", "SELECT * FROM users"},
		{"SelectWithWhere", "SELECT * FROM users WHERE age > 30"},
		{"QuotedTable", "SELECT * FROM \"Order Items\" WHERE qty > 1"},
		{"SelectComplex", "SELECT name, COUNT(*) FROM users WHERE age > 25 GROUP BY name ORDER BY name ASC LIMIT 10"},
	}

	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := sql.ExtractTableName(q.query)
				if err != nil {
					b.Fatalf("Extract error: %v", err)
				}
			}
		})
	}
}

// BenchmarkRewriteFrom benchmarks rewriting the FROM clause to an escaped
// physical table name
func BenchmarkRewriteFrom(b *testing.B) {
	query := "SELECT * FROM \"Order Items\" WHERE qty > 1 ORDER BY qty DESC"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rewritten := sql.RewriteFrom(query, "Order Items")
		if rewritten == "" {
			b.Fatal("Expected rewritten query")
		}
	}
}

// BenchmarkSelectAll benchmarks SELECT * against a warm cache
func BenchmarkSelectAll(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT * FROM users")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkSelectWithWhere benchmarks SELECT with WHERE clause
func BenchmarkSelectWithWhere(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT * FROM users WHERE age > 40")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkSelectWithIn benchmarks SELECT with IN clause
func BenchmarkSelectWithIn(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT * FROM users WHERE city IN ('City1', 'City2', 'City3')")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkSelectWithOrderBy benchmarks SELECT with ORDER BY
func BenchmarkSelectWithOrderBy(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT * FROM users ORDER BY age DESC")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkSelectWithLimit benchmarks SELECT with LIMIT
func BenchmarkSelectWithLimit(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT * FROM users LIMIT 10")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkCount benchmarks COUNT(*)
func BenchmarkCount(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT COUNT(*) FROM users")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkAggregates benchmarks aggregate functions
func BenchmarkAggregates(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)

	aggregates := []struct {
		name  string
		query string
	}{
		{"SUM", "SELECT SUM(age) FROM users"},
		{"AVG", "SELECT AVG(age) FROM users"},
		{"MIN", "SELECT MIN(age) FROM users"},
		{"MAX", "SELECT MAX(age) FROM users"},
	}

	for _, agg := range aggregates {
		b.Run(agg.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := engine.RunSQL("bench", agg.query)
				if err != nil {
					b.Fatalf("Query error: %v", err)
				}
			}
		})
	}
}

// BenchmarkDistinct benchmarks DISTINCT queries
func BenchmarkDistinct(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT DISTINCT city FROM users")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkGroupBy benchmarks GROUP BY with aggregates
func BenchmarkGroupBy(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT city, COUNT(*) FROM users GROUP BY city")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkComplexQuery benchmarks a complex query
func BenchmarkComplexQuery(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	warmCache(b, engine)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := engine.RunSQL("bench", "SELECT * FROM users WHERE age > 30 AND city = 'City5' ORDER BY age DESC LIMIT 20")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// BenchmarkMaterializeDatabase benchmarks the cold build of a 1000 row
// database. Each iteration uses a fresh engine so nothing is cached.
func BenchmarkMaterializeDatabase(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		cold := db.NewEngine(engine.Persistence, core.Identity{Name: "benchmark", Email: "bench@test.com"})
		if _, err := cold.RunSQL("bench", "SELECT COUNT(*) FROM users"); err != nil {
			b.Fatalf("Query error: %v", err)
		}
		cold.Close()
	}
}

// BenchmarkGetPage benchmarks the structured read path
func BenchmarkGetPage(b *testing.B) {
	engine := setupBenchmarkEngine(b)

	if _, err := engine.GetPage("bench", "users", db.PageRequest{}); err != nil {
		b.Fatalf("Failed to warm cache: %v", err)
	}

	requests := []struct {
		name string
		req  db.PageRequest
	}{
		{"Default", db.PageRequest{}},
		{"Sorted", db.PageRequest{PageSize: 50, SortColumn: "age", SortOrder: "desc"}},
		{"TopN", db.PageRequest{TopN: 10}},
	}

	for _, r := range requests {
		b.Run(r.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := engine.GetPage("bench", "users", r.req)
				if err != nil {
					b.Fatalf("GetPage error: %v", err)
				}
			}
		})
	}
}

// BenchmarkInsertRows benchmarks single row insert performance
func BenchmarkInsertRows(b *testing.B) {
	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		b.Fatalf("Failed to initialize persistence: %v", err)
	}
	instance := TabulaDB.Open(&persistence)
	engine := instance.Engine(core.Identity{Name: "benchmark", Email: "bench@test.com"})
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
	}
}

// BenchmarkBulkInsertRows benchmarks inserting 100 rows per transaction
func BenchmarkBulkInsertRows(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	_, err := engine.CreateTable(core.Table{
		Database: "bench",
		Name:     "bulk_test",
		Columns: []core.Column{
			{Name: "id", Type: core.IntegerType, PrimaryKey: true},
			{Name: "name", Type: core.VarcharType},
			{Name: "value", Type: core.IntegerType},
		},
	})
	if err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rows := make([]core.Row, 100)
		for j := range rows {
			id := i*100 + j
			rows[j] = core.Row{"name": fmt.Sprintf("Name%d", id), "value": id * 10}
		}
		if _, _, err := engine.InsertRows("bench", "bulk_test", rows); err != nil {
			b.Fatalf("Bulk insert error: %v", err)
		}
	}
}

// BenchmarkUpdateRow benchmarks row update performance
func BenchmarkUpdateRow(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id := int64(i%1000) + 1
		_, err := engine.UpdateRow("bench", "users", id, core.Row{
			"name": fmt.Sprintf("User%d", id),
			"age":  99,
			"city": "City0",
		})
		if err != nil {
			b.Fatalf("Update error: %v", err)
		}
	}
}

// BenchmarkExportRows benchmarks exporting 1000 rows to a local file
func BenchmarkExportRows(b *testing.B) {
	engine := setupBenchmarkEngine(b)
	exportPath := filepath.Join(b.TempDir(), "export_bench.jsonl")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := engine.ExportRows("bench", "users", exportPath)
		if err != nil {
			b.Fatalf("Export error: %v", err)
		}
	}
}

// BenchmarkImportRows benchmarks importing 1000 rows from a local file
func BenchmarkImportRows(b *testing.B) {
	engine := setupBenchmarkEngine(b)

	exportPath := filepath.Join(b.TempDir(), "import_bench.jsonl")
	if _, err := engine.ExportRows("bench", "users", exportPath); err != nil {
		b.Fatalf("Setup export error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Import into a fresh table each iteration so ids never collide
		tableName := fmt.Sprintf("import_test_%d", i)
		_, err := engine.CreateTable(core.Table{
			Database: "bench",
			Name:     tableName,
			Columns: []core.Column{
				{Name: "id", Type: core.IntegerType, PrimaryKey: true},
				{Name: "name", Type: core.VarcharType},
				{Name: "age", Type: core.IntegerType},
				{Name: "city", Type: core.VarcharType},
			},
		})
		if err != nil {
			b.Fatalf("Create table error: %v", err)
		}

		if _, _, err := engine.ImportRows("bench", tableName, exportPath); err != nil {
			b.Fatalf("Import error: %v", err)
		}
	}
}
