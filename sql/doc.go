// Package sql provides SQL text handling for TabulaDB.
//
// Statement execution is delegated to the embedded relational engine, so
// this package does not parse full statements. It tokenizes caller SQL just
// far enough to find and rewrite table references, and it owns the single
// identifier escaping function used everywhere generated SQL names a table
// or column.
//
// # Lexer Usage
//
//	lexer := sql.NewLexer("SELECT * FROM users")
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == sql.EOF {
//	        break
//	    }
//	    fmt.Printf("Token: %s\n", token)
//	}
//
// # Table Rewriting
//
// The SQL execution path extracts the table following the first FROM and
// rewrites every reference to it into escaped form:
//
//	table, err := sql.ExtractTableName(`SELECT * FROM Sales WHERE region = 'east'`)
//	// table == "Sales"
//	rewritten := sql.RewriteFrom(`SELECT * FROM Sales`, table)
//	// rewritten == `SELECT * FROM "Sales"`
//
// # Identifier Escaping
//
//	sql.EscapeIdentifier(`My"Table`) // `"My""Table"`
package sql
