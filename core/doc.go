// Package core provides core types used throughout TabulaDB.
//
// The package defines the data model (Identity, Database, Table, Column,
// Row), the closed declared-type set, the type coercion engine and the
// shared error taxonomy.
//
// # Identity
//
// Identity identifies the author of transactions (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Declared Types
//
// Every column declares one of five types, validated when a schema is
// created or updated:
//   - IntegerType: whole numbers (coerced to int64)
//   - NumericType: decimal numbers (coerced to float64)
//   - TimestampType: date/time values (coerced to epoch milliseconds)
//   - BooleanType: truthy/falsy values (generic truthiness, see ParseValue)
//   - VarcharType: everything else (coerced to string)
//
// # Table Definition
//
//	table := core.Table{
//	    Database: "mydb",
//	    Name:     "users",
//	    Columns: []core.Column{
//	        {Name: "id", Type: core.IntegerType, PrimaryKey: true},
//	        {Name: "name", Type: core.VarcharType},
//	        {Name: "joined", Type: core.TimestampType, Format: "2006-01-02"},
//	    },
//	}
//
// # Rows
//
// Rows are schema-less mappings of column name to scalar. The store assigns
// each row a synthetic integer id inside the mapping; the id doubles as the
// row's storage key, so listing order is creation order.
//
// # Coercion
//
// ParseValue and Compare give both query paths their type semantics:
// values parse by declared type (unparsable numerics become null rather than
// erroring) and nulls order after all non-null values regardless of sort
// direction.
package core
