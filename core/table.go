package core

import (
	"fmt"
	"strings"
)

// Identity identifies the author of transactions (Git commit author).
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Database represents a logical database owning a set of tables.
type Database struct {
	Name string `json:"name"`
}

type Column struct {
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	Nullable   bool     `json:"nullable"`
	PrimaryKey bool     `json:"primaryKey"`
	ForeignKey bool     `json:"foreignKey"`
	Format     string   `json:"format,omitempty"`
}

type Table struct {
	Database string   `json:"database"`
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
}

// Column returns the named column, if declared. Column names are case-sensitive.
func (table Table) Column(name string) (Column, bool) {
	for _, column := range table.Columns {
		if column.Name == name {
			return column, true
		}
	}

	return Column{}, false
}

// ColumnTypes returns the column name to declared type mapping for the table.
func (table Table) ColumnTypes() map[string]DataType {
	types := make(map[string]DataType, len(table.Columns))
	for _, column := range table.Columns {
		types[column.Name] = column.Type
	}

	return types
}

// ValidateName checks that a database or table name can serve as a storage
// path segment. Quotes and spaces are fine (quoting happens at the SQL layer);
// path separators and a leading dot are not.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q must not contain path separators: %w", name, ErrValidation)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name %q must not start with a dot: %w", name, ErrValidation)
	}

	return nil
}

// Validate checks the table name and column set against the model invariants:
// non-empty names, case-sensitive-unique column names, declared types from the
// closed set.
func (table Table) Validate() error {
	if err := ValidateName(table.Name); err != nil {
		return fmt.Errorf("table name: %w", err)
	}
	if err := ValidateName(table.Database); err != nil {
		return fmt.Errorf("table %s database name: %w", table.Name, err)
	}

	seen := make(map[string]bool, len(table.Columns))
	for _, column := range table.Columns {
		if column.Name == "" {
			return fmt.Errorf("table %s has a column with no name: %w", table.Name, ErrValidation)
		}
		if seen[column.Name] {
			return fmt.Errorf("table %s declares column %s twice: %w", table.Name, column.Name, ErrValidation)
		}
		seen[column.Name] = true

		if _, err := ParseDataType(string(column.Type)); err != nil {
			return fmt.Errorf("column %s: %w", column.Name, err)
		}
	}

	return nil
}
