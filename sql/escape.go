package sql

import "strings"

// EscapeIdentifier wraps a dynamically-named table or column identifier in
// double quotes, doubling any embedded quote: My"Table becomes "My""Table".
// This is the only escaping function in the repository; every table or
// column reference in generated SQL goes through it. It does not sanitize
// caller-supplied SQL bodies.
func EscapeIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
