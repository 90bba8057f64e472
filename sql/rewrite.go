package sql

import (
	"fmt"
	"strings"

	"github.com/nickyhof/TabulaDB/core"
)

// ExtractTableName returns the table identifier following the first
// case-insensitive FROM keyword. The scan is token based, so FROM inside a
// string literal never matches, and a FROM introducing a parenthesized
// subquery is passed over in favor of the next one naming a table.
func ExtractTableName(sqlText string) (string, error) {
	tokens := Tokens(sqlText)

	for i, token := range tokens {
		if token.Type != From || i+1 >= len(tokens) {
			continue
		}
		next := tokens[i+1]
		if next.Type == Identifier || next.Type == QuotedIdentifier {
			return next.Value, nil
		}
	}

	return "", fmt.Errorf("could not determine table name: %w", core.ErrQuery)
}

// RewriteFrom returns sqlText with every FROM target matching table
// (case-insensitively) replaced by its escaped identifier form. Everything
// else in the statement passes through byte for byte.
func RewriteFrom(sqlText string, table string) string {
	tokens := Tokens(sqlText)
	escaped := EscapeIdentifier(table)

	var out strings.Builder
	last := 0
	for i, token := range tokens {
		if token.Type != From || i+1 >= len(tokens) {
			continue
		}
		next := tokens[i+1]
		if next.Type != Identifier && next.Type != QuotedIdentifier {
			continue
		}
		if !strings.EqualFold(next.Value, table) {
			continue
		}

		out.WriteString(sqlText[last:next.Start])
		out.WriteString(escaped)
		last = next.End
	}
	out.WriteString(sqlText[last:])

	return out.String()
}
