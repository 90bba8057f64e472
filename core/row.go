package core

import (
	"fmt"
	"strconv"
)

// SyntheticIDColumn is the name of the row-ordering integer stored inside
// every row mapping. It is assigned by the store on insert and preserved on
// update; it is distinct from the record's storage key.
const SyntheticIDColumn = "id"

// Row is a schema-less row mapping of column name to scalar value, as decoded
// from JSON: string, float64, bool or nil.
type Row map[string]any

// RowKey renders a synthetic id as a storage key. Keys are fixed-width
// decimals so the store's sorted listing order is id order, which is
// creation order.
func RowKey(id int64) string {
	return fmt.Sprintf("%012d", id)
}

// ParseRowKey reads the synthetic id back out of a storage key.
func ParseRowKey(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed row key %q: %w", key, err)
	}

	return id, nil
}

// SyntheticID reads the synthetic id out of the row mapping.
func (row Row) SyntheticID() (int64, bool) {
	switch id := row[SyntheticIDColumn].(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case float64:
		return int64(id), true
	case string:
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Clone copies the row mapping one level deep.
func (row Row) Clone() Row {
	clone := make(Row, len(row))
	for name, value := range row {
		clone[name] = value
	}

	return clone
}
