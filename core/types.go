package core

import (
	"fmt"
	"strings"
)

// DataType is the declared type of a column.
type DataType string

const (
	IntegerType   DataType = "INTEGER"
	NumericType   DataType = "NUMERIC"
	TimestampType DataType = "TIMESTAMP"
	BooleanType   DataType = "BOOLEAN"
	VarcharType   DataType = "VARCHAR"
)

// DataTypes lists the declared types accepted when a schema is created or updated.
var DataTypes = []DataType{IntegerType, NumericType, TimestampType, BooleanType, VarcharType}

// ParseDataType normalizes raw and validates it against the declared type set.
// Unrecognized types are rejected, not coerced.
func ParseDataType(raw string) (DataType, error) {
	dataType := DataType(strings.ToUpper(strings.TrimSpace(raw)))

	for _, known := range DataTypes {
		if dataType == known {
			return dataType, nil
		}
	}

	return "", fmt.Errorf("unknown data type %q: %w", raw, ErrValidation)
}
