package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when a TIMESTAMP column declares no
// format of its own.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseValue coerces a raw scalar into the Go representation of the declared
// type: INTEGER -> int64, NUMERIC -> float64, TIMESTAMP -> epoch milliseconds
// as int64, BOOLEAN -> bool, VARCHAR and unknown -> string. nil means null.
// Unparsable INTEGER/NUMERIC/TIMESTAMP input yields nil, not an error. The
// format argument is a time layout consulted only for TIMESTAMP columns.
//
// ParseValue is idempotent: feeding it its own output returns the same value.
func ParseValue(raw any, declared DataType, format string) any {
	if raw == nil {
		return nil
	}

	switch declared {
	case IntegerType:
		return parseInteger(raw)
	case NumericType:
		return parseNumeric(raw)
	case TimestampType:
		return parseTimestamp(raw, format)
	case BooleanType:
		return parseBoolean(raw)
	default:
		return stringForm(raw)
	}
}

func parseInteger(raw any) any {
	switch value := raw.(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case float64:
		return int64(value)
	case bool:
		if value {
			return int64(1)
		}
		return int64(0)
	case string:
		trimmed := strings.TrimSpace(value)
		if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return parsed
		}
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(parsed)
		}
		return nil
	default:
		return nil
	}
}

func parseNumeric(raw any) any {
	switch value := raw.(type) {
	case float64:
		return value
	case int64:
		return float64(value)
	case int:
		return float64(value)
	case bool:
		if value {
			return float64(1)
		}
		return float64(0)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
		return nil
	default:
		return nil
	}
}

func parseTimestamp(raw any, format string) any {
	switch value := raw.(type) {
	case int64:
		return value
	case float64:
		return int64(value)
	case time.Time:
		return value.UnixMilli()
	case string:
		trimmed := strings.TrimSpace(value)

		layouts := timestampLayouts
		if format != "" {
			layouts = append([]string{format}, timestampLayouts...)
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed.UnixMilli()
			}
		}

		// Fall back to reading the raw input as epoch milliseconds.
		if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return parsed
		}
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(parsed)
		}
		return nil
	default:
		return nil
	}
}

// parseBoolean applies generic truthiness: any non-empty string (including
// "false" and "0") and any non-zero number coerce to true. This is looser
// than strict boolean parsing and is kept that way on purpose; tightening it
// would silently reorder existing data.
func parseBoolean(raw any) any {
	switch value := raw.(type) {
	case bool:
		return value
	case string:
		return len(value) > 0
	case float64:
		return value != 0
	case int64:
		return value != 0
	case int:
		return value != 0
	default:
		return true
	}
}

func stringForm(raw any) string {
	switch value := raw.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// Compare orders two coerced values of the declared type, returning -1, 0
// or 1. Nulls order after every non-null value no matter which direction the
// caller sorts in; two nulls are equal. Callers applying a descending sort
// negate the result for non-null pairs only.
func Compare(a any, b any, declared DataType) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}

	switch declared {
	case IntegerType, TimestampType:
		if ai, aok := a.(int64); aok {
			if bi, bok := b.(int64); bok {
				return compareInt64(ai, bi)
			}
		}
		return compareNumeric(a, b)
	case NumericType:
		return compareNumeric(a, b)
	case BooleanType:
		at, bt := truthy(a), truthy(b)
		if at == bt {
			return 0
		}
		if !at {
			return -1
		}
		return 1
	default:
		return strings.Compare(stringForm(a), stringForm(b))
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareNumeric compares any two values numerically when both have a
// numeric form, falling back to string comparison otherwise.
func compareNumeric(a, b any) int {
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if !aok || !bok {
		return strings.Compare(stringForm(a), stringForm(b))
	}

	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func numericValue(raw any) (float64, bool) {
	switch value := raw.(type) {
	case float64:
		return value, true
	case int64:
		return float64(value), true
	case int:
		return float64(value), true
	case bool:
		if value {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func truthy(raw any) bool {
	if raw == nil {
		return false
	}
	if b, ok := parseBoolean(raw).(bool); ok {
		return b
	}

	return true
}
