package core

import (
	"testing"
	"time"
)

func TestParseValueInteger(t *testing.T) {
	if got := ParseValue("42", IntegerType, ""); got != int64(42) {
		t.Errorf("Expected int64 42, got %v", got)
	}
	if got := ParseValue("10.9", IntegerType, ""); got != int64(10) {
		t.Errorf("Expected truncation to 10, got %v", got)
	}
	if got := ParseValue(float64(7), IntegerType, ""); got != int64(7) {
		t.Errorf("Expected int64 7 from float64, got %v", got)
	}
	if got := ParseValue(true, IntegerType, ""); got != int64(1) {
		t.Errorf("Expected 1 from true, got %v", got)
	}
	if got := ParseValue("not a number", IntegerType, ""); got != nil {
		t.Errorf("Expected nil for unparsable integer, got %v", got)
	}
}

func TestParseValueNumeric(t *testing.T) {
	if got := ParseValue("10.5", NumericType, ""); got != float64(10.5) {
		t.Errorf("Expected 10.5, got %v", got)
	}
	if got := ParseValue(" 3 ", NumericType, ""); got != float64(3) {
		t.Errorf("Expected 3 from padded string, got %v", got)
	}
	if got := ParseValue("twelve", NumericType, ""); got != nil {
		t.Errorf("Expected nil for unparsable numeric, got %v", got)
	}
}

func TestParseValueTimestamp(t *testing.T) {
	want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := ParseValue("2026-01-02", TimestampType, ""); got != want {
		t.Errorf("Expected %d for date string, got %v", want, got)
	}

	want = time.Date(2025, 12, 31, 8, 30, 0, 0, time.UTC).UnixMilli()
	if got := ParseValue("2025-12-31 08:30:00", TimestampType, ""); got != want {
		t.Errorf("Expected %d for datetime string, got %v", want, got)
	}
}

func TestParseValueTimestampFormat(t *testing.T) {
	want := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := ParseValue("31.12.2025", TimestampType, "02.01.2006"); got != want {
		t.Errorf("Expected %d via column format, got %v", want, got)
	}
}

func TestParseValueTimestampEpochFallback(t *testing.T) {
	if got := ParseValue("1700000000123", TimestampType, ""); got != int64(1700000000123) {
		t.Errorf("Expected epoch-millis fallback, got %v", got)
	}
	if got := ParseValue("yesterday", TimestampType, ""); got != nil {
		t.Errorf("Expected nil for unparsable timestamp, got %v", got)
	}
}

func TestParseValueBooleanTruthiness(t *testing.T) {
	// Generic truthiness on purpose: any non-empty string is true.
	cases := []struct {
		raw  any
		want any
	}{
		{true, true},
		{false, false},
		{"false", true},
		{"0", true},
		{"", false},
		{"yes", true},
		{float64(0), false},
		{float64(2.5), true},
		{nil, nil},
	}
	for _, c := range cases {
		if got := ParseValue(c.raw, BooleanType, ""); got != c.want {
			t.Errorf("ParseValue(%v, BOOLEAN) = %v, expected %v", c.raw, got, c.want)
		}
	}
}

func TestParseValueVarchar(t *testing.T) {
	if got := ParseValue(float64(5), VarcharType, ""); got != "5" {
		t.Errorf("Expected \"5\" for whole float, got %q", got)
	}
	if got := ParseValue(float64(10.5), VarcharType, ""); got != "10.5" {
		t.Errorf("Expected \"10.5\", got %q", got)
	}
	if got := ParseValue(nil, VarcharType, ""); got != nil {
		t.Errorf("Expected nil to stay nil, got %v", got)
	}
}

func TestParseValueIdempotent(t *testing.T) {
	samples := []any{"42", "10.5", "2026-01-02", "true", "", "hello", float64(3), true, nil}
	for _, declared := range DataTypes {
		for _, raw := range samples {
			once := ParseValue(raw, declared, "")
			twice := ParseValue(once, declared, "")
			if once != twice {
				t.Errorf("ParseValue not idempotent for %v as %s: %v != %v", raw, declared, once, twice)
			}
		}
	}
}

func TestCompareNullsLast(t *testing.T) {
	for _, declared := range DataTypes {
		nonNull := ParseValue("1", declared, "")
		if got := Compare(nonNull, nil, declared); got != -1 {
			t.Errorf("Compare(value, nil, %s) = %d, expected -1", declared, got)
		}
		if got := Compare(nil, nonNull, declared); got != 1 {
			t.Errorf("Compare(nil, value, %s) = %d, expected 1", declared, got)
		}
		if got := Compare(nil, nil, declared); got != 0 {
			t.Errorf("Compare(nil, nil, %s) = %d, expected 0", declared, got)
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	if got := Compare(int64(2), int64(10), IntegerType); got != -1 {
		t.Errorf("Expected 2 < 10 for INTEGER, got %d", got)
	}
	if got := Compare(float64(10.5), float64(3), NumericType); got != 1 {
		t.Errorf("Expected 10.5 > 3 for NUMERIC, got %d", got)
	}
	if got := Compare("2", "10", VarcharType); got != 1 {
		t.Errorf("Expected string compare for VARCHAR (\"2\" > \"10\"), got %d", got)
	}
	if got := Compare(false, true, BooleanType); got != -1 {
		t.Errorf("Expected false < true for BOOLEAN, got %d", got)
	}
	if got := Compare(int64(100), int64(100), TimestampType); got != 0 {
		t.Errorf("Expected equal timestamps, got %d", got)
	}
}
