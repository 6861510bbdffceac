package tracker

import (
	"strings"
	"testing"
)

func TestLoadExclusions_AcceptsWellFormedRows(t *testing.T) {
	table, err := LoadExclusions(strings.NewReader("11|12|u2|2025/01/01\n20|30|u3|20250202|extra\n"))
	if err != nil {
		t.Fatalf("LoadExclusions: %v", err)
	}
	if !table.IsExcluded(11, 12, "u2", "20250101", "") {
		t.Fatalf("expected exclusion match for plate 11 field 12")
	}
	if !table.IsExcluded(20, 30, "u3", "20250202", "") {
		t.Fatalf("expected exclusion match for plate 20 field 30")
	}
}

func TestLoadExclusions_RequiresEmptyOldValue(t *testing.T) {
	table, err := LoadExclusions(strings.NewReader("11|12|u2|20250101\n"))
	if err != nil {
		t.Fatalf("LoadExclusions: %v", err)
	}
	if table.IsExcluded(11, 12, "u2", "20250101", "already-had-a-value") {
		t.Fatalf("a probing event with a non-empty old value must never match")
	}
}

func TestLoadExclusions_SkipsMalformedRows(t *testing.T) {
	table, err := LoadExclusions(strings.NewReader(
		"11|12|u2|19991231\n" + // not a 20xx date
			"0|12|u2|20250101\n" + // plate not truthy
			"11|12||20250101\n" + // user not truthy
			"too|few\n",
	))
	if err != nil {
		t.Fatalf("LoadExclusions: %v", err)
	}
	if len(table.rows) != 0 {
		t.Fatalf("expected every row to be rejected, got %d rows", len(table.rows))
	}
}

func TestLoadExclusions_Empty(t *testing.T) {
	table, err := LoadExclusions(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadExclusions: %v", err)
	}
	if table.IsExcluded(1, 2, "u", "20250101", "") {
		t.Fatalf("empty table should never match")
	}
}
