package tracker

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// exclusionKey identifies one administratively-pre-approved edit.
type exclusionKey struct {
	plate int64
	field int64
	user  string
	date  string
}

// ExclusionTable answers whether a data change was pre-approved by an
// administrator, loaded once from a delimited file at startup.
type ExclusionTable struct {
	rows map[exclusionKey]struct{}
}

// NewExclusionTable returns an empty table; zero value is also usable.
func NewExclusionTable() *ExclusionTable {
	return &ExclusionTable{rows: make(map[exclusionKey]struct{})}
}

// LoadExclusions reads a "plate|field|user|date|..." file. Rows missing
// a truthy plate, field, user or date are logged and skipped, as are
// rows whose normalised date is not 8 digits beginning "20". Extra
// trailing columns are ignored.
func LoadExclusions(r io.Reader) (*ExclusionTable, error) {
	t := NewExclusionTable()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "|")
		if len(cols) < 4 {
			log.Printf("exclusions:%d: too few columns, skipping", lineNo)
			continue
		}
		plate, err1 := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
		field, err2 := strconv.ParseInt(strings.TrimSpace(cols[1]), 10, 64)
		user := strings.TrimSpace(cols[2])
		date := normalizeExclusionDate(cols[3])
		if err1 != nil || err2 != nil || plate == 0 || field == 0 || user == "" || date == "" {
			log.Printf("exclusions:%d: missing plate/field/user/date, skipping", lineNo)
			continue
		}
		if len(date) != 8 || !strings.HasPrefix(date, "20") {
			log.Printf("exclusions:%d: date %q is not an 8-digit 20xx date, skipping", lineNo, cols[3])
			continue
		}
		t.rows[exclusionKey{plate: plate, field: field, user: user, date: date}] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading exclusion table: %w", err)
	}
	return t, nil
}

// normalizeExclusionDate strips "/" and "\r" the way the source's
// in-place date cleanup does before length/prefix validation.
func normalizeExclusionDate(s string) string {
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}

// IsExcluded reports whether the given event matches a loaded exclusion
// exactly on plate/field/user/date, and only when the event's old value
// is empty (the exclusion covers first-time administrative overrides,
// not edits to an already-edited field).
func (t *ExclusionTable) IsExcluded(plate, field int64, user, date, oldValue string) bool {
	if t == nil || oldValue != "" {
		return false
	}
	_, ok := t.rows[exclusionKey{plate: plate, field: field, user: user, date: normalizeExclusionDate(date)}]
	return ok
}
