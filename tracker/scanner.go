package tracker

import (
	"bufio"
	"io"
)

// RecordScanner wraps a buffered reader over the audit-trail stream,
// tokenising one line at a time. Malformed lines are surfaced
// through Event's second return value rather than as an error, matching
// spec.md's "audit line shape anomaly: silently skipped" rule — the
// caller drives the skip-and-continue loop.
type RecordScanner struct {
	sc *bufio.Scanner
}

// NewRecordScanner returns a scanner over r.
func NewRecordScanner(r io.Reader) *RecordScanner {
	return &RecordScanner{sc: bufio.NewScanner(r)}
}

// Scan advances to the next line, reporting false at EOF or on an
// underlying read error (check Err).
func (s *RecordScanner) Scan() bool {
	return s.sc.Scan()
}

// Err returns the first non-EOF error encountered by Scan.
func (s *RecordScanner) Err() error {
	return s.sc.Err()
}

// Event parses the current line into an AuditEvent. The bool return is
// false when the line's shape doesn't hold the numeric columns the
// engine consults; the caller should skip it and call Scan again.
func (s *RecordScanner) Event() (AuditEvent, bool) {
	return ParseAuditEvent(s.sc.Text())
}
