// Package xlsxsink writes a tracker.ReportRow slice to a workbook-shaped
// output file.
//
// No XLSX-writing library is available anywhere in this project's
// retrieved dependency pack, and fabricating one behind a replace
// directive is off the table. This package ships a minimal CSV-shaped
// writer behind the same interface a real XLSX renderer would
// implement, so callers can swap it for one without touching the
// tracker package.
package xlsxsink

import (
	"encoding/csv"
	"fmt"
	"io"

	"sigtrack/tracker"
)

// Writer renders report rows to an underlying io.Writer.
type Writer interface {
	Write(rows []tracker.ReportRow) error
}

// CSVWriter is the fallback Writer: one row per signature obligation,
// one column per ReportRow field, no styling. It satisfies the same
// contract a colour-coded, merged-cell XLSX renderer would.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter wraps w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

var header = []string{
	"patient", "visit", "sig_plate", "name", "state", "signer", "date", "time",
	"center", "country", "region", "change_count",
}

// Write emits the header row followed by one row per entry in rows.
func (c *CSVWriter) Write(rows []tracker.ReportRow) error {
	if err := c.w.Write(header); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			fmt.Sprintf("%d", r.Patient),
			fmt.Sprintf("%d", r.Visit),
			fmt.Sprintf("%d", r.SigPlate),
			r.Name,
			r.StateLabel,
			r.Signer,
			r.Date,
			r.Time,
			r.CenterName,
			r.Country,
			r.Region,
			fmt.Sprintf("%d", r.ChangeCount),
		}
		if err := c.w.Write(rec); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}
