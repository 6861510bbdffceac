package tracker

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// Center is one clinical site: its contact/administrative columns and
// the set of patient ids it covers.
type Center struct {
	Number            int64
	Contact           string
	Affiliation       string
	Address           string
	PrimaryFax        string
	SecondaryFax      string
	Phone             string
	Investigator      string
	InvestigatorPhone string
	ReplyAddress      string
	IsErrorMonitor    bool
	Patients          *RangeSet
}

// SiteTable is the read-only set of centers and countries loaded for a
// study, used only by the report sink to annotate rows with site and
// country names.
type SiteTable struct {
	centers          []*Center
	errorMonitor     *Center
	countries        []*Country
}

// Country maps a name to a region and the RangeSet of center numbers
// that belong to it.
type Country struct {
	Name    string
	Region  string
	Centers *RangeSet
}

// LoadCenters parses a "|"-delimited centers file. Field 0 is the
// center number; fields 1-9 are the fixed descriptive columns; field 10
// onward is either the literal "ERROR MONITOR" or a "start end" patient
// range, appended to the center's RangeSet. A malformed range is logged
// and skipped, per the "bad centre patient range" recovery rule.
func LoadCenters(r io.Reader) (*SiteTable, error) {
	t := &SiteTable{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "|")
		if len(cols) < 10 {
			log.Printf("centers:%d: too few columns, skipping", lineNo)
			continue
		}
		number, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
		if err != nil {
			log.Printf("centers:%d: invalid center number %q, skipping", lineNo, cols[0])
			continue
		}
		c := &Center{
			Number:            number,
			Contact:           cols[1],
			Affiliation:       cols[2],
			Address:           cols[3],
			PrimaryFax:        cols[4],
			SecondaryFax:      cols[5],
			Phone:             cols[6],
			Investigator:      cols[7],
			InvestigatorPhone: cols[8],
			ReplyAddress:      cols[9],
			Patients:          &RangeSet{},
		}
		for _, tok := range cols[10:] {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if tok == "ERROR MONITOR" {
				c.IsErrorMonitor = true
				continue
			}
			var lo, hi int64
			if _, err := fmt.Sscanf(tok, "%d %d", &lo, &hi); err != nil {
				log.Printf("centers:%d: invalid patient range %q, skipping", lineNo, tok)
				continue
			}
			c.Patients.Prepend(lo, hi)
		}
		t.centers = append(t.centers, c)
		if c.IsErrorMonitor {
			t.errorMonitor = c
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading centers file: %w", err)
	}
	return t, nil
}

// FindCenter returns the center covering patient id, falling back to
// the error-monitor center if none matches, or nil if neither exists.
func (t *SiteTable) FindCenter(patientID int64) *Center {
	if t == nil {
		return nil
	}
	for _, c := range t.centers {
		if c.Patients.Contains(patientID) {
			return c
		}
	}
	return t.errorMonitor
}

// LoadCountries parses a "name|region|centerRangeSet" file into t's
// country list. A malformed RangeSet is logged and the country is kept
// with an empty center set rather than discarded, per spec.md §7.
func (t *SiteTable) LoadCountries(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.SplitN(line, "|", 3)
		if len(cols) < 3 {
			log.Printf("countries:%d: too few columns, skipping", lineNo)
			continue
		}
		centers, err := ParseRangeSet(cols[2])
		if err != nil {
			log.Printf("countries:%d: malformed center range %q, resetting to empty: %v", lineNo, cols[2], err)
			centers = &RangeSet{}
		}
		t.countries = append(t.countries, &Country{Name: cols[0], Region: cols[1], Centers: centers})
	}
	return sc.Err()
}

// FindCountry returns the country whose center range contains
// centerNumber, or "Unknown" if none matches.
func (t *SiteTable) FindCountry(centerNumber int64) string {
	if t == nil {
		return "Unknown"
	}
	for _, c := range t.countries {
		if c.Centers.Contains(centerNumber) {
			return c.Name
		}
	}
	return "Unknown"
}

// FindRegion returns the region of the country whose center range
// contains centerNumber, or "Unknown" if none matches.
func (t *SiteTable) FindRegion(centerNumber int64) string {
	if t == nil {
		return "Unknown"
	}
	for _, c := range t.countries {
		if c.Centers.Contains(centerNumber) {
			return c.Region
		}
	}
	return "Unknown"
}
