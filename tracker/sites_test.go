package tracker

import (
	"strings"
	"testing"
)

func TestLoadCenters(t *testing.T) {
	data := "101|Jane Doe|Gen Hospital|1 Main St|555-1|555-2|555-3|Dr. Smith|555-4|PO Box 1|1 100\n" +
		"999|Monitor|Central|HQ|555-9|555-9|555-9|N/A|555-9|PO Box 9|ERROR MONITOR\n"
	table, err := LoadCenters(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadCenters: %v", err)
	}
	if c := table.FindCenter(50); c == nil || c.Number != 101 {
		t.Fatalf("FindCenter(50) = %+v, want center 101", c)
	}
	if c := table.FindCenter(5000); c == nil || !c.IsErrorMonitor {
		t.Fatalf("FindCenter(5000) should fall back to the error-monitor center, got %+v", c)
	}
}

func TestLoadCenters_SkipsBadRange(t *testing.T) {
	data := "101|a|b|c|d|e|f|g|h|i|not-a-range\n"
	table, err := LoadCenters(strings.NewReader(data))
	if err != nil {
		t.Fatalf("LoadCenters: %v", err)
	}
	if len(table.centers) != 1 {
		t.Fatalf("expected the center row itself to survive a bad range token")
	}
	if table.centers[0].Patients.Width() != 0 {
		t.Fatalf("bad range token should not contribute any patients")
	}
}

func TestSiteTable_CountriesAndRegions(t *testing.T) {
	table := &SiteTable{}
	if err := table.LoadCountries(strings.NewReader("Canada|North America|1-50\nGermany|Europe|51-100\n")); err != nil {
		t.Fatalf("LoadCountries: %v", err)
	}
	if got := table.FindCountry(10); got != "Canada" {
		t.Fatalf("FindCountry(10) = %q, want Canada", got)
	}
	if got := table.FindRegion(75); got != "Europe" {
		t.Fatalf("FindRegion(75) = %q, want Europe", got)
	}
	if got := table.FindCountry(9999); got != "Unknown" {
		t.Fatalf("FindCountry(9999) = %q, want Unknown", got)
	}
}

func TestSiteTable_LoadCountries_MalformedRangeResetsToEmpty(t *testing.T) {
	table := &SiteTable{}
	if err := table.LoadCountries(strings.NewReader("Nowhere|Nowhere Region|1-\n")); err != nil {
		t.Fatalf("LoadCountries: %v", err)
	}
	if len(table.countries) != 1 {
		t.Fatalf("malformed range should still keep the country row")
	}
	if table.countries[0].Centers.Width() != 0 {
		t.Fatalf("malformed range should reset to an empty RangeSet")
	}
}
