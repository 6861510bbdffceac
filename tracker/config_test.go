package tracker

import "testing"

func TestParseConfig_Basic(t *testing.T) {
	src := `signature "A" plate 10 visit * fields 5 {
		plate 10;
		plate 11 ignore fields 1-3;
	}`
	recs, errCount := ParseConfig(src)
	if errCount != 0 {
		t.Fatalf("errCount = %d, want 0", errCount)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].Name != "A" || recs[0].SigPlate != 10 || recs[0].Plate != 10 {
		t.Fatalf("recs[0] = %+v", recs[0])
	}
	if recs[1].Plate != 11 {
		t.Fatalf("recs[1].Plate = %d, want 11", recs[1].Plate)
	}
	if !recs[1].IgnoreFields.Contains(2) {
		t.Fatalf("recs[1].IgnoreFields should contain 2")
	}
	if recs[0].NSigFields != 1 {
		t.Fatalf("NSigFields = %d, want 1", recs[0].NSigFields)
	}
	if recs[0].Serial == recs[1].Serial {
		t.Fatalf("serials should differ: %d == %d", recs[0].Serial, recs[1].Serial)
	}
}

func TestParseConfig_SharedHeaderIsDuplicated(t *testing.T) {
	src := `signature "B" plate 20 visit 1-2 fields 7-9 {
		plate 20;
		plate 21;
	}`
	recs, errCount := ParseConfig(src)
	if errCount != 0 {
		t.Fatalf("errCount = %d, want 0", errCount)
	}
	recs[0].Visits.Prepend(99, 99)
	if recs[1].Visits.Contains(99) {
		t.Fatalf("mutating one record's Visits must not affect its sibling")
	}
}

func TestParseConfig_SyntaxErrorRecovers(t *testing.T) {
	src := `signature "broken" plate plate 10 visit * fields 1 {
		plate 5;
	}
	signature "ok" plate 30 visit * fields 2 {
		plate 30;
	}`
	recs, errCount := ParseConfig(src)
	if errCount == 0 {
		t.Fatalf("expected at least one error")
	}
	if len(recs) != 1 || recs[0].Name != "ok" {
		t.Fatalf("recovery should still parse the following signature; recs = %+v", recs)
	}
}

func TestParseConfig_EmptyBlockIsError(t *testing.T) {
	src := `signature "empty" plate 1 visit * fields 1 {
	}`
	_, errCount := ParseConfig(src)
	if errCount == 0 {
		t.Fatalf("expected an error for a signature with no covered plates")
	}
}
