package tracker

import (
	"bytes"
	"testing"
)

func mustConfig(t *testing.T, src string) []*SignatureConfig {
	t.Helper()
	recs, errCount := ParseConfig(src)
	if errCount != 0 {
		t.Fatalf("ParseConfig: %d errors", errCount)
	}
	return recs
}

func ev(patient, visit, plate, fieldPos, status, level int64, user, date, time, oldValue, newValue string) AuditEvent {
	return AuditEvent{
		Patient: patient, Visit: visit, Plate: plate, FieldPos: fieldPos,
		Status: status, Level: level, User: user, Date: date, Time: time,
		OldValue: oldValue, NewValue: newValue,
	}
}

func oneNode(t *testing.T, e *Engine) *SigNode {
	t.Helper()
	if len(e.Nodes()) != 1 {
		t.Fatalf("expected exactly one node, got %d", len(e.Nodes()))
	}
	return e.Nodes()[0]
}

// S1 Clean signature.
func TestEngine_S1_CleanSignature(t *testing.T) {
	configs := mustConfig(t, `signature "A" plate 10 visit * fields 8 {
		plate 10;
		plate 11;
	}`)
	e := NewEngine(configs, nil)

	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u1", "20250101", "100000", "", "x"))
	e.Dispatch(ev(1, 1, 10, 8, 2, 0, "u1", "20250101", "100001", "", "u1"))

	node := oneNode(t, e)
	if node.Status.Signature != SigComplete {
		t.Fatalf("Signature = %v, want SigComplete", node.Status.Signature)
	}
	var plate11 *CoveredPlate
	for _, p := range node.Plates() {
		if p.Plate == 11 {
			plate11 = p
		}
	}
	if plate11 == nil {
		t.Fatalf("covered plate 11 should be present")
	}
	if len(plate11.Changes()) != 0 {
		t.Fatalf("plate 11 changes should be empty after completing signature, got %d", len(plate11.Changes()))
	}

	var drf bytes.Buffer
	if err := WriteDRF(&drf, e.Nodes()); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if drf.String() != "" {
		t.Fatalf("DRF should be empty, got %q", drf.String())
	}
}

// S2 Post-sign declined change.
func TestEngine_S2_PostSignDeclinedChange(t *testing.T) {
	configs := mustConfig(t, `signature "A" plate 10 visit * fields 8 {
		plate 10;
		plate 11;
	}`)
	e := NewEngine(configs, nil)

	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u1", "20250101", "100000", "", "x"))
	e.Dispatch(ev(1, 1, 10, 8, 2, 0, "u1", "20250101", "100001", "", "u1"))
	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u2", "20250102", "090000", "x", "y"))

	node := oneNode(t, e)
	Propagate(e.Nodes(), PropagateOptions{})

	if node.Status.Change != ChangeDeclined {
		t.Fatalf("node.Status.Change = %v, want ChangeDeclined", node.Status.Change)
	}

	var drf bytes.Buffer
	if err := WriteDRF(&drf, e.Nodes()); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if drf.String() != "1|1|10\n" {
		t.Fatalf("DRF = %q, want %q", drf.String(), "1|1|10\n")
	}
}

// S3 Exempt by signer.
func TestEngine_S3_ExemptBySigner(t *testing.T) {
	configs := mustConfig(t, `signature "A" plate 10 visit * fields 8 {
		plate 10;
		plate 11;
	}`)
	e := NewEngine(configs, nil)

	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u1", "20250101", "100000", "", "x"))
	e.Dispatch(ev(1, 1, 10, 8, 2, 0, "u1", "20250101", "100001", "", "u1"))
	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u1", "20250102", "090000", "x", "y"))

	node := oneNode(t, e)
	Propagate(e.Nodes(), PropagateOptions{AllowSignerChanges: true})

	if node.Status.Change != ChangeAccepted {
		t.Fatalf("node.Status.Change = %v, want ChangeAccepted", node.Status.Change)
	}

	var drf bytes.Buffer
	if err := WriteDRF(&drf, e.Nodes()); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if drf.String() != "" {
		t.Fatalf("DRF should be empty, got %q", drf.String())
	}
}

// S4 Defer to final.
func TestEngine_S4_DeferToFinal(t *testing.T) {
	configs := mustConfig(t, `signature "A" plate 10 visit * fields 8 {
		plate 10;
		plate 11;
	}`)
	e := NewEngine(configs, nil)

	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u1", "20250101", "100000", "", "x"))
	e.Dispatch(ev(1, 1, 10, 8, 2, 0, "u1", "20250101", "100001", "", "u1"))
	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u2", "20250102", "090000", "x", "y"))

	node := oneNode(t, e)
	Propagate(e.Nodes(), PropagateOptions{ResignWhenFinal: true})

	var plate11 *CoveredPlate
	for _, p := range node.Plates() {
		if p.Plate == 11 {
			plate11 = p
		}
	}
	if plate11 == nil || len(plate11.Changes()) != 1 {
		t.Fatalf("expected exactly one field change on plate 11")
	}
	if plate11.Changes()[0].Status.Change != ChangeDeclinedAtFinal {
		t.Fatalf("field.Status.Change = %v, want ChangeDeclinedAtFinal", plate11.Changes()[0].Status.Change)
	}

	var drf bytes.Buffer
	if err := WriteDRF(&drf, e.Nodes()); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if drf.String() != "" {
		t.Fatalf("DRF should not include a deferred node, got %q", drf.String())
	}
}

// S5 Unsign cascade.
func TestEngine_S5_UnsignCascade(t *testing.T) {
	configs := mustConfig(t, `signature "A" plate 10 visit * fields 8 {
		plate 10;
	}`)
	e := NewEngine(configs, nil)

	e.Dispatch(ev(1, 1, 10, 8, 2, 0, "u1", "20250101", "100000", "", "u1"))
	e.Dispatch(ev(1, 1, 10, 8, 2, 0, "u1", "20250101", "100001", "u1", ""))

	node := oneNode(t, e)
	if node.Status.Signature != SigInvalidated {
		t.Fatalf("Signature = %v, want SigInvalidated", node.Status.Signature)
	}
	if node.TxnID != 0 {
		t.Fatalf("TxnID = %d, want 0", node.TxnID)
	}

	Propagate(e.Nodes(), PropagateOptions{})
	var drf bytes.Buffer
	if err := WriteDRF(&drf, e.Nodes()); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if drf.String() != "1|1|10\n" {
		t.Fatalf("DRF = %q, want %q", drf.String(), "1|1|10\n")
	}
}

// S6 Exclusion.
func TestEngine_S6_Exclusion(t *testing.T) {
	configs := mustConfig(t, `signature "A" plate 10 visit * fields 8 {
		plate 10;
		plate 11;
	}`)
	table := NewExclusionTable()
	table.rows[exclusionKey{plate: 11, field: 12, user: "u2", date: "20250101"}] = struct{}{}
	e := NewEngine(configs, table)

	e.Dispatch(ev(1, 1, 10, 8, 2, 0, "u1", "20250101", "100000", "", "u1"))
	e.Dispatch(ev(1, 1, 11, 12, 2, 0, "u2", "20250101", "110000", "", "y"))

	node := oneNode(t, e)
	var plate11 *CoveredPlate
	for _, p := range node.Plates() {
		if p.Plate == 11 {
			plate11 = p
		}
	}
	if plate11 == nil || len(plate11.Changes()) != 1 {
		t.Fatalf("expected exactly one field change on plate 11")
	}
	fc := plate11.Changes()[0]
	if fc.Status.Change != ChangeAccepted {
		t.Fatalf("Status.Change = %v, want ChangeAccepted", fc.Status.Change)
	}
	if fc.Comment != "Administratively exempted" {
		t.Fatalf("Comment = %q, want %q", fc.Comment, "Administratively exempted")
	}
}

func TestEngine_SkipsQueryAndMetadataRows(t *testing.T) {
	configs := mustConfig(t, `signature "A" plate 10 visit * fields 8 {
		plate 10;
	}`)
	e := NewEngine(configs, nil)

	queryRow := ev(1, 1, 10, 5, 2, 0, "u1", "20250101", "100000", "", "u1")
	queryRow.FieldRef = 1
	e.Dispatch(queryRow)
	if len(e.Nodes()) != 0 {
		t.Fatalf("a fieldref row should never create a node")
	}

	metaRow := ev(1, 1, 10, 4, 2, 0, "u1", "20250101", "100000", "", "u1")
	e.Dispatch(metaRow)
	if len(e.Nodes()) != 0 {
		t.Fatalf("a metadata-range field row (2<fieldPos<=7) should be skipped")
	}
}
