package tracker

import (
	"bytes"
	"testing"
)

func TestWriteDRF_InvalidatedAlwaysIncluded(t *testing.T) {
	node := &SigNode{Patient: 1, Visit: 2, Config: &SignatureConfig{SigPlate: 10}}
	node.Status.Signature = SigInvalidated

	var buf bytes.Buffer
	if err := WriteDRF(&buf, []*SigNode{node}); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if buf.String() != "1|2|10\n" {
		t.Fatalf("DRF = %q, want %q", buf.String(), "1|2|10\n")
	}
}

func TestWriteDRF_CompleteNormalDeclinedIncluded(t *testing.T) {
	node := &SigNode{Patient: 1, Visit: 2, Config: &SignatureConfig{SigPlate: 10}}
	node.Status.Signature = SigComplete
	node.Status.Record = RecNormal
	node.Status.Change = ChangeDeclined

	var buf bytes.Buffer
	if err := WriteDRF(&buf, []*SigNode{node}); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if buf.String() != "1|2|10\n" {
		t.Fatalf("DRF = %q, want %q", buf.String(), "1|2|10\n")
	}
}

func TestWriteDRF_OmitsUnaffectedNodes(t *testing.T) {
	clean := &SigNode{Patient: 1, Visit: 1, Config: &SignatureConfig{SigPlate: 10}}
	clean.Status.Signature = SigComplete
	clean.Status.Record = RecNormal
	clean.Status.Change = ChangeNone

	exempted := &SigNode{Patient: 1, Visit: 1, Config: &SignatureConfig{SigPlate: 11}}
	exempted.Status.Signature = SigComplete
	exempted.Status.Record = RecNormal
	exempted.Status.Change = ChangeAccepted

	unsigned := &SigNode{Patient: 1, Visit: 1, Config: &SignatureConfig{SigPlate: 12}}
	unsigned.Status.Signature = SigNone

	var buf bytes.Buffer
	if err := WriteDRF(&buf, []*SigNode{clean, exempted, unsigned}); err != nil {
		t.Fatalf("WriteDRF: %v", err)
	}
	if buf.String() != "" {
		t.Fatalf("DRF should be empty, got %q", buf.String())
	}
}
