package tracker

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDRF emits the re-sign listing: one `patient|visit|sigPlate` line
// for every node that either lost its signature outright, or completed
// normally but carries a still-declined change.
func WriteDRF(w io.Writer, nodes []*SigNode) error {
	bw := bufio.NewWriter(w)
	for _, node := range nodes {
		if !needsDRF(node) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%d|%d|%d\n", node.Patient, node.Visit, node.Config.SigPlate); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func needsDRF(node *SigNode) bool {
	if node.Status.Signature == SigInvalidated {
		return true
	}
	return node.Status.Signature == SigComplete &&
		node.Status.Record == RecNormal &&
		node.Status.Change == ChangeDeclined
}
