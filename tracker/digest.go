package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// RunDigest returns a stable content digest over a finished run's
// signature decisions, logged at the end of a run (as a debug line, so
// only when debug logging is on) the same way the
// teacher logs a per-file SHA-256 for dedup purposes: this digest isn't
// a security control, just a cheap way for an operator to notice that
// two runs over the same audit stream produced the same result.
func RunDigest(nodes []*SigNode, hexLen int) string {
	lines := make([]string, 0, len(nodes))
	for _, node := range nodes {
		lines = append(lines, fmt.Sprintf("%d|%d|%d|%d|%d|%d",
			node.Patient, node.Visit, node.Config.SigPlate,
			node.Status.Signature, node.Status.Record, node.Status.Change))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	full := hex.EncodeToString(h.Sum(nil))
	if hexLen <= 0 || hexLen >= len(full) {
		return full
	}
	return full[:hexLen]
}
