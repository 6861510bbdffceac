package tracker

import (
	"bufio"
	"fmt"
	"io"
)

// Priority levels used by the flattened `plate|field|level` listing: an
// ignored field is uninteresting (level 1), a signature field on the
// signature plate is the highest-priority item a reviewer should look
// at (level 3). PriorityCovered (level 2) ranks ordinary covered fields
// between the two; WritePriorityFile emits no lines for them.
const (
	PriorityIgnored   = 1
	PriorityCovered   = 2
	PrioritySignature = 3
)

// WritePriorityFile flattens every configuration record to its
// constituent plate/field/level lines. It backs the CLI's
// --priority-file flag, which produces this listing instead of
// processing the audit stream.
func WritePriorityFile(w io.Writer, configs []*SignatureConfig) error {
	bw := bufio.NewWriter(w)
	for _, cfg := range configs {
		for _, it := range cfg.IgnoreFields.Items() {
			for f := it[0]; f <= it[1]; f++ {
				if err := writePriorityLine(bw, cfg.Plate, f, PriorityIgnored); err != nil {
					return err
				}
			}
		}
		if cfg.Plate == cfg.SigPlate {
			for _, it := range cfg.SigFields.Items() {
				for f := it[0]; f <= it[1]; f++ {
					if err := writePriorityLine(bw, cfg.SigPlate, f, PrioritySignature); err != nil {
						return err
					}
				}
			}
		}
	}
	return bw.Flush()
}

func writePriorityLine(w io.Writer, plate, field int64, level int) error {
	_, err := fmt.Fprintf(w, "%d|%d|%d\n", plate, field, level)
	return err
}
