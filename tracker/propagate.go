package tracker

// PropagateOptions controls the two tunable policies documented in the
// CLI surface: exempting the signer's own edits, and deferring a
// re-sign requirement until the underlying record is final.
type PropagateOptions struct {
	AllowSignerChanges bool
	ResignWhenFinal    bool
}

// Propagate runs a single pass over every node, lifting per-field
// change status up to its covered plate and from there up to the
// obligation itself, under the NONE < ACCEPTED < DECLINED <
// DECLINED_ATFINAL ordering.
//
// The pass deliberately does not reset a plate's prior changeStatus
// before taking the max with its fields' statuses: running it twice
// over the same tree can accumulate a higher status than either pass
// alone would produce. Treat it as idempotent only within a single
// run.
func Propagate(nodes []*SigNode, opts PropagateOptions) {
	for _, node := range nodes {
		node.Status.Change = ChangeNone

		for _, plate := range node.plates {
			plate.Status.Signature = node.Status.Signature
			plate.FieldChangeCount = 0

			for _, fc := range plate.changes {
				plate.FieldChangeCount++

				if opts.ResignWhenFinal && !plate.IsFinal && fc.Status.Change == ChangeDeclined {
					fc.Status.Change = ChangeDeclinedAtFinal
				}

				fc.Status.Record = plate.Status.Record
				fc.Status.Signature = plate.Status.Signature

				if opts.AllowSignerChanges && fc.Who == node.Signer {
					fc.Comment = "Changed by Signer"
					fc.Status.Change = ChangeAccepted
				}

				plate.Status.Change = maxChangeStatus(plate.Status.Change, fc.Status.Change)
			}

			if node.Config != nil && plate.Plate == node.Config.SigPlate {
				node.Status.Record = plate.Status.Record
			}

			node.Status.Change = maxChangeStatus(node.Status.Change, plate.Status.Change)
		}
	}
}
