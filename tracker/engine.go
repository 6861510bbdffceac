package tracker

import "log"

// SigField is one signature field slot enumerated from a configuration
// record's SigFields range. It tracks whether that particular field has
// been written with a non-empty value in this run.
type SigField struct {
	FieldNumber int64
	Completed   bool
	Desc        string
	Value       string
}

// FieldChange is the tracked before/after state of one covered field,
// keyed by field number within its CoveredPlate.
type FieldChange struct {
	Field    int64
	Status   Status
	Desc     string
	OldValue string
	NewValue string
	Who      string
	Date     string
	Time     string
	Comment  string
}

// CoveredPlate is the per-plate state under a signature obligation: its
// own status triple, whether the underlying record is final, and the
// ordered set of field-level changes observed against it.
type CoveredPlate struct {
	Plate            int64
	Status           Status
	IsFinal          bool
	FieldChangeCount int

	changes      []*FieldChange
	changeIndex  map[int64]int
}

// Changes returns the plate's field changes in first-seen order.
func (cp *CoveredPlate) Changes() []*FieldChange {
	return cp.changes
}

// getOrCreateChange locates the FieldChange for field, creating it (with
// zero OldValue/NewValue) if this is the first time the plate has seen
// that field. The bool return reports whether it was just created.
func (cp *CoveredPlate) getOrCreateChange(field int64) (*FieldChange, bool) {
	if cp.changeIndex == nil {
		cp.changeIndex = make(map[int64]int)
	}
	if i, ok := cp.changeIndex[field]; ok {
		return cp.changes[i], false
	}
	fc := &FieldChange{Field: field}
	cp.changeIndex[field] = len(cp.changes)
	cp.changes = append(cp.changes, fc)
	return fc, true
}

// clearChanges discards all tracked field changes, used both by
// freeSignedValues and by the DELETED/LOST disciplines in dataChange.
func (cp *CoveredPlate) clearChanges() {
	cp.changes = nil
	cp.changeIndex = nil
	cp.FieldChangeCount = 0
}

// SigNode is one signature obligation: a (patient, visit, signature
// configuration) triple, its completion state, and the forest of
// covered plates it has accumulated changes against.
type SigNode struct {
	Patient int64
	Visit   int64
	Config  *SignatureConfig

	Status  Status
	Signer  string
	Date    string
	Time    string
	RecSeen bool
	TxnID   int64

	SigFields []*SigField

	plates      []*CoveredPlate
	plateIndex  map[int64]int
}

// Plates returns the node's covered plates in first-seen order.
func (n *SigNode) Plates() []*CoveredPlate {
	return n.plates
}

func (n *SigNode) getOrCreatePlate(plate int64) *CoveredPlate {
	if n.plateIndex == nil {
		n.plateIndex = make(map[int64]int)
	}
	if i, ok := n.plateIndex[plate]; ok {
		return n.plates[i]
	}
	cp := &CoveredPlate{Plate: plate}
	n.plateIndex[plate] = len(n.plates)
	n.plates = append(n.plates, cp)
	return cp
}

func (n *SigNode) completedCount() int {
	c := 0
	for _, sf := range n.SigFields {
		if sf.Completed {
			c++
		}
	}
	return c
}

// nodeKey uniquely identifies a SigNode: two configuration records
// sharing (patient, visit, sigPlate, minSigField) collapse to one node.
type nodeKey struct {
	patient     int64
	visit       int64
	sigPlate    int64
	minSigField int64
}

// SigningSink receives database writes at the two points the original
// tool writes them: once a signature completes, and once more for every
// subsequent covered-field write that lands in that same transaction.
// This mirrors the teacher's SyslogSender interface/mock pattern so
// engine tests never need a live database.
type SigningSink interface {
	WriteSignature(node *SigNode) error
	WriteDataValue(node *SigNode, plate int64, fc *FieldChange) error
}

// Engine maintains the forest of signature obligations and mutates it
// one audit event at a time. It owns the transaction grouper and the
// exclusion table a given run was configured with.
type Engine struct {
	AllowSignerChanges bool
	ResignWhenFinal    bool
	Sink               SigningSink

	configs    []*SignatureConfig
	nodes      []*SigNode
	nodeIndex  map[nodeKey]int
	exclusions *ExclusionTable
	grouper    *TransactionGrouper
}

// NewEngine builds an engine from a parsed configuration list and an
// exclusion table (may be nil, meaning no exclusions apply).
func NewEngine(configs []*SignatureConfig, exclusions *ExclusionTable) *Engine {
	return &Engine{
		configs:    configs,
		nodeIndex:  make(map[nodeKey]int),
		exclusions: exclusions,
		grouper:    NewTransactionGrouper(),
	}
}

// Nodes returns every signature obligation created so far, in creation
// order.
func (e *Engine) Nodes() []*SigNode {
	return e.nodes
}

func (e *Engine) getOrCreateNode(patient, visit int64, cfg *SignatureConfig) *SigNode {
	key := nodeKey{patient: patient, visit: visit, sigPlate: cfg.SigPlate, minSigField: cfg.SigFields.Min()}
	if i, ok := e.nodeIndex[key]; ok {
		return e.nodes[i]
	}
	n := &SigNode{
		Patient: patient,
		Visit:   visit,
		Config:  cfg,
	}
	for _, it := range cfg.SigFields.Items() {
		for v := it[0]; v <= it[1]; v++ {
			n.SigFields = append(n.SigFields, &SigField{FieldNumber: v})
		}
	}
	e.nodeIndex[key] = len(e.nodes)
	e.nodes = append(e.nodes, n)
	return n
}

// Dispatch assigns a transaction id to ev via the engine's transaction
// grouper and applies it against every configuration record it matches.
func (e *Engine) Dispatch(ev AuditEvent) {
	txnID := e.grouper.Assign(ev)
	e.Process(ev, txnID)
}

// Process applies one audit event under an externally-assigned
// transaction id. Dispatch is the normal entry point; Process is
// exposed for callers (such as tests) that group
// transactions themselves.
func (e *Engine) Process(ev AuditEvent, txnID int64) {
	if ev.FieldRef != 0 {
		return
	}
	if ev.FieldPos > 2 && ev.FieldPos <= 7 {
		return
	}
	for _, cfg := range e.configs {
		if cfg.Plate != ev.Plate {
			continue
		}
		if !cfg.Visits.Contains(ev.Visit) {
			continue
		}
		if cfg.IgnoreFields.Contains(ev.FieldPos) {
			continue
		}

		node := e.getOrCreateNode(ev.Patient, ev.Visit, cfg)
		if ev.Plate == cfg.SigPlate && ev.Status != 0 {
			node.RecSeen = true
		}

		if ev.Plate == cfg.SigPlate && cfg.SigFields.Contains(ev.FieldPos) {
			if ev.NewValue != "" {
				e.sign(node, ev, txnID)
			} else {
				e.unsign(node, ev)
			}
		} else {
			e.dataChange(node, cfg, ev, txnID)
		}
	}
}

// sign marks the signature field identified by ev as completed and, once
// every enumerated field has been completed, promotes the obligation to
// COMPLETE and frees any data changes accumulated before the signature.
func (e *Engine) sign(node *SigNode, ev AuditEvent, txnID int64) {
	for _, sf := range node.SigFields {
		if sf.FieldNumber == ev.FieldPos {
			sf.Completed = true
			sf.Desc = ev.FieldDesc
			sf.Value = ev.NewValue
			break
		}
	}
	if node.completedCount() == len(node.SigFields) {
		node.Status.Signature = SigComplete
		node.Signer = ev.User
		node.Date = ev.Date
		node.Time = ev.Time
		node.TxnID = txnID
		if e.Sink != nil {
			if err := e.Sink.WriteSignature(node); err != nil {
				log.Printf("signature sink write failed for patient %d visit %d: %v", node.Patient, node.Visit, err)
			}
		}
		e.freeSignedValues(node, txnID)
	}
}

// unsign clears the signature field identified by ev. An obligation
// that was COMPLETE becomes INVALIDATED; signer/date/time are retained
// for audit output, but txnId is always cleared.
func (e *Engine) unsign(node *SigNode, ev AuditEvent) {
	for _, sf := range node.SigFields {
		if sf.FieldNumber == ev.FieldPos {
			sf.Completed = false
			sf.Value = ""
			break
		}
	}
	if node.Status.Signature == SigComplete {
		node.Status.Signature = SigInvalidated
	}
	node.TxnID = 0
}

// freeSignedValues discards every covered plate's accumulated field
// changes once the signing transaction completes the obligation: the
// signature is taken to accept all pending data changes at that
// instant.
func (e *Engine) freeSignedValues(node *SigNode, txnID int64) {
	if node.TxnID != txnID {
		return
	}
	for _, cp := range node.plates {
		cp.clearChanges()
		cp.Status.Record = RecNormal
		cp.Status.Change = ChangeNone
	}
}

// dataChange applies a non-signature-field audit event to the covered
// plate it targets.
//
// The unconditional RecNormal reset below runs before the
// status/level-derived reassignment, exactly as upstream does: a later
// NORMAL event on a previously-LOST or previously-DELETED plate clears
// that state. This is preserved rather than corrected.
func (e *Engine) dataChange(node *SigNode, cfg *SignatureConfig, ev AuditEvent, txnID int64) {
	plate := node.getOrCreatePlate(cfg.Plate)
	plate.Status.Record = RecNormal
	plate.IsFinal = ev.Status == 0 || ev.Status == 1

	signed := node.Status.Signature != SigNone
	switch {
	case ev.Status == 3 && ev.Level == 7:
		plate.Status.Record = RecError
		if signed {
			plate.Status.Change = ChangeDeclined
		}
	case ev.Status == 7:
		plate.Status.Record = RecDeleted
		plate.clearChanges()
		if signed {
			plate.Status.Change = ChangeDeclined
		}
	case ev.Status == 0:
		plate.Status.Record = RecLost
		plate.clearChanges()
		if signed {
			plate.Status.Change = ChangeDeclined
		}
	}

	if txnID == node.TxnID {
		if e.Sink != nil && ev.FieldPos >= 7 {
			fc := &FieldChange{
				Field:    ev.FieldPos,
				Desc:     ev.FieldDesc,
				NewValue: decode(ev.NewValue, ev.NewDecode),
			}
			if err := e.Sink.WriteDataValue(node, cfg.Plate, fc); err != nil {
				log.Printf("data value sink write failed for patient %d visit %d plate %d: %v", node.Patient, node.Visit, cfg.Plate, err)
			}
		}
		return
	}
	if ev.FieldPos < 7 {
		return
	}

	fc, created := plate.getOrCreateChange(ev.FieldPos)
	if created {
		fc.OldValue = decode(ev.OldValue, ev.OldDecode)
	}
	fc.Who = ev.User
	fc.Date = ev.Date
	fc.Time = ev.Time
	fc.Desc = ev.FieldDesc
	fc.NewValue = decode(ev.NewValue, ev.NewDecode)
	plate.FieldChangeCount = len(plate.changes)

	if created && e.exclusions.IsExcluded(cfg.Plate, ev.FieldPos, ev.User, ev.Date, ev.OldValue) {
		fc.Status.Change = ChangeAccepted
		fc.Comment = "Administratively exempted"
	} else {
		fc.Status.Change = ChangeDeclined
		fc.Comment = ""
	}
}
