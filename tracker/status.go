package tracker

// SignatureStatus tracks whether an obligation's e-signature has ever been
// executed, and whether it is still in force.
type SignatureStatus int

const (
	SigNone SignatureStatus = iota
	SigComplete
	SigInvalidated
)

// RecStatus tracks the underlying case-report-form record's lifecycle.
type RecStatus int

const (
	RecNormal RecStatus = iota
	RecError
	RecLost
	RecDeleted
)

// ChangeStatus tracks whether a data change made after signing is
// acceptable. Ordering matters: propagation takes the max across a
// plate's field changes and a node's plates, so the zero value must sort
// lowest and DeclinedAtFinal must sort highest.
type ChangeStatus int

const (
	ChangeNone ChangeStatus = iota
	ChangeAccepted
	ChangeDeclined
	ChangeDeclinedAtFinal
)

// Status is the three-dimensional state carried by a SigNode, a
// CoveredPlate, and a FieldChange. Each dimension is pushed down or up the
// tree independently by the propagator (see Propagate).
type Status struct {
	Signature SignatureStatus
	Record    RecStatus
	Change    ChangeStatus
}

// maxChangeStatus returns the higher-priority of a and b under
// NONE < ACCEPTED < DECLINED < DECLINED_ATFINAL.
func maxChangeStatus(a, b ChangeStatus) ChangeStatus {
	if b > a {
		return b
	}
	return a
}

// StateLabel renders a SigNode's status as the operator-facing string the
// original tool prints, in either signature vocabulary or the alternate
// SDV (Source Data Verification) vocabulary.
func StateLabel(s Status, sdvMode bool) string {
	if sdvMode {
		return sdvLabel(s)
	}
	return signatureLabel(s)
}

func signatureLabel(s Status) string {
	switch s.Signature {
	case SigNone:
		switch s.Record {
		case RecNormal:
			return "NEVER SIGNED"
		case RecError:
			return "UNSIGNED ERROR RECORD"
		case RecLost:
			return "UNSIGNED LOST RECORD"
		case RecDeleted:
			return "UNSIGNED DELETED RECORD"
		}
	case SigInvalidated:
		switch s.Record {
		case RecNormal:
			return "SIGNATURE REMOVED"
		case RecError:
			return "SIG. REMOVED, ERROR RECORD"
		case RecLost:
			return "SIG. REMOVED, LOST RECORD"
		case RecDeleted:
			return "SIG. REMOVED, DELETED RECORD"
		}
	case SigComplete:
		switch s.Record {
		case RecNormal:
			switch s.Change {
			case ChangeNone:
				return "SIGNATURE OK"
			case ChangeAccepted:
				return "ADMIN EXEMPTED RE-SIGN"
			case ChangeDeclinedAtFinal:
				return "RE-SIGN REQD WHEN FINAL"
			case ChangeDeclined:
				return "RE-SIGN REQD"
			}
		case RecError:
			return "SIGNED IN ERROR"
		case RecLost:
			return "SIGNED, MARKED LOST"
		case RecDeleted:
			return "DELETED SIGNED RECORDS"
		}
	}
	return "STATE UNKNOWN"
}

func sdvLabel(s Status) string {
	switch s.Signature {
	case SigNone:
		switch s.Record {
		case RecNormal:
			return "NEVER VERIFIED"
		case RecError:
			return "NEVER VERIFIED (ERROR REC)"
		case RecLost:
			return "NEVER VERIFIED (LOST REC)"
		case RecDeleted:
			return "NEVER VERIFIED (DELETED REC)"
		}
	case SigInvalidated:
		switch s.Record {
		case RecNormal:
			return "RE-VERIFICATION REQD"
		case RecError:
			return "RE-VERIFICATION REQD (ERROR REC)"
		case RecLost:
			return "RE-VERIFICATION REQD (LOST REC)"
		case RecDeleted:
			return "RE-VERIFICATION REQD (DELETED REC)"
		}
	case SigComplete:
		switch s.Record {
		case RecNormal:
			switch s.Change {
			case ChangeNone:
				return "SDV OK"
			case ChangeAccepted:
				return "ADMIN EXEMPTED RE-VERIFICATION"
			case ChangeDeclinedAtFinal:
				return "RE-VERIFICATION REQD WHEN FINAL"
			case ChangeDeclined:
				return "RE-VERIFICATION REQD"
			}
		case RecError:
			return "SDV OK (ERROR REC)"
		case RecLost:
			return "SDV OK (LOST REC)"
		case RecDeleted:
			return "SDV OK (DELETED REC)"
		}
	}
	return "STATE UNKNOWN"
}
