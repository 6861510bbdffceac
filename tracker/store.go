package tracker

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Signing is one row of the `signings` table: a completed signature,
// keyed by the transaction that completed it and the obligation's
// serial configuration id.
type Signing struct {
	TxnID  int64  `gorm:"column:txnid;primaryKey"`
	SigID  int    `gorm:"column:sigid;primaryKey"`
	PID    int64  `gorm:"column:pid"`
	Visit  int64  `gorm:"column:visit"`
	Plate  int64  `gorm:"column:plate"`
	SDesc  string `gorm:"column:sdesc"`
	Signer string `gorm:"column:signer"`
	SDate  string `gorm:"column:sdate"`
	STime  string `gorm:"column:stime"`
}

func (Signing) TableName() string { return "signings" }

// SignatureValue is one row of the `signature_values` table: the value
// captured for one signature field at the moment its obligation
// completed.
type SignatureValue struct {
	TxnID  int64  `gorm:"column:txnid;primaryKey"`
	SigID  int    `gorm:"column:sigid;primaryKey"`
	Plate  int64  `gorm:"column:plate;primaryKey"`
	Field  int64  `gorm:"column:field;primaryKey"`
	FDesc  string `gorm:"column:fdesc"`
	FValue string `gorm:"column:fvalue"`
}

func (SignatureValue) TableName() string { return "signature_values" }

// DataValue is one row of the `data_values` table: a covered field's
// current new value, replaced in place as later transactions touch it.
type DataValue struct {
	TxnID  int64  `gorm:"column:txnid;primaryKey"`
	SigID  int    `gorm:"column:sigid;primaryKey"`
	Plate  int64  `gorm:"column:plate;primaryKey"`
	Field  int64  `gorm:"column:field;primaryKey"`
	FDesc  string `gorm:"column:fdesc"`
	FValue string `gorm:"column:fvalue"`
}

func (DataValue) TableName() string { return "data_values" }

// OpenSinkDB opens (creating if absent) the SQLite database backing a
// Sink, with the fixed three-table schema and the `signings_idx` lookup
// index on (pid, visit, plate).
func OpenSinkDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening sink database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Signing{}, &SignatureValue{}, &DataValue{}); err != nil {
		return nil, fmt.Errorf("migrating sink schema: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS signings_idx ON signings(pid, visit, plate)`).Error; err != nil {
		return nil, fmt.Errorf("creating signings_idx: %w", err)
	}
	return db, nil
}

// Sink writes completed signatures and their covered data to a SQLite
// database inside a single transaction for the whole run, committed on
// Close exactly as the original tool commits once at process exit.
type Sink struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewSink opens path and begins the run-scoped transaction.
func NewSink(path string) (*Sink, error) {
	db, err := OpenSinkDB(path)
	if err != nil {
		return nil, err
	}
	tx := db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("beginning sink transaction: %w", tx.Error)
	}
	return &Sink{db: db, tx: tx}, nil
}

// Close commits the run's transaction. A failed commit is returned to
// the caller rather than silently swallowed; the run should be treated
// as having not persisted.
func (s *Sink) Close() error {
	if err := s.tx.Commit().Error; err != nil {
		return fmt.Errorf("committing sink transaction: %w", err)
	}
	return nil
}

// WriteSignature persists a just-completed signature: the signing row
// itself, every signature field's captured value, and every pending
// covered field change at the moment of completion — called
// immediately after Engine.sign promotes a node to SigComplete, before
// freeSignedValues discards those pending changes.
func (s *Sink) WriteSignature(node *SigNode) error {
	sigID := node.Config.Serial
	signing := Signing{
		TxnID:  node.TxnID,
		SigID:  sigID,
		PID:    node.Patient,
		Visit:  node.Visit,
		Plate:  node.Config.SigPlate,
		SDesc:  node.Config.Name,
		Signer: node.Signer,
		SDate:  node.Date,
		STime:  node.Time,
	}
	if err := s.insertOrReplace(&signing); err != nil {
		return fmt.Errorf("writing signing row: %w", err)
	}

	for _, sf := range node.SigFields {
		sv := SignatureValue{
			TxnID:  node.TxnID,
			SigID:  sigID,
			Plate:  node.Config.SigPlate,
			Field:  sf.FieldNumber,
			FDesc:  sf.Desc,
			FValue: sf.Value,
		}
		if err := s.insertOrReplace(&sv); err != nil {
			return fmt.Errorf("writing signature_values row: %w", err)
		}
	}

	for _, plate := range node.plates {
		for _, fc := range plate.changes {
			dv := DataValue{
				TxnID:  node.TxnID,
				SigID:  sigID,
				Plate:  plate.Plate,
				Field:  fc.Field,
				FDesc:  fc.Desc,
				FValue: fc.NewValue,
			}
			if err := s.insertOrReplace(&dv); err != nil {
				return fmt.Errorf("writing data_values row: %w", err)
			}
		}
	}
	return nil
}

// WriteDataValue persists a single covered-field change observed during
// the signing transaction of an already-completed obligation — called
// on every dataChange whose txnId matches node.TxnID.
func (s *Sink) WriteDataValue(node *SigNode, plate int64, fc *FieldChange) error {
	dv := DataValue{
		TxnID:  node.TxnID,
		SigID:  node.Config.Serial,
		Plate:  plate,
		Field:  fc.Field,
		FDesc:  fc.Desc,
		FValue: fc.NewValue,
	}
	if err := s.insertOrReplace(&dv); err != nil {
		return fmt.Errorf("replacing data_values row: %w", err)
	}
	return nil
}

// insertOrReplace issues SQLite's INSERT OR REPLACE rather than GORM's
// portable Save/Upsert clause, since the schema's composite primary
// keys and replace-on-conflict semantics are SQLite-specific and the
// original tool relies on them literally.
func (s *Sink) insertOrReplace(row interface{}) error {
	switch v := row.(type) {
	case *Signing:
		return s.tx.Exec(
			`INSERT OR REPLACE INTO signings (txnid, sigid, pid, visit, plate, sdesc, signer, sdate, stime) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.TxnID, v.SigID, v.PID, v.Visit, v.Plate, v.SDesc, v.Signer, v.SDate, v.STime,
		).Error
	case *SignatureValue:
		return s.tx.Exec(
			`INSERT OR REPLACE INTO signature_values (txnid, sigid, plate, field, fdesc, fvalue) VALUES (?, ?, ?, ?, ?, ?)`,
			v.TxnID, v.SigID, v.Plate, v.Field, v.FDesc, v.FValue,
		).Error
	case *DataValue:
		return s.tx.Exec(
			`INSERT OR REPLACE INTO data_values (txnid, sigid, plate, field, fdesc, fvalue) VALUES (?, ?, ?, ?, ?, ?)`,
			v.TxnID, v.SigID, v.Plate, v.Field, v.FDesc, v.FValue,
		).Error
	default:
		return fmt.Errorf("insertOrReplace: unsupported row type %T", row)
	}
}
