package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

type MatchType string

const (
	MatchTypeUnmatched MatchType = "unmatched"
	MatchTypePayment   MatchType = "payment"
	MatchTypeExpense   MatchType = "expense"
)

// ReconStatus is the lifecycle of a parsed transaction:
// unmatched -> auto_matched | manual_matched -> reconciled.
// unmatched is also terminal until a human acts on it.
type ReconStatus string

const (
	ReconStatusUnmatched     ReconStatus = "unmatched"
	ReconStatusAutoMatched   ReconStatus = "auto_matched"
	ReconStatusManualMatched ReconStatus = "manual_matched"
	ReconStatusReconciled    ReconStatus = "reconciled"
)

// ParsedTransaction is one transaction extracted from an upload. It is created
// once per extracted record and mutated only by the matcher. The references to
// the payment/expense it produced are one-way; the ledger side never points
// back.
type ParsedTransaction struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UploadID             uuid.UUID      `gorm:"type:uuid;index"`
	RawText              datatypes.JSON
	SenderName           string
	Amount               decimal.Decimal `gorm:"type:decimal(10,2)"`
	Date                 time.Time       `gorm:"type:date"`
	Direction            Direction
	Fingerprint          string      `gorm:"index"`
	MatchType            MatchType   `gorm:"default:unmatched"`
	MatchedPaymentID     *uuid.UUID  `gorm:"type:uuid"`
	MatchedExpenseID     *uuid.UUID  `gorm:"type:uuid"`
	ReconciliationStatus ReconStatus `gorm:"index;default:unmatched"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
