package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentSource string

const (
	PaymentSourceGpay         PaymentSource = "gpay"
	PaymentSourceBankTransfer PaymentSource = "bank_transfer"
	PaymentSourceCash         PaymentSource = "cash"
)

type MatchedBy string

const (
	MatchedByManual MatchedBy = "manual"
	MatchedByAuto   MatchedBy = "auto"
)

// LedgerReconStatus tracks whether a payment or expense has been confirmed by
// an authoritative bank statement.
type LedgerReconStatus string

const (
	LedgerReconPendingVerification LedgerReconStatus = "pending_verification"
	LedgerReconBankVerified        LedgerReconStatus = "bank_verified"
)

// Payment is a recorded inbound payment. ChargeID is nil when the unit has no
// outstanding charge at match time; the money is still on the books.
type Payment struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ChargeID             *uuid.UUID `gorm:"type:uuid;index"`
	UnitID               *uuid.UUID `gorm:"type:uuid;index"`
	Amount               decimal.Decimal `gorm:"type:decimal(10,2);index"`
	PaidDate             time.Time       `gorm:"type:date;index"`
	Source               PaymentSource
	ReferenceNumber      string
	MatchedBy            MatchedBy
	ReconciliationStatus LedgerReconStatus `gorm:"index"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
