package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ChargeType string

const (
	ChargeTypeMaintenance ChargeType = "maintenance"
	ChargeTypeAdhoc       ChargeType = "adhoc"
)

type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "pending"
	ChargeStatusPartial ChargeStatus = "partial"
	ChargeStatusPaid    ChargeStatus = "paid"
)

// Charge is a billing obligation. UnitID is nil for community-wide charges.
// Status is derived from the sum of linked payments; it is only set directly
// at creation (pending) and recomputed everywhere else.
type Charge struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UnitID        *uuid.UUID `gorm:"type:uuid;index;constraint:OnDelete:SET NULL"`
	Type          ChargeType `gorm:"index"`
	Description   string
	Amount        decimal.Decimal `gorm:"type:decimal(10,2)"`
	BillingPeriod string          `gorm:"index"`
	DueDate       *time.Time      `gorm:"type:date"`
	Status        ChargeStatus    `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
