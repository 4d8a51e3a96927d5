package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ExpenseCategory string

const (
	ExpenseCategoryElectricity ExpenseCategory = "electricity"
	ExpenseCategoryWater       ExpenseCategory = "water"
	ExpenseCategoryMaintenance ExpenseCategory = "maintenance"
	ExpenseCategoryService     ExpenseCategory = "service"
	ExpenseCategoryOther       ExpenseCategory = "other"
)

// Expense is a recorded outbound spend.
type Expense struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Description          string
	Amount               decimal.Decimal `gorm:"type:decimal(10,2);index"`
	PaidDate             time.Time       `gorm:"type:date;index"`
	Category             ExpenseCategory `gorm:"index"`
	Source               PaymentSource
	ReferenceNumber      string
	ReconciliationStatus LedgerReconStatus `gorm:"index"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
