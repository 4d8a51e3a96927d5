package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaintenanceSlab is one row of the versioned rate table. Rate changes are new
// rows, never edits, so historical charges stay reproducible.
type MaintenanceSlab struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FlatType      FlatType        `gorm:"index"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2)"`
	EffectiveFrom time.Time       `gorm:"type:date;index"`
	CreatedAt     time.Time
}
