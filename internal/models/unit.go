package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FlatType string

const (
	FlatType1BHK FlatType = "1BHK"
	FlatType2BHK FlatType = "2BHK"
	FlatType3BHK FlatType = "3BHK"
)

// Unit is a physical flat. Flat numbers are unique and never change.
type Unit struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	FlatNumber string    `gorm:"uniqueIndex"`
	FlatType   FlatType  `gorm:"index"`
	Floor      int
	AreaSqft   decimal.Decimal `gorm:"type:decimal(10,2)"`
	Residents  []Resident      `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
}
