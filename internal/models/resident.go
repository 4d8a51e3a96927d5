package models

import (
	"time"

	"github.com/google/uuid"
)

// Resident belongs to exactly one Unit. GpayName is the display name the
// payment app shows for this person; it is the key the matcher uses to credit
// incoming transactions to the right unit. Empty means not set.
type Resident struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UnitID    uuid.UUID `gorm:"type:uuid;index"`
	Name      string
	Phone     string
	Email     string
	IsOwner   bool
	GpayName  string `gorm:"index"`
	CreatedAt time.Time
}
