package models

import (
	"time"

	"github.com/google/uuid"
)

type UploadType string

const (
	UploadTypeGpayScreenshot UploadType = "gpay_screenshot"
	UploadTypeBankStatement  UploadType = "bank_statement"
)

type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusProcessed  UploadStatus = "processed"
	UploadStatusFailed     UploadStatus = "failed"
)

// Upload is a submitted evidence file. It exclusively owns its parsed
// transactions; deleting the upload cascades to them.
type Upload struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primaryKey"`
	FilePath           string
	Type               UploadType   `gorm:"index"`
	Status             UploadStatus `gorm:"index"`
	ProcessedAt        *time.Time
	ParsedTransactions []ParsedTransaction `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
