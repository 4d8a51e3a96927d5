package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
)

type ParsedTransactionRepository struct {
	db *gorm.DB
}

func NewParsedTransactionRepository(db *gorm.DB) *ParsedTransactionRepository {
	return &ParsedTransactionRepository{db: db}
}

func (r *ParsedTransactionRepository) GetByID(id uuid.UUID) (*models.ParsedTransaction, error) {
	var parsed models.ParsedTransaction
	if err := r.db.First(&parsed, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ClaimedDuplicateExists reports whether another parsed transaction with the
// same fingerprint has already been claimed, i.e. sits in auto_matched,
// manual_matched or reconciled. A colliding row that is still unmatched does
// not count: it is awaiting human resolution and has produced no ledger entry
// to double-count against.
func (r *ParsedTransactionRepository) ClaimedDuplicateExists(fp string, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.ParsedTransaction{}).
		Where("fingerprint = ?", fp).
		Where("id <> ?", excludeID).
		Where("reconciliation_status IN ?", []models.ReconStatus{
			models.ReconStatusAutoMatched,
			models.ReconStatusManualMatched,
			models.ReconStatusReconciled,
		}).
		Count(&count).Error
	return count > 0, err
}

// DeleteForUpload purges every parsed transaction of the upload. Called on
// retry so re-processing replaces history instead of appending to it.
func (r *ParsedTransactionRepository) DeleteForUpload(uploadID uuid.UUID) error {
	return r.db.Where("upload_id = ?", uploadID).
		Delete(&models.ParsedTransaction{}).Error
}

func (r *ParsedTransactionRepository) CountForUpload(uploadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.ParsedTransaction{}).
		Where("upload_id = ?", uploadID).
		Count(&count).Error
	return count, err
}

// ListUnmatched returns the review queue, newest first.
func (r *ParsedTransactionRepository) ListUnmatched() ([]models.ParsedTransaction, error) {
	var parsed []models.ParsedTransaction
	err := r.db.
		Where("reconciliation_status = ?", models.ReconStatusUnmatched).
		Order("created_at DESC").
		Find(&parsed).Error
	return parsed, err
}
