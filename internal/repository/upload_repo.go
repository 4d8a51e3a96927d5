package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
)

type UploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) GetByID(id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.First(&upload, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *UploadRepository) List(limit int) ([]models.Upload, error) {
	var uploads []models.Upload
	err := r.db.Order("created_at DESC").Limit(limit).Find(&uploads).Error
	return uploads, err
}
