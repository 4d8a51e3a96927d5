package repository

import (
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
)

type ResidentRepository struct {
	db *gorm.DB
}

func NewResidentRepository(db *gorm.DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

// WithGpayName returns every resident that has a payment-app display name set.
// The fuzzy comparison itself happens in the matcher; the set is small enough
// to scan in memory.
func (r *ResidentRepository) WithGpayName() ([]models.Resident, error) {
	var residents []models.Resident
	err := r.db.Where("gpay_name <> ''").Find(&residents).Error
	return residents, err
}

func (r *ResidentRepository) GetByID(id string) (*models.Resident, error) {
	var resident models.Resident
	if err := r.db.First(&resident, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resident, nil
}

func (r *ResidentRepository) ListByUnit(unitID string) ([]models.Resident, error) {
	var residents []models.Resident
	err := r.db.Where("unit_id = ?", unitID).Order("name ASC").Find(&residents).Error
	return residents, err
}
