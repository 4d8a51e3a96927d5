package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
)

type ChargeRepository struct {
	db *gorm.DB
}

func NewChargeRepository(db *gorm.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

func (r *ChargeRepository) GetByID(id uuid.UUID) (*models.Charge, error) {
	var charge models.Charge
	if err := r.db.First(&charge, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &charge, nil
}

// OldestOutstandingForUnit returns the unit's oldest not-fully-paid charge in
// ascending billing-period order, or nil when nothing is outstanding. First
// match wins regardless of amount.
func (r *ChargeRepository) OldestOutstandingForUnit(unitID uuid.UUID) (*models.Charge, error) {
	var charge models.Charge
	err := r.db.
		Where("unit_id = ?", unitID).
		Where("status <> ?", models.ChargeStatusPaid).
		Order("billing_period ASC").
		First(&charge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &charge, nil
}

// ExistsForUnitAndPeriod reports whether the unit already carries a charge of
// the given type for the period. Used to keep charge generation idempotent.
func (r *ChargeRepository) ExistsForUnitAndPeriod(unitID uuid.UUID, period string, chargeType models.ChargeType) (bool, error) {
	var count int64
	err := r.db.Model(&models.Charge{}).
		Where("unit_id = ? AND billing_period = ? AND type = ?", unitID, period, chargeType).
		Count(&count).Error
	return count > 0, err
}

// Search lists charges with optional filters, for the admin screens.
func (r *ChargeRepository) Search(status models.ChargeStatus, period string, unitID string) ([]models.Charge, error) {
	query := r.db.Model(&models.Charge{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if period != "" {
		query = query.Where("billing_period = ?", period)
	}
	if unitID != "" {
		query = query.Where("unit_id = ?", unitID)
	}

	var charges []models.Charge
	err := query.Order("billing_period ASC, created_at ASC").Find(&charges).Error
	return charges, err
}
