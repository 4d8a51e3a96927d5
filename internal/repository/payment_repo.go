package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByID(id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ForCharge returns all payments linked to the charge. The balance
// recalculator sums these in decimal arithmetic rather than in SQL.
func (r *PaymentRepository) ForCharge(chargeID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("charge_id = ?", chargeID).Find(&payments).Error
	return payments, err
}

// FindPendingInWindow looks for a payment awaiting bank verification with the
// exact amount and a paid date within one day either side of date. Bounds are
// inclusive.
func (r *PaymentRepository) FindPendingInWindow(amount decimal.Decimal, date time.Time) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.
		Where("amount = ?", amount).
		Where("paid_date BETWEEN ? AND ?", date.AddDate(0, 0, -1), date.AddDate(0, 0, 1)).
		Where("reconciliation_status = ?", models.LedgerReconPendingVerification).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListBetween returns payments with paid dates in [start, end], oldest first.
func (r *PaymentRepository) ListBetween(start, end time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("paid_date BETWEEN ? AND ?", start, end).
		Order("paid_date ASC").
		Find(&payments).Error
	return payments, err
}
