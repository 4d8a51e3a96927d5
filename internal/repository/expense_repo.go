package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) GetByID(id uuid.UUID) (*models.Expense, error) {
	var expense models.Expense
	if err := r.db.First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// FindPendingInWindow mirrors PaymentRepository.FindPendingInWindow for the
// debit side.
func (r *ExpenseRepository) FindPendingInWindow(amount decimal.Decimal, date time.Time) (*models.Expense, error) {
	var expense models.Expense
	err := r.db.
		Where("amount = ?", amount).
		Where("paid_date BETWEEN ? AND ?", date.AddDate(0, 0, -1), date.AddDate(0, 0, 1)).
		Where("reconciliation_status = ?", models.LedgerReconPendingVerification).
		First(&expense).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *ExpenseRepository) ListBetween(start, end time.Time) ([]models.Expense, error) {
	var expenses []models.Expense
	err := r.db.
		Where("paid_date BETWEEN ? AND ?", start, end).
		Order("paid_date ASC").
		Find(&expenses).Error
	return expenses, err
}
