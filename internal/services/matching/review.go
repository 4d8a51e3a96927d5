package matching

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/events"
	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
	"apartment-ledger-backend/internal/services/billing"
)

// Manual resolution of unmatched transactions from the review queue. These
// are the human counterparts of matchCredit/matchDebit: the reviewer supplies
// what auto-matching could not determine (the unit, or the expense category)
// and the transaction moves to manual_matched.

// AssignPayment records the parsed transaction as a payment for the chosen
// unit, against that unit's oldest outstanding charge.
func (m *Matcher) AssignPayment(ctx context.Context, parsedID, unitID uuid.UUID, reference string, paidDate *time.Time) (*models.Payment, error) {
	var payment *models.Payment
	var pending []events.Event

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parsed, err := repository.NewParsedTransactionRepository(tx).GetByID(parsedID)
		if err != nil {
			return err
		}

		date := parsed.Date
		if paidDate != nil {
			date = *paidDate
		}

		charge, err := repository.NewChargeRepository(tx).OldestOutstandingForUnit(unitID)
		if err != nil {
			return err
		}

		payment = &models.Payment{
			ID:                   uuid.New(),
			UnitID:               &unitID,
			Amount:               parsed.Amount,
			PaidDate:             date,
			Source:               paymentSourceFor(tx, parsed.UploadID),
			ReferenceNumber:      reference,
			MatchedBy:            models.MatchedByManual,
			ReconciliationStatus: models.LedgerReconPendingVerification,
		}
		if charge != nil {
			chargeID := charge.ID
			payment.ChargeID = &chargeID
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		pending = append(pending, events.PaymentRecorded{
			PaymentID:     payment.ID,
			UnitID:        payment.UnitID,
			Amount:        payment.Amount,
			BillingPeriod: billing.PeriodFromDate(payment.PaidDate),
			MatchedBy:     models.MatchedByManual,
		})

		if charge != nil {
			statusEvent, err := billing.Recompute(tx, charge)
			if err != nil {
				return err
			}
			if statusEvent != nil {
				pending = append(pending, *statusEvent)
			}
		}

		return m.markMatched(tx, parsed, models.MatchTypePayment, &payment.ID, nil, models.ReconStatusManualMatched)
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, pending)
	return payment, nil
}

// AssignExpense records the parsed transaction as an expense with the
// reviewer's category.
func (m *Matcher) AssignExpense(ctx context.Context, parsedID uuid.UUID, category models.ExpenseCategory, description string, paidDate *time.Time) (*models.Expense, error) {
	var expense *models.Expense
	var pending []events.Event

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parsed, err := repository.NewParsedTransactionRepository(tx).GetByID(parsedID)
		if err != nil {
			return err
		}

		date := parsed.Date
		if paidDate != nil {
			date = *paidDate
		}
		if description == "" {
			description = parsed.SenderName
		}
		if description == "" {
			description = "Unknown expense"
		}

		expense = &models.Expense{
			ID:                   uuid.New(),
			Description:          description,
			Amount:               parsed.Amount,
			PaidDate:             date,
			Category:             category,
			Source:               paymentSourceFor(tx, parsed.UploadID),
			ReconciliationStatus: models.LedgerReconPendingVerification,
		}
		if err := tx.Create(expense).Error; err != nil {
			return err
		}

		pending = append(pending, events.ExpenseRecorded{
			ExpenseID:     expense.ID,
			Amount:        expense.Amount,
			Category:      expense.Category,
			BillingPeriod: billing.PeriodFromDate(expense.PaidDate),
		})

		return m.markMatched(tx, parsed, models.MatchTypeExpense, nil, &expense.ID, models.ReconStatusManualMatched)
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, pending)
	return expense, nil
}

// Dismiss marks an unmatched transaction reconciled without creating any
// ledger entry, for noise the reviewer decides to ignore.
func (m *Matcher) Dismiss(ctx context.Context, parsedID uuid.UUID) error {
	return m.db.WithContext(ctx).Model(&models.ParsedTransaction{}).
		Where("id = ?", parsedID).
		Update("reconciliation_status", models.ReconStatusReconciled).Error
}

// paymentSourceFor derives the ledger source from the upload type the parsed
// transaction came from. Falls back to gpay when the upload is gone.
func paymentSourceFor(tx *gorm.DB, uploadID uuid.UUID) models.PaymentSource {
	upload, err := repository.NewUploadRepository(tx).GetByID(uploadID)
	if err != nil || upload.Type == models.UploadTypeGpayScreenshot {
		return models.PaymentSourceGpay
	}
	return models.PaymentSourceBankTransfer
}
