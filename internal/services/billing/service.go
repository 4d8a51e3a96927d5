// Package billing owns the ledger side of the system: charges, payments,
// expenses, maintenance rate slabs and the derived charge status.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/events"
	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
)

type Service struct {
	db  *gorm.DB
	bus *events.Bus
	log zerolog.Logger
}

func NewService(db *gorm.DB, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{db: db, bus: bus, log: log}
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

// PaidAmount sums the amounts of all payments linked to the charge.
func PaidAmount(tx *gorm.DB, chargeID uuid.UUID) (decimal.Decimal, error) {
	payments, err := repository.NewPaymentRepository(tx).ForCharge(chargeID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// Balance returns charge.Amount minus the paid amount.
func Balance(tx *gorm.DB, charge *models.Charge) (decimal.Decimal, error) {
	paid, err := PaidAmount(tx, charge.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return charge.Amount.Sub(paid), nil
}

// Recompute derives the charge's status from its linked payments and persists
// it when it changed: paid when paidAmount >= amount, partial when
// 0 < paidAmount < amount, pending otherwise. It must run inside the same
// transaction as the payment write that triggered it. The returned event is
// non-nil when the status moved; the caller publishes it after commit.
func Recompute(tx *gorm.DB, charge *models.Charge) (*events.ChargeStatusChanged, error) {
	paid, err := PaidAmount(tx, charge.ID)
	if err != nil {
		return nil, err
	}

	var status models.ChargeStatus
	switch {
	case paid.GreaterThanOrEqual(charge.Amount):
		status = models.ChargeStatusPaid
	case paid.GreaterThan(decimal.Zero):
		status = models.ChargeStatusPartial
	default:
		status = models.ChargeStatusPending
	}

	if status == charge.Status {
		return nil, nil
	}

	old := charge.Status
	charge.Status = status
	if err := tx.Model(&models.Charge{}).Where("id = ?", charge.ID).
		Update("status", status).Error; err != nil {
		return nil, err
	}

	return &events.ChargeStatusChanged{
		ChargeID:      charge.ID,
		BillingPeriod: charge.BillingPeriod,
		OldStatus:     old,
		NewStatus:     status,
	}, nil
}

// recomputeByID recomputes a charge fetched inside tx. Missing charges are
// ignored so payment deletion keeps working after a charge was removed.
func recomputeByID(tx *gorm.DB, chargeID uuid.UUID) (*events.ChargeStatusChanged, error) {
	charge, err := repository.NewChargeRepository(tx).GetByID(chargeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Recompute(tx, charge)
}

// CurrentRate returns the maintenance rate active for the flat type at the
// given date: the slab with the latest effective_from <= date. Nil when no
// slab applies yet.
func (s *Service) CurrentRate(flatType models.FlatType, date time.Time) (*decimal.Decimal, error) {
	var slab models.MaintenanceSlab
	err := s.db.
		Where("flat_type = ?", flatType).
		Where("effective_from <= ?", date).
		Order("effective_from DESC").
		First(&slab).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slab.Amount, nil
}

// GenerateMaintenanceCharges creates one maintenance charge per unit for the
// billing period, at the unit's current slab rate. Units that already have a
// maintenance charge for the period, or no applicable slab, are skipped, so
// the operation is idempotent.
func (s *Service) GenerateMaintenanceCharges(ctx context.Context, period string, dueDate *time.Time) ([]models.Charge, error) {
	if !IsValidPeriod(period) {
		return nil, fmt.Errorf("invalid billing period %q", period)
	}

	var units []models.Unit
	if err := s.db.Find(&units).Error; err != nil {
		return nil, err
	}

	chargeRepo := repository.NewChargeRepository(s.db)
	var created []models.Charge

	for _, unit := range units {
		exists, err := chargeRepo.ExistsForUnitAndPeriod(unit.ID, period, models.ChargeTypeMaintenance)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		rate, err := s.CurrentRate(unit.FlatType, time.Now())
		if err != nil {
			return nil, err
		}
		if rate == nil {
			s.log.Warn().Str("flat_number", unit.FlatNumber).
				Str("flat_type", string(unit.FlatType)).
				Msg("no maintenance slab for flat type, skipping")
			continue
		}

		unitID := unit.ID
		charge := models.Charge{
			ID:            uuid.New(),
			UnitID:        &unitID,
			Type:          models.ChargeTypeMaintenance,
			Description:   fmt.Sprintf("Maintenance for %s", period),
			Amount:        *rate,
			BillingPeriod: period,
			DueDate:       dueDate,
			Status:        models.ChargeStatusPending,
		}
		if err := s.db.WithContext(ctx).Create(&charge).Error; err != nil {
			return nil, err
		}
		created = append(created, charge)
	}

	s.log.Info().Str("period", period).Int("created", len(created)).
		Msg("maintenance charges generated")
	return created, nil
}

// PaymentParams describes a manually recorded payment.
type PaymentParams struct {
	ChargeID        *uuid.UUID
	UnitID          *uuid.UUID
	Amount          decimal.Decimal
	PaidDate        time.Time
	Source          models.PaymentSource
	ReferenceNumber string
}

// RecordPayment creates a manual payment and recomputes the linked charge
// inside one transaction.
func (s *Service) RecordPayment(ctx context.Context, params PaymentParams) (*models.Payment, error) {
	payment := &models.Payment{
		ID:                   uuid.New(),
		ChargeID:             params.ChargeID,
		UnitID:               params.UnitID,
		Amount:               params.Amount,
		PaidDate:             params.PaidDate,
		Source:               params.Source,
		ReferenceNumber:      params.ReferenceNumber,
		MatchedBy:            models.MatchedByManual,
		ReconciliationStatus: models.LedgerReconPendingVerification,
	}

	var statusEvent *events.ChargeStatusChanged
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		if params.ChargeID != nil {
			ev, err := recomputeByID(tx, *params.ChargeID)
			if err != nil {
				return err
			}
			statusEvent = ev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.PaymentRecorded{
		PaymentID:     payment.ID,
		UnitID:        payment.UnitID,
		Amount:        payment.Amount,
		BillingPeriod: PeriodFromDate(payment.PaidDate),
		MatchedBy:     payment.MatchedBy,
	})
	if statusEvent != nil {
		s.bus.Publish(ctx, *statusEvent)
	}
	return payment, nil
}

// RelinkPayment moves a payment to a different charge (or detaches it when
// newChargeID is nil) and recomputes both the old and the new charge.
func (s *Service) RelinkPayment(ctx context.Context, paymentID uuid.UUID, newChargeID *uuid.UUID) (*models.Payment, error) {
	var payment *models.Payment
	var statusEvents []*events.ChargeStatusChanged

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = repository.NewPaymentRepository(tx).GetByID(paymentID)
		if err != nil {
			return err
		}

		oldChargeID := payment.ChargeID
		payment.ChargeID = newChargeID
		if err := tx.Save(payment).Error; err != nil {
			return err
		}

		if oldChargeID != nil {
			ev, err := recomputeByID(tx, *oldChargeID)
			if err != nil {
				return err
			}
			statusEvents = append(statusEvents, ev)
		}
		if newChargeID != nil && (oldChargeID == nil || *newChargeID != *oldChargeID) {
			ev, err := recomputeByID(tx, *newChargeID)
			if err != nil {
				return err
			}
			statusEvents = append(statusEvents, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range statusEvents {
		if ev != nil {
			s.bus.Publish(ctx, *ev)
		}
	}
	return payment, nil
}

// DeletePayment removes a payment and recomputes the charge it was linked to.
func (s *Service) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	var statusEvent *events.ChargeStatusChanged

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := repository.NewPaymentRepository(tx).GetByID(paymentID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Payment{}, "id = ?", paymentID).Error; err != nil {
			return err
		}
		if payment.ChargeID != nil {
			statusEvent, err = recomputeByID(tx, *payment.ChargeID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if statusEvent != nil {
		s.bus.Publish(ctx, *statusEvent)
	}
	return nil
}

// ExpenseParams describes a manually recorded expense.
type ExpenseParams struct {
	Description     string
	Amount          decimal.Decimal
	PaidDate        time.Time
	Category        models.ExpenseCategory
	Source          models.PaymentSource
	ReferenceNumber string
}

func (s *Service) RecordExpense(ctx context.Context, params ExpenseParams) (*models.Expense, error) {
	expense := &models.Expense{
		ID:                   uuid.New(),
		Description:          params.Description,
		Amount:               params.Amount,
		PaidDate:             params.PaidDate,
		Category:             params.Category,
		Source:               params.Source,
		ReferenceNumber:      params.ReferenceNumber,
		ReconciliationStatus: models.LedgerReconPendingVerification,
	}
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.ExpenseRecorded{
		ExpenseID:     expense.ID,
		Amount:        expense.Amount,
		Category:      expense.Category,
		BillingPeriod: PeriodFromDate(expense.PaidDate),
	})
	return expense, nil
}
