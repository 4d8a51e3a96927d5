// Package matching decides, for each parsed transaction, whether it is a
// known or new financial event and links it to the billing ledger.
//
// Lifecycle of a parsed transaction:
//
//	unmatched -> auto_matched            (matcher found a counterpart)
//	unmatched -> manual_matched          (human assigned it in the review queue)
//	any claimed state -> reconciled      (bank feed confirmed it, or it was a duplicate)
//
// Credits require positive resident identification before money is credited
// to a unit; debits always become an expense record because even an
// uncategorized spend is a useful ledger entry.
package matching

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/events"
	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
	"apartment-ledger-backend/internal/services/billing"
)

type Matcher struct {
	db  *gorm.DB
	bus *events.Bus
	log zerolog.Logger
}

func NewMatcher(db *gorm.DB, bus *events.Bus, log zerolog.Logger) *Matcher {
	return &Matcher{db: db, bus: bus, log: log}
}

// Match is the first-pass entry point, used for screenshot-origin
// transactions and ad-hoc matching. All reads and writes for one transaction
// run inside a single DB transaction so a concurrent ingestion of the same
// fingerprint cannot double-create ledger entries.
func (m *Matcher) Match(ctx context.Context, parsed *models.ParsedTransaction) error {
	var pending []events.Event
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := m.shortCircuitDuplicate(tx, parsed)
		if err != nil || done {
			return err
		}

		if parsed.Direction == models.DirectionCredit {
			pending, err = m.matchCredit(tx, parsed)
		} else {
			pending, err = m.matchDebit(tx, parsed)
		}
		return err
	})
	if err != nil {
		return err
	}

	m.publish(ctx, pending)
	return nil
}

// ReconcileFromBank is the entry point for bank-statement transactions. The
// bank feed is authoritative: it first tries to confirm a previously recorded
// payment/expense instead of creating a duplicate, and only falls back to the
// first-pass logic when nothing is awaiting verification.
func (m *Matcher) ReconcileFromBank(ctx context.Context, parsed *models.ParsedTransaction) error {
	var pending []events.Event
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		done, err := m.shortCircuitDuplicate(tx, parsed)
		if err != nil || done {
			return err
		}

		if parsed.Direction == models.DirectionCredit {
			pending, err = m.reconcileCredit(tx, parsed)
		} else {
			pending, err = m.reconcileDebit(tx, parsed)
		}
		return err
	})
	if err != nil {
		return err
	}

	m.publish(ctx, pending)
	return nil
}

// shortCircuitDuplicate collapses a re-seen transaction onto the record that
// already claimed its fingerprint. This is how a bank-statement confirmation
// of an already-recorded screenshot payment becomes one financial record
// instead of two. Unmatched rows do not claim a fingerprint.
func (m *Matcher) shortCircuitDuplicate(tx *gorm.DB, parsed *models.ParsedTransaction) (bool, error) {
	duplicate, err := repository.NewParsedTransactionRepository(tx).
		ClaimedDuplicateExists(parsed.Fingerprint, parsed.ID)
	if err != nil {
		return false, err
	}
	if !duplicate {
		return false, nil
	}

	parsed.ReconciliationStatus = models.ReconStatusReconciled
	if err := tx.Save(parsed).Error; err != nil {
		return false, err
	}

	m.log.Info().Str("fingerprint", parsed.Fingerprint).
		Str("parsed_id", parsed.ID.String()).
		Msg("duplicate fingerprint, reconciled without new ledger entry")
	return true, nil
}

func (m *Matcher) matchCredit(tx *gorm.DB, parsed *models.ParsedTransaction) ([]events.Event, error) {
	if parsed.SenderName == "" {
		return nil, nil
	}

	resident, err := m.findResidentByGpayName(tx, parsed.SenderName)
	if err != nil {
		return nil, err
	}
	if resident == nil {
		m.log.Info().Str("sender", parsed.SenderName).
			Msg("no resident match for credit, leaving unmatched")
		return nil, nil
	}

	charge, err := repository.NewChargeRepository(tx).OldestOutstandingForUnit(resident.UnitID)
	if err != nil {
		return nil, err
	}

	unitID := resident.UnitID
	payment := &models.Payment{
		ID:                   uuid.New(),
		UnitID:               &unitID,
		Amount:               parsed.Amount,
		PaidDate:             parsed.Date,
		Source:               models.PaymentSourceGpay,
		MatchedBy:            models.MatchedByAuto,
		ReconciliationStatus: models.LedgerReconPendingVerification,
	}
	if charge != nil {
		chargeID := charge.ID
		payment.ChargeID = &chargeID
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, err
	}

	pending := []events.Event{events.PaymentRecorded{
		PaymentID:     payment.ID,
		UnitID:        payment.UnitID,
		Amount:        payment.Amount,
		BillingPeriod: billing.PeriodFromDate(payment.PaidDate),
		MatchedBy:     models.MatchedByAuto,
	}}

	if charge != nil {
		statusEvent, err := billing.Recompute(tx, charge)
		if err != nil {
			return nil, err
		}
		if statusEvent != nil {
			pending = append(pending, *statusEvent)
		}
	}

	if err := m.markMatched(tx, parsed, models.MatchTypePayment, &payment.ID, nil, models.ReconStatusAutoMatched); err != nil {
		return nil, err
	}
	return pending, nil
}

func (m *Matcher) matchDebit(tx *gorm.DB, parsed *models.ParsedTransaction) ([]events.Event, error) {
	description := parsed.SenderName
	if description == "" {
		description = "Unknown expense"
	}

	expense := &models.Expense{
		ID:                   uuid.New(),
		Description:          description,
		Amount:               parsed.Amount,
		PaidDate:             parsed.Date,
		Category:             models.ExpenseCategoryOther,
		Source:               models.PaymentSourceGpay,
		ReconciliationStatus: models.LedgerReconPendingVerification,
	}
	if err := tx.Create(expense).Error; err != nil {
		return nil, err
	}

	if err := m.markMatched(tx, parsed, models.MatchTypeExpense, nil, &expense.ID, models.ReconStatusAutoMatched); err != nil {
		return nil, err
	}

	return []events.Event{events.ExpenseRecorded{
		ExpenseID:     expense.ID,
		Amount:        expense.Amount,
		Category:      expense.Category,
		BillingPeriod: billing.PeriodFromDate(expense.PaidDate),
	}}, nil
}

func (m *Matcher) reconcileCredit(tx *gorm.DB, parsed *models.ParsedTransaction) ([]events.Event, error) {
	payment, err := repository.NewPaymentRepository(tx).
		FindPendingInWindow(parsed.Amount, parsed.Date)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return m.matchCredit(tx, parsed)
	}

	payment.ReconciliationStatus = models.LedgerReconBankVerified
	if err := tx.Save(payment).Error; err != nil {
		return nil, err
	}

	if err := m.markMatched(tx, parsed, models.MatchTypePayment, &payment.ID, nil, models.ReconStatusReconciled); err != nil {
		return nil, err
	}

	m.log.Info().Str("payment_id", payment.ID.String()).
		Msg("bank credit confirmed pending payment")
	return nil, nil
}

func (m *Matcher) reconcileDebit(tx *gorm.DB, parsed *models.ParsedTransaction) ([]events.Event, error) {
	expense, err := repository.NewExpenseRepository(tx).
		FindPendingInWindow(parsed.Amount, parsed.Date)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return m.matchDebit(tx, parsed)
	}

	expense.ReconciliationStatus = models.LedgerReconBankVerified
	if err := tx.Save(expense).Error; err != nil {
		return nil, err
	}

	if err := m.markMatched(tx, parsed, models.MatchTypeExpense, nil, &expense.ID, models.ReconStatusReconciled); err != nil {
		return nil, err
	}

	m.log.Info().Str("expense_id", expense.ID.String()).
		Msg("bank debit confirmed pending expense")
	return nil, nil
}

func (m *Matcher) markMatched(tx *gorm.DB, parsed *models.ParsedTransaction, matchType models.MatchType, paymentID, expenseID *uuid.UUID, status models.ReconStatus) error {
	parsed.MatchType = matchType
	parsed.MatchedPaymentID = paymentID
	parsed.MatchedExpenseID = expenseID
	parsed.ReconciliationStatus = status
	return tx.Save(parsed).Error
}

// findResidentByGpayName does a bidirectional case-insensitive substring
// comparison between the transaction's counterparty and each resident's
// payment-app name. Deliberately loose: "Ravi" matches both "Ravi Kumar" and
// "Ravikanth". That is inherited behavior, not a bug.
func (m *Matcher) findResidentByGpayName(tx *gorm.DB, senderName string) (*models.Resident, error) {
	residents, err := repository.NewResidentRepository(tx).WithGpayName()
	if err != nil {
		return nil, err
	}

	for i := range residents {
		if NameMatches(residents[i].GpayName, senderName) {
			return &residents[i], nil
		}
	}
	return nil, nil
}

// NameMatches reports whether either name contains the other,
// case-insensitively.
func NameMatches(gpayName, senderName string) bool {
	a := strings.ToLower(strings.TrimSpace(gpayName))
	b := strings.ToLower(strings.TrimSpace(senderName))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func (m *Matcher) publish(ctx context.Context, pending []events.Event) {
	for _, e := range pending {
		m.bus.Publish(ctx, e)
	}
}
