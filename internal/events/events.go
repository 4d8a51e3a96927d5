// Package events is the seam between the reconciliation core and the
// notification/export side of the system. The core publishes facts about the
// ledger; exporters (Google Sheets) and notifiers (Telegram) subscribe at
// process start. The core never imports them.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"apartment-ledger-backend/internal/models"
)

type Event interface {
	Name() string
}

// PaymentRecorded is published after a payment row is committed, whatever
// created it (auto-match, manual assignment, admin entry).
type PaymentRecorded struct {
	PaymentID     uuid.UUID
	UnitID        *uuid.UUID
	Amount        decimal.Decimal
	BillingPeriod string
	MatchedBy     models.MatchedBy
}

func (PaymentRecorded) Name() string { return "payment.recorded" }

// ExpenseRecorded is published after an expense row is committed.
type ExpenseRecorded struct {
	ExpenseID     uuid.UUID
	Amount        decimal.Decimal
	Category      models.ExpenseCategory
	BillingPeriod string
}

func (ExpenseRecorded) Name() string { return "expense.recorded" }

// ChargeStatusChanged is published when recomputation moves a charge between
// pending, partial and paid.
type ChargeStatusChanged struct {
	ChargeID      uuid.UUID
	BillingPeriod string
	OldStatus     models.ChargeStatus
	NewStatus     models.ChargeStatus
}

func (ChargeStatusChanged) Name() string { return "charge.status_changed" }

// UploadCompleted is published when an ingestion run reaches a terminal state,
// processed or failed.
type UploadCompleted struct {
	UploadID         uuid.UUID
	Type             models.UploadType
	Status           models.UploadStatus
	TransactionCount int
}

func (UploadCompleted) Name() string { return "upload.completed" }

type Handler func(ctx context.Context, e Event)

// Bus is a small in-process publish/subscribe dispatcher. Delivery runs on the
// publisher's goroutine; handlers are expected to hand anything slow to their
// own workers. A nil *Bus is valid and drops events, which keeps the core
// testable without wiring subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
	log  zerolog.Logger
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[string][]Handler),
		log:  log,
	}
}

// Subscribe registers h for events with the given name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], h)
}

// Publish delivers e to every subscriber. A panicking handler is logged and
// does not take down the publisher.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := b.subs[e.Name()]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, e, h)
	}
}

func (b *Bus) deliver(ctx context.Context, e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("event", e.Name()).Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h(ctx, e)
}
