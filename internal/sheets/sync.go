// Package sheets exports the ledger to a Google spreadsheet, one tab per
// billing period. It subscribes to domain events; the reconciliation core
// never calls it directly.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	sheetsapi "google.golang.org/api/sheets/v4"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/events"
	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
	"apartment-ledger-backend/internal/services/billing"
)

type Syncer struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	db            *gorm.DB
	log           zerolog.Logger
}

// NewSyncer builds a syncer against the configured spreadsheet. Credentials
// come from application default credentials.
func NewSyncer(ctx context.Context, spreadsheetID string, db *gorm.DB, log zerolog.Logger) (*Syncer, error) {
	svc, err := sheetsapi.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &Syncer{svc: svc, spreadsheetID: spreadsheetID, db: db, log: log}, nil
}

// Register subscribes the syncer to every event that changes what a period
// tab shows.
func (s *Syncer) Register(bus *events.Bus) {
	resync := func(period string) {
		go func() {
			if err := s.SyncPeriod(context.Background(), period); err != nil {
				s.log.Error().Err(err).Str("period", period).Msg("sheet sync failed")
			}
		}()
	}

	bus.Subscribe(events.PaymentRecorded{}.Name(), func(_ context.Context, e events.Event) {
		if ev, ok := e.(events.PaymentRecorded); ok {
			resync(ev.BillingPeriod)
		}
	})
	bus.Subscribe(events.ExpenseRecorded{}.Name(), func(_ context.Context, e events.Event) {
		if ev, ok := e.(events.ExpenseRecorded); ok {
			resync(ev.BillingPeriod)
		}
	})
	bus.Subscribe(events.ChargeStatusChanged{}.Name(), func(_ context.Context, e events.Event) {
		if ev, ok := e.(events.ChargeStatusChanged); ok {
			resync(ev.BillingPeriod)
		}
	})
}

// SyncPeriod rewrites the tab for one billing period from the current ledger
// state: a header, a totals row, then payments and expenses ordered by date.
func (s *Syncer) SyncPeriod(ctx context.Context, period string) error {
	start, end, err := billing.PeriodRange(period)
	if err != nil {
		return err
	}

	payments, err := repository.NewPaymentRepository(s.db).ListBetween(start, end)
	if err != nil {
		return err
	}
	expenses, err := repository.NewExpenseRepository(s.db).ListBetween(start, end)
	if err != nil {
		return err
	}

	rows, err := s.buildRows(payments, expenses)
	if err != nil {
		return err
	}

	if err := s.ensureTab(ctx, period); err != nil {
		return err
	}

	clearRange := fmt.Sprintf("%s!A:H", period)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing tab %s: %w", period, err)
	}

	vr := &sheetsapi.ValueRange{Values: rows}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, period+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("writing tab %s: %w", period, err)
	}

	s.log.Info().Str("period", period).Int("rows", len(rows)).Msg("sheet synced")
	return nil
}

func (s *Syncer) buildRows(payments []models.Payment, expenses []models.Expense) ([][]interface{}, error) {
	units, err := s.unitsByID()
	if err != nil {
		return nil, err
	}
	charges, err := s.chargesByID()
	if err != nil {
		return nil, err
	}

	type row struct {
		date        string
		kind        string
		category    string
		description string
		amount      float64
	}
	var combined []row

	incomeTotal := 0.0
	for _, p := range payments {
		amount, _ := p.Amount.Float64()
		incomeTotal += amount

		category := "payment"
		description := "Payment"
		if p.ChargeID != nil {
			if c, ok := charges[*p.ChargeID]; ok {
				category = string(c.Type)
				description = c.Description
			}
		}
		if p.UnitID != nil {
			if u, ok := units[*p.UnitID]; ok {
				description = fmt.Sprintf("Flat %s - %s", u.FlatNumber, description)
			}
		}

		combined = append(combined, row{
			date:        p.PaidDate.Format("2006-01-02"),
			kind:        "income",
			category:    category,
			description: description,
			amount:      amount,
		})
	}

	expenseTotal := 0.0
	for _, e := range expenses {
		amount, _ := e.Amount.Float64()
		expenseTotal += amount

		combined = append(combined, row{
			date:        e.PaidDate.Format("2006-01-02"),
			kind:        "expense",
			category:    string(e.Category),
			description: e.Description,
			amount:      amount,
		})
	}

	rows := [][]interface{}{
		{"Date", "Type", "Category", "Description", "Amount"},
		{
			"Totals", "", "",
			fmt.Sprintf("Net Balance: %.2f", incomeTotal-expenseTotal),
			fmt.Sprintf("Income: %.2f / Expenses: %.2f", incomeTotal, expenseTotal),
		},
	}
	for _, r := range combined {
		rows = append(rows, []interface{}{r.date, r.kind, r.category, r.description, r.amount})
	}
	return rows, nil
}

func (s *Syncer) ensureTab(ctx context.Context, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: title},
				},
			},
		},
	}

	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		// A tab that already exists is fine.
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 400 {
			return nil
		}
		return fmt.Errorf("adding tab %s: %w", title, err)
	}
	return nil
}

func (s *Syncer) unitsByID() (map[uuid.UUID]models.Unit, error) {
	var units []models.Unit
	if err := s.db.Find(&units).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	return byID, nil
}

func (s *Syncer) chargesByID() (map[uuid.UUID]models.Charge, error) {
	var charges []models.Charge
	if err := s.db.Find(&charges).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Charge, len(charges))
	for _, c := range charges {
		byID[c.ID] = c
	}
	return byID, nil
}
