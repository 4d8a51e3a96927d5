package billing

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/logger"
	"apartment-ledger-backend/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Unit{},
		&models.Resident{},
		&models.MaintenanceSlab{},
		&models.Charge{},
		&models.Payment{},
		&models.Expense{},
	))
	return NewService(db, nil, logger.NewWithWriter(io.Discard)), db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func createUnit(t *testing.T, db *gorm.DB, flatType models.FlatType) *models.Unit {
	t.Helper()
	unit := &models.Unit{
		ID:         uuid.New(),
		FlatNumber: uuid.NewString()[:8],
		FlatType:   flatType,
		Floor:      2,
	}
	require.NoError(t, db.Create(unit).Error)
	return unit
}

func createCharge(t *testing.T, db *gorm.DB, unitID uuid.UUID, amount, period string) *models.Charge {
	t.Helper()
	charge := &models.Charge{
		ID:            uuid.New(),
		UnitID:        &unitID,
		Type:          models.ChargeTypeMaintenance,
		Description:   "Maintenance for " + period,
		Amount:        dec(amount),
		BillingPeriod: period,
		Status:        models.ChargeStatusPending,
	}
	require.NoError(t, db.Create(charge).Error)
	return charge
}

func createSlab(t *testing.T, db *gorm.DB, flatType models.FlatType, amount, effectiveFrom string) {
	t.Helper()
	require.NoError(t, db.Create(&models.MaintenanceSlab{
		ID:            uuid.New(),
		FlatType:      flatType,
		Amount:        dec(amount),
		EffectiveFrom: date(effectiveFrom),
	}).Error)
}

func chargeStatus(t *testing.T, db *gorm.DB, id uuid.UUID) models.ChargeStatus {
	t.Helper()
	var charge models.Charge
	require.NoError(t, db.First(&charge, "id = ?", id).Error)
	return charge.Status
}

func TestRecordPayment_ChargeStatusProgression(t *testing.T) {
	svc, db := newTestService(t)
	unit := createUnit(t, db, models.FlatType2BHK)
	charge := createCharge(t, db, unit.ID, "2000.00", "2026-01")
	ctx := context.Background()
	chargeID := charge.ID

	assert.Equal(t, models.ChargeStatusPending, chargeStatus(t, db, chargeID))

	_, err := svc.RecordPayment(ctx, PaymentParams{
		ChargeID: &chargeID,
		Amount:   dec("500.00"),
		PaidDate: date("2026-01-10"),
		Source:   models.PaymentSourceCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChargeStatusPartial, chargeStatus(t, db, chargeID))

	second, err := svc.RecordPayment(ctx, PaymentParams{
		ChargeID: &chargeID,
		Amount:   dec("1500.00"),
		PaidDate: date("2026-01-20"),
		Source:   models.PaymentSourceGpay,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChargeStatusPaid, chargeStatus(t, db, chargeID))

	// Overpayment keeps the charge paid.
	_, err = svc.RecordPayment(ctx, PaymentParams{
		ChargeID: &chargeID,
		Amount:   dec("100.00"),
		PaidDate: date("2026-01-25"),
		Source:   models.PaymentSourceCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChargeStatusPaid, chargeStatus(t, db, chargeID))

	// Deleting a payment walks the status back down.
	require.NoError(t, svc.DeletePayment(ctx, second.ID))
	assert.Equal(t, models.ChargeStatusPartial, chargeStatus(t, db, chargeID))
}

func TestRecordPayment_TrailingZerosDoNotMatter(t *testing.T) {
	svc, db := newTestService(t)
	unit := createUnit(t, db, models.FlatType1BHK)
	charge := createCharge(t, db, unit.ID, "2000.00", "2026-01")
	chargeID := charge.ID

	_, err := svc.RecordPayment(context.Background(), PaymentParams{
		ChargeID: &chargeID,
		Amount:   dec("2000"),
		PaidDate: date("2026-01-10"),
		Source:   models.PaymentSourceGpay,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChargeStatusPaid, chargeStatus(t, db, chargeID))
}

func TestRelinkPayment_RecomputesBothCharges(t *testing.T) {
	svc, db := newTestService(t)
	unit := createUnit(t, db, models.FlatType2BHK)
	first := createCharge(t, db, unit.ID, "2000.00", "2026-01")
	second := createCharge(t, db, unit.ID, "2000.00", "2026-02")
	ctx := context.Background()
	firstID := first.ID

	payment, err := svc.RecordPayment(ctx, PaymentParams{
		ChargeID: &firstID,
		Amount:   dec("2000.00"),
		PaidDate: date("2026-01-10"),
		Source:   models.PaymentSourceGpay,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChargeStatusPaid, chargeStatus(t, db, first.ID))

	secondID := second.ID
	relinked, err := svc.RelinkPayment(ctx, payment.ID, &secondID)
	require.NoError(t, err)
	require.NotNil(t, relinked.ChargeID)
	assert.Equal(t, second.ID, *relinked.ChargeID)

	assert.Equal(t, models.ChargeStatusPending, chargeStatus(t, db, first.ID))
	assert.Equal(t, models.ChargeStatusPaid, chargeStatus(t, db, second.ID))
}

func TestRelinkPayment_DetachLeavesPaymentOnBooks(t *testing.T) {
	svc, db := newTestService(t)
	unit := createUnit(t, db, models.FlatType2BHK)
	charge := createCharge(t, db, unit.ID, "2000.00", "2026-01")
	ctx := context.Background()
	chargeID := charge.ID

	payment, err := svc.RecordPayment(ctx, PaymentParams{
		ChargeID: &chargeID,
		Amount:   dec("2000.00"),
		PaidDate: date("2026-01-10"),
		Source:   models.PaymentSourceGpay,
	})
	require.NoError(t, err)

	relinked, err := svc.RelinkPayment(ctx, payment.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, relinked.ChargeID)
	assert.Equal(t, models.ChargeStatusPending, chargeStatus(t, db, charge.ID))

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCurrentRate_SlabVersioning(t *testing.T) {
	svc, db := newTestService(t)
	createSlab(t, db, models.FlatType2BHK, "2000.00", "2025-01-01")
	createSlab(t, db, models.FlatType2BHK, "2500.00", "2026-01-01")
	createSlab(t, db, models.FlatType1BHK, "1500.00", "2025-01-01")

	rate, err := svc.CurrentRate(models.FlatType2BHK, date("2025-06-15"))
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(dec("2000.00")), "later slab must not affect earlier dates")

	rate, err = svc.CurrentRate(models.FlatType2BHK, date("2026-02-01"))
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.Equal(dec("2500.00")))

	// Before any slab took effect.
	rate, err = svc.CurrentRate(models.FlatType2BHK, date("2024-06-01"))
	require.NoError(t, err)
	assert.Nil(t, rate)

	// Flat type with no slabs at all.
	rate, err = svc.CurrentRate(models.FlatType3BHK, date("2026-02-01"))
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestGenerateMaintenanceCharges_IdempotentAndSkipsUnrated(t *testing.T) {
	svc, db := newTestService(t)
	createSlab(t, db, models.FlatType2BHK, "2500.00", "2025-01-01")
	rated := createUnit(t, db, models.FlatType2BHK)
	createUnit(t, db, models.FlatType3BHK) // no slab, must be skipped
	ctx := context.Background()

	created, err := svc.GenerateMaintenanceCharges(ctx, "2026-02", nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].UnitID)
	assert.Equal(t, rated.ID, *created[0].UnitID)
	assert.True(t, created[0].Amount.Equal(dec("2500.00")))
	assert.Equal(t, "2026-02", created[0].BillingPeriod)
	assert.Equal(t, models.ChargeStatusPending, created[0].Status)

	// Second run creates nothing.
	created, err = svc.GenerateMaintenanceCharges(ctx, "2026-02", nil)
	require.NoError(t, err)
	assert.Empty(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Charge{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGenerateMaintenanceCharges_RejectsBadPeriod(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GenerateMaintenanceCharges(context.Background(), "Feb 2026", nil)
	assert.Error(t, err)
}

func TestRecordExpense(t *testing.T) {
	svc, db := newTestService(t)

	expense, err := svc.RecordExpense(context.Background(), ExpenseParams{
		Description: "Water tanker",
		Amount:      dec("1200.00"),
		PaidDate:    date("2026-02-03"),
		Category:    models.ExpenseCategoryWater,
		Source:      models.PaymentSourceCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerReconPendingVerification, expense.ReconciliationStatus)

	var stored models.Expense
	require.NoError(t, db.First(&stored, "id = ?", expense.ID).Error)
	assert.Equal(t, models.ExpenseCategoryWater, stored.Category)
	assert.True(t, stored.Amount.Equal(dec("1200.00")))
}
