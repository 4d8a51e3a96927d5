package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
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
	"apartment-ledger-backend/internal/services/matching"
)

type fakeExtractor struct {
	txns  []RawTransaction
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, filePath string) ([]RawTransaction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.txns, nil
}

type fakeDecryptor struct {
	err   error
	calls int
}

func (f *fakeDecryptor) Decrypt(ctx context.Context, encryptedPath, password string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	out := encryptedPath + ".decrypted.pdf"
	if err := os.WriteFile(out, []byte("plaintext"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

type ingestFixture struct {
	svc         *Service
	db          *gorm.DB
	statements  *fakeExtractor
	screenshots *fakeExtractor
	decryptor   *fakeDecryptor
	storageRoot string
}

func newFixture(t *testing.T) *ingestFixture {
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
		&models.Upload{},
		&models.ParsedTransaction{},
	))

	log := logger.NewWithWriter(io.Discard)
	f := &ingestFixture{
		db:          db,
		statements:  &fakeExtractor{},
		screenshots: &fakeExtractor{},
		decryptor:   &fakeDecryptor{},
		storageRoot: t.TempDir(),
	}
	matcher := matching.NewMatcher(db, nil, log)
	f.svc = NewService(db, f.statements, f.screenshots, f.decryptor, matcher, nil, log, f.storageRoot)
	return f
}

func (f *ingestFixture) createUpload(t *testing.T, uploadType models.UploadType) *models.Upload {
	t.Helper()

	name := uuid.NewString()
	relPath := filepath.Join("uploads", name)
	require.NoError(t, os.MkdirAll(filepath.Join(f.storageRoot, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.storageRoot, relPath), []byte("evidence"), 0o644))

	upload := &models.Upload{
		ID:       uuid.New(),
		FilePath: relPath,
		Type:     uploadType,
		Status:   models.UploadStatusPending,
	}
	require.NoError(t, f.db.Create(upload).Error)
	return upload
}

func (f *ingestFixture) createResidentWithUnit(t *testing.T, gpayName string) {
	t.Helper()
	unit := &models.Unit{ID: uuid.New(), FlatNumber: uuid.NewString()[:8], FlatType: models.FlatType2BHK}
	require.NoError(t, f.db.Create(unit).Error)
	require.NoError(t, f.db.Create(&models.Resident{
		ID:       uuid.New(),
		UnitID:   unit.ID,
		Name:     gpayName,
		GpayName: gpayName,
	}).Error)
}

func (f *ingestFixture) upload(t *testing.T, id uuid.UUID) *models.Upload {
	t.Helper()
	var upload models.Upload
	require.NoError(t, f.db.First(&upload, "id = ?", id).Error)
	return &upload
}

func (f *ingestFixture) parsedCount(t *testing.T, uploadID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.ParsedTransaction{}).
		Where("upload_id = ?", uploadID).Count(&count).Error)
	return count
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestProcess_ScreenshotCreatesAndMatches(t *testing.T) {
	f := newFixture(t)
	f.createResidentWithUnit(t, "Karthick S")
	f.screenshots.txns = []RawTransaction{
		{Date: "2026-02-15", SenderName: "Karthick S", Amount: mustDec("2000.00"), Direction: "credit"},
	}
	upload := f.createUpload(t, models.UploadTypeGpayScreenshot)

	require.NoError(t, f.svc.Process(context.Background(), upload.ID, ""))

	fresh := f.upload(t, upload.ID)
	assert.Equal(t, models.UploadStatusProcessed, fresh.Status)
	assert.NotNil(t, fresh.ProcessedAt)
	assert.Equal(t, 1, f.screenshots.calls)
	assert.Zero(t, f.statements.calls)

	var parsed models.ParsedTransaction
	require.NoError(t, f.db.First(&parsed, "upload_id = ?", upload.ID).Error)
	assert.Equal(t, "Karthick S", parsed.SenderName)
	assert.Equal(t, models.ReconStatusAutoMatched, parsed.ReconciliationStatus)
	assert.Len(t, parsed.Fingerprint, 32)

	var payments int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&payments).Error)
	assert.EqualValues(t, 1, payments)
}

func TestProcess_NarrationWinsOverSenderName(t *testing.T) {
	f := newFixture(t)
	f.screenshots.txns = []RawTransaction{
		{Date: "2026-02-15", SenderName: "short", Narration: "NEFT-KARTHICK-HDFC", Amount: mustDec("2000.00"), Direction: "credit"},
	}
	upload := f.createUpload(t, models.UploadTypeGpayScreenshot)

	require.NoError(t, f.svc.Process(context.Background(), upload.ID, ""))

	var parsed models.ParsedTransaction
	require.NoError(t, f.db.First(&parsed, "upload_id = ?", upload.ID).Error)
	assert.Equal(t, "NEFT-KARTHICK-HDFC", parsed.SenderName)
}

func TestProcess_MissingDirectionDefaultsToCredit(t *testing.T) {
	f := newFixture(t)
	f.screenshots.txns = []RawTransaction{
		{Date: "2026-02-15", SenderName: "Somebody", Amount: mustDec("100.00")},
	}
	upload := f.createUpload(t, models.UploadTypeGpayScreenshot)

	require.NoError(t, f.svc.Process(context.Background(), upload.ID, ""))

	var parsed models.ParsedTransaction
	require.NoError(t, f.db.First(&parsed, "upload_id = ?", upload.ID).Error)
	assert.Equal(t, models.DirectionCredit, parsed.Direction)
}

func TestProcess_ExtractionFailureMarksUploadFailed(t *testing.T) {
	f := newFixture(t)
	f.screenshots.err = errors.New("model unavailable")
	upload := f.createUpload(t, models.UploadTypeGpayScreenshot)

	err := f.svc.Process(context.Background(), upload.ID, "")
	require.Error(t, err)

	var ingestErr *IngestionError
	assert.ErrorAs(t, err, &ingestErr)

	fresh := f.upload(t, upload.ID)
	assert.Equal(t, models.UploadStatusFailed, fresh.Status)
	assert.Nil(t, fresh.ProcessedAt)
	assert.Zero(t, f.parsedCount(t, upload.ID))
}

func TestProcess_MissingFileMarksUploadFailed(t *testing.T) {
	f := newFixture(t)
	upload := &models.Upload{
		ID:       uuid.New(),
		FilePath: "uploads/never-written.png",
		Type:     models.UploadTypeGpayScreenshot,
		Status:   models.UploadStatusPending,
	}
	require.NoError(t, f.db.Create(upload).Error)

	err := f.svc.Process(context.Background(), upload.ID, "")
	require.Error(t, err)

	var ingestErr *IngestionError
	assert.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, models.UploadStatusFailed, f.upload(t, upload.ID).Status)
	assert.Zero(t, f.screenshots.calls)
}

func TestProcess_BankStatementDecryptsAndReconciles(t *testing.T) {
	f := newFixture(t)
	payment := &models.Payment{
		ID:                   uuid.New(),
		Amount:               mustDec("2000.00"),
		PaidDate:             time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		Source:               models.PaymentSourceGpay,
		MatchedBy:            models.MatchedByManual,
		ReconciliationStatus: models.LedgerReconPendingVerification,
	}
	require.NoError(t, f.db.Create(payment).Error)

	f.statements.txns = []RawTransaction{
		{Date: "2026-02-15", Narration: "UPI-KARTHICK", Amount: mustDec("2000.00"), Direction: "credit"},
	}
	upload := f.createUpload(t, models.UploadTypeBankStatement)

	require.NoError(t, f.svc.Process(context.Background(), upload.ID, "secret"))

	assert.Equal(t, 1, f.decryptor.calls)
	assert.Equal(t, 1, f.statements.calls)

	// The plaintext copy must be gone after the run.
	entries, err := os.ReadDir(filepath.Join(f.storageRoot, "uploads"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".decrypted")
	}

	var freshPayment models.Payment
	require.NoError(t, f.db.First(&freshPayment, "id = ?", payment.ID).Error)
	assert.Equal(t, models.LedgerReconBankVerified, freshPayment.ReconciliationStatus)

	var parsed models.ParsedTransaction
	require.NoError(t, f.db.First(&parsed, "upload_id = ?", upload.ID).Error)
	assert.Equal(t, models.ReconStatusReconciled, parsed.ReconciliationStatus)
}

func TestProcess_BankStatementWithoutPasswordSkipsDecryption(t *testing.T) {
	f := newFixture(t)
	f.statements.txns = nil
	upload := f.createUpload(t, models.UploadTypeBankStatement)

	require.NoError(t, f.svc.Process(context.Background(), upload.ID, ""))
	assert.Zero(t, f.decryptor.calls)
	assert.Equal(t, 1, f.statements.calls)
}

func TestProcess_DecryptionFailureMarksUploadFailed(t *testing.T) {
	f := newFixture(t)
	f.decryptor.err = &DecryptionError{Err: errors.New("invalid password")}
	upload := f.createUpload(t, models.UploadTypeBankStatement)

	err := f.svc.Process(context.Background(), upload.ID, "wrong")
	require.Error(t, err)

	var decErr *DecryptionError
	assert.ErrorAs(t, err, &decErr)
	assert.Equal(t, models.UploadStatusFailed, f.upload(t, upload.ID).Status)
	assert.Zero(t, f.statements.calls)
}

func TestProcess_SecondRunRejectedWhileInFlight(t *testing.T) {
	f := newFixture(t)
	upload := f.createUpload(t, models.UploadTypeGpayScreenshot)

	f.svc.inFlight.Store(upload.ID, struct{}{})
	defer f.svc.inFlight.Delete(upload.ID)

	assert.ErrorIs(t, f.svc.Process(context.Background(), upload.ID, ""), ErrAlreadyProcessing)

	_, err := f.svc.Retry(context.Background(), upload.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessing)
}

func TestRetry_PurgesParsedTransactionsAndResets(t *testing.T) {
	f := newFixture(t)
	f.screenshots.txns = []RawTransaction{
		{Date: "2026-02-15", SenderName: "Somebody", Amount: mustDec("100.00"), Direction: "credit"},
		{Date: "2026-02-16", SenderName: "Somebody Else", Amount: mustDec("200.00"), Direction: "credit"},
	}
	upload := f.createUpload(t, models.UploadTypeGpayScreenshot)

	require.NoError(t, f.svc.Process(context.Background(), upload.ID, ""))
	require.EqualValues(t, 2, f.parsedCount(t, upload.ID))

	reset, err := f.svc.Retry(context.Background(), upload.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusPending, reset.Status)
	assert.Nil(t, reset.ProcessedAt)
	assert.Zero(t, f.parsedCount(t, upload.ID))

	fresh := f.upload(t, upload.ID)
	assert.Equal(t, models.UploadStatusPending, fresh.Status)
	assert.Nil(t, fresh.ProcessedAt)
}

func TestRetry_FailsWhenSourceFileIsGone(t *testing.T) {
	f := newFixture(t)
	upload := f.createUpload(t, models.UploadTypeGpayScreenshot)
	require.NoError(t, os.Remove(filepath.Join(f.storageRoot, upload.FilePath)))

	_, err := f.svc.Retry(context.Background(), upload.ID)
	assert.Error(t, err)
}
