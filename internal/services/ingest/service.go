// Package ingest runs the upload-to-ledger pipeline: it takes a submitted
// evidence file, drives the extraction call, persists parsed transactions and
// hands each one to the matcher.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/events"
	"apartment-ledger-backend/internal/fingerprint"
	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
	"apartment-ledger-backend/internal/services/matching"
)

type Service struct {
	db          *gorm.DB
	statements  Extractor
	screenshots Extractor
	decryptor   Decryptor
	matcher     *matching.Matcher
	bus         *events.Bus
	log         zerolog.Logger
	storageRoot string

	// inFlight guards against two concurrent ingestion runs of the same
	// upload (e.g. a retry racing the original job).
	inFlight sync.Map
}

func NewService(db *gorm.DB, statements, screenshots Extractor, decryptor Decryptor, matcher *matching.Matcher, bus *events.Bus, log zerolog.Logger, storageRoot string) *Service {
	return &Service{
		db:          db,
		statements:  statements,
		screenshots: screenshots,
		decryptor:   decryptor,
		matcher:     matcher,
		bus:         bus,
		log:         log,
		storageRoot: storageRoot,
	}
}

// Process runs one ingestion for the upload. The upload's status field is the
// sole user-visible signal: processing while running, then processed or
// failed. Mutations inside the run are sequential, one extracted record at a
// time, in extraction order.
func (s *Service) Process(ctx context.Context, uploadID uuid.UUID, password string) error {
	if _, loaded := s.inFlight.LoadOrStore(uploadID, struct{}{}); loaded {
		return ErrAlreadyProcessing
	}
	defer s.inFlight.Delete(uploadID)

	upload, err := repository.NewUploadRepository(s.db).GetByID(uploadID)
	if err != nil {
		return fmt.Errorf("loading upload %s: %w", uploadID, err)
	}

	s.log.Info().Str("upload_id", uploadID.String()).Str("type", string(upload.Type)).
		Msg("ingestion started")

	if err := s.setStatus(upload, models.UploadStatusProcessing, nil); err != nil {
		return err
	}

	count, runErr := s.run(ctx, upload, password)
	if runErr != nil {
		s.log.Error().Err(runErr).Str("upload_id", uploadID.String()).
			Msg("ingestion failed")
		if err := s.setStatus(upload, models.UploadStatusFailed, nil); err != nil {
			return err
		}
		s.bus.Publish(ctx, events.UploadCompleted{
			UploadID: upload.ID,
			Type:     upload.Type,
			Status:   models.UploadStatusFailed,
		})
		return &IngestionError{Err: runErr}
	}

	now := time.Now()
	if err := s.setStatus(upload, models.UploadStatusProcessed, &now); err != nil {
		return err
	}

	s.log.Info().Str("upload_id", uploadID.String()).Int("transactions", count).
		Msg("ingestion completed")
	s.bus.Publish(ctx, events.UploadCompleted{
		UploadID:         upload.ID,
		Type:             upload.Type,
		Status:           models.UploadStatusProcessed,
		TransactionCount: count,
	})
	return nil
}

func (s *Service) run(ctx context.Context, upload *models.Upload, password string) (int, error) {
	path := filepath.Join(s.storageRoot, upload.FilePath)
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("source file missing: %w", err)
	}

	extractor := s.screenshots
	fromBank := upload.Type == models.UploadTypeBankStatement
	if fromBank {
		extractor = s.statements

		if password != "" {
			decryptedPath, err := s.decryptor.Decrypt(ctx, path, password)
			if err != nil {
				return 0, err
			}
			// The plaintext copy must not outlive the run, whatever
			// happens after this point.
			defer os.Remove(decryptedPath)
			path = decryptedPath
		}
	}

	txns, err := extractor.Extract(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("extraction: %w", err)
	}

	for _, txn := range txns {
		parsed, err := s.persist(ctx, upload, txn)
		if err != nil {
			return 0, err
		}

		if fromBank {
			err = s.matcher.ReconcileFromBank(ctx, parsed)
		} else {
			err = s.matcher.Match(ctx, parsed)
		}
		if err != nil {
			return 0, fmt.Errorf("matching transaction %s: %w", parsed.ID, err)
		}
	}

	return len(txns), nil
}

func (s *Service) persist(ctx context.Context, upload *models.Upload, txn RawTransaction) (*models.ParsedTransaction, error) {
	direction := models.Direction(txn.Direction)
	if direction == "" {
		// Screenshot extractions occasionally omit direction; money shown
		// in a receipt screenshot is a credit by default.
		direction = models.DirectionCredit
	}

	date, err := time.Parse("2006-01-02", txn.Date)
	if err != nil {
		return nil, fmt.Errorf("malformed transaction date %q: %w", txn.Date, err)
	}

	raw, err := json.Marshal(txn)
	if err != nil {
		return nil, err
	}

	senderName := txn.CounterpartyName()
	parsed := &models.ParsedTransaction{
		ID:                   uuid.New(),
		UploadID:             upload.ID,
		RawText:              raw,
		SenderName:           senderName,
		Amount:               txn.Amount,
		Date:                 date,
		Direction:            direction,
		Fingerprint:          fingerprint.Compute(txn.Amount, txn.Date, senderName),
		MatchType:            models.MatchTypeUnmatched,
		ReconciliationStatus: models.ReconStatusUnmatched,
	}
	if err := s.db.WithContext(ctx).Create(parsed).Error; err != nil {
		return nil, err
	}
	return parsed, nil
}

// Retry purges the upload's parsed transactions and resets it to pending so
// the next run replaces history instead of appending to it. The caller
// re-enqueues the processing job afterwards.
func (s *Service) Retry(ctx context.Context, uploadID uuid.UUID) (*models.Upload, error) {
	if _, processing := s.inFlight.Load(uploadID); processing {
		return nil, ErrAlreadyProcessing
	}

	upload, err := repository.NewUploadRepository(s.db).GetByID(uploadID)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(s.storageRoot, upload.FilePath)); err != nil {
		return nil, fmt.Errorf("source file no longer exists: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewParsedTransactionRepository(tx).DeleteForUpload(uploadID); err != nil {
			return err
		}
		return tx.Model(&models.Upload{}).Where("id = ?", uploadID).
			Updates(map[string]interface{}{
				"status":       models.UploadStatusPending,
				"processed_at": nil,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	upload.Status = models.UploadStatusPending
	upload.ProcessedAt = nil
	s.log.Info().Str("upload_id", uploadID.String()).Msg("upload reset for reprocessing")
	return upload, nil
}

func (s *Service) setStatus(upload *models.Upload, status models.UploadStatus, processedAt *time.Time) error {
	upload.Status = status
	upload.ProcessedAt = processedAt
	return s.db.Model(&models.Upload{}).Where("id = ?", upload.ID).
		Updates(map[string]interface{}{
			"status":       status,
			"processed_at": processedAt,
		}).Error
}
