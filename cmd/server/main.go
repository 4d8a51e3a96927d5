package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"apartment-ledger-backend/internal/config"
	"apartment-ledger-backend/internal/events"
	"apartment-ledger-backend/internal/jobs"
	"apartment-ledger-backend/internal/logger"
	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/routes"
	"apartment-ledger-backend/internal/services/billing"
	"apartment-ledger-backend/internal/services/ingest"
	"apartment-ledger-backend/internal/services/matching"
	"apartment-ledger-backend/internal/sheets"
	"apartment-ledger-backend/internal/telegram"
)

func main() {
	log := logger.New()

	// Load .env; relying on system env is fine.
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system env")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	if err := db.AutoMigrate(
		&models.Unit{},
		&models.Resident{},
		&models.MaintenanceSlab{},
		&models.Charge{},
		&models.Payment{},
		&models.Expense{},
		&models.Upload{},
		&models.ParsedTransaction{},
	); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	bus := events.NewBus(log)

	// Notification and export subscribers are registered here, at process
	// start, and only when configured. The reconciliation core publishes
	// events and knows nothing about them.
	if cfg.GoogleSheetID != "" {
		syncer, err := sheets.NewSyncer(ctx, cfg.GoogleSheetID, db, log)
		if err != nil {
			log.Fatal().Err(err).Msg("sheets init failed")
		}
		syncer.Register(bus)
	}
	if cfg.TelegramBotToken != "" {
		telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatIDs, log).Register(bus)
	}

	matcher := matching.NewMatcher(db, bus, log)
	billingSvc := billing.NewService(db, bus, log)
	ingestSvc := ingest.NewService(
		db,
		ingest.NewStatementExtractor(),
		ingest.NewScreenshotExtractor(),
		ingest.NewQpdfDecryptor(),
		matcher,
		bus,
		log,
		cfg.StorageRoot,
	)

	queue := jobs.NewQueue(64, log)
	defer queue.Close()
	queue.Start(ctx, cfg.QueueWorkers, func(ctx context.Context, job *jobs.ProcessUploadJob) error {
		return ingestSvc.Process(ctx, job.UploadID, job.Password)
	})

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		DB:          db,
		Billing:     billingSvc,
		Matcher:     matcher,
		Ingest:      ingestSvc,
		Queue:       queue,
		StorageRoot: cfg.StorageRoot,
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
