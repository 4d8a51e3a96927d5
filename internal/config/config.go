package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port         string
	DatabaseDSN  string
	StorageRoot  string
	QueueWorkers int

	// Optional integrations; empty disables the subscriber.
	GoogleSheetID    string
	TelegramBotToken string
	TelegramChatIDs  []string
}

// Load reads configuration from the environment. godotenv has already pulled
// in .env by the time this runs.
func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseDSN:      getEnv("DATABASE_URL", "host=localhost user=postgres dbname=apartment_ledger sslmode=disable"),
		StorageRoot:      getEnv("STORAGE_ROOT", "storage"),
		QueueWorkers:     getEnvInt("QUEUE_WORKERS", 2),
		GoogleSheetID:    os.Getenv("GOOGLE_SHEET_ID"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if raw := os.Getenv("TELEGRAM_CHAT_IDS"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.TelegramChatIDs = append(cfg.TelegramChatIDs, id)
			}
		}
	}

	return cfg
}

// InitDB opens the postgres connection.
func InitDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
