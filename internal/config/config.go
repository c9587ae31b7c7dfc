package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64

	// Storage layout
	StoreDir       string
	BulkStoreDir   string
	FreshStoreDir  string
	ViewerStoreDir string

	// Background sweeper; TTL <= 0 disables it
	StoreTTLSeconds   int
	SweepIntervalSecs int

	// Index tuning
	ScoreFloor     float64
	EmbedBatchSize int

	// Embeddings / insight provider
	GeminiAPIKey          string
	GeminiModel           string
	GoogleEmbeddingsModel string
}

// LoadConfig reads configuration from the environment with documented
// defaults. Unknown or malformed values never fail the load; they fall
// back to the defaults.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	storeDir := getEnv("STORE_DIR", "./store")
	if abs, err := filepath.Abs(storeDir); err == nil {
		storeDir = abs
	}

	cfg := &Config{
		Port:        getEnv("BACKEND_PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB

		StoreDir:       storeDir,
		BulkStoreDir:   getEnv("BULK_STORE_DIR", filepath.Join(storeDir, "bulk_uploads")),
		FreshStoreDir:  getEnv("FRESH_STORE_DIR", filepath.Join(storeDir, "fresh_uploads")),
		ViewerStoreDir: getEnv("VIEWER_STORE_DIR", filepath.Join(storeDir, "viewer_uploads")),

		StoreTTLSeconds:   getEnvInt("STORE_TTL_SECONDS", 0),
		SweepIntervalSecs: getEnvInt("STORE_SWEEP_INTERVAL_SECONDS", 60),

		ScoreFloor:     getEnvFloat64("SCORE_FLOOR", 0.05),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 100),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
