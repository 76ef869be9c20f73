// Package config provides centralized configuration for the intake server.
// All configurable values are loaded from environment variables with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite database file.
	DBPath string

	// AssetRoot is the root directory of the content-addressed photo store.
	AssetRoot string

	// TempDir is where uploaded photos are staged until analysis consumes them.
	TempDir string

	// BatchRoot is the drop directory scanned for ingestion bundles.
	BatchRoot string

	// AnthropicKey is the API key for the vision analysis service.
	AnthropicKey string

	// VisionModel is the multimodal model identifier.
	VisionModel string

	// VisionTimeout bounds a single analysis round trip.
	VisionTimeout time.Duration

	// WorkerInterval is the polling interval for the batch worker.
	WorkerInterval time.Duration

	// MaxImageDimension bounds the longest edge of photos sent for analysis.
	MaxImageDimension int

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Port:              envOr("PORT", "8080"),
		DBPath:            envOr("DB_PATH", "inventory.db"),
		AssetRoot:         envOr("ASSET_ROOT", "assets"),
		TempDir:           envOr("TEMP_DIR", os.TempDir()),
		BatchRoot:         envOr("BATCH_ROOT", "batches"),
		AnthropicKey:      os.Getenv("ANTHROPIC_API_KEY"),
		VisionModel:       envOr("VISION_MODEL", "claude-sonnet-4-20250514"),
		VisionTimeout:     envDuration("VISION_TIMEOUT", 120*time.Second),
		WorkerInterval:    envDuration("WORKER_INTERVAL", 5*time.Second),
		MaxImageDimension: envInt("MAX_IMAGE_DIMENSION", 1568),
		CORSOrigin:        envOr("CORS_ORIGIN", "*"),
	}
}

// UseStub returns true when no vision API key is configured; the server then
// runs with a canned analyzer for local development.
func (c Config) UseStub() bool {
	return c.AnthropicKey == ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
