package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port           string
	MaxUploadBytes int64
	ResultDir      string
	SessionTTL     time.Duration
	MaxExports     int
	// SourceFileRoot confines local source_ref paths; empty disables them.
	SourceFileRoot   string
	AllowHTTPSources bool
}

// RenderConfig holds the page cache raster settings.
type RenderConfig struct {
	Scale   float64
	Quality int
}

// StorageConfig holds S3 settings for sources and export results.
type StorageConfig struct {
	Bucket             string
	Prefix             string
	UploadResults      bool
	EncryptionPassword string
}

// StatusConfig holds export job status store settings.
type StatusConfig struct {
	RedisURL string // empty selects the in-memory store
	TTL      time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Render  RenderConfig
	Storage StorageConfig
	Status  StatusConfig
}

// Load reads .env style files into the environment without overriding
// variables that are already set. Missing files are ignored.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfx.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfx",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:             getEnv("PORT", "8080"),
		MaxUploadBytes:   int64(parseInt(getEnv("MAX_UPLOAD_MB", "100"), 100)) << 20,
		ResultDir:        getEnv("RESULT_DIR", "results"),
		SessionTTL:       parseDuration(getEnv("SESSION_TTL", "2h"), 2*time.Hour),
		MaxExports:       parseInt(getEnv("MAX_CONCURRENT_EXPORTS", "2"), 2),
		SourceFileRoot:   getEnv("SOURCE_FILE_ROOT", ""),
		AllowHTTPSources: parseBool(getEnv("ALLOW_HTTP_SOURCES", "0")),
	}

	cfg.Render = RenderConfig{
		Scale:   parseFloat(getEnv("RENDER_SCALE", "1.5"), 1.5),
		Quality: parseInt(getEnv("RENDER_JPEG_QUALITY", "80"), 80),
	}
	if cfg.Render.Scale <= 0 {
		cfg.Render.Scale = 1.5
	}
	if cfg.Render.Quality < 1 || cfg.Render.Quality > 100 {
		cfg.Render.Quality = 80
	}

	cfg.Storage = StorageConfig{
		Bucket:             getEnv("S3_BUCKET", ""),
		Prefix:             strings.Trim(getEnv("S3_PREFIX", "pdfx"), "/"),
		UploadResults:      parseBool(getEnv("UPLOAD_RESULTS_TO_S3", "0")),
		EncryptionPassword: getEnv("RESULT_ENCRYPTION_PASSWORD", ""),
	}

	cfg.Status = StatusConfig{
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      parseDuration(getEnv("JOB_STATUS_TTL", "24h"), 24*time.Hour),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
