// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Admin authentication
	AdminPassword string // bcrypt hash or plain text (hash recommended)
	JWTSecret     string
	SessionExpiry time.Duration

	// Runtime config files (models.json, content-types.json, config.json)
	ConfigDir string

	// Prompt template files
	PromptsDir string

	// Extraction
	ExtractTimeout  time.Duration // base HTML fetch timeout, grows per retry
	PDFTimeout      time.Duration
	MaxPDFSize      int64 // bytes
	CacheTTL        time.Duration
	AllowPrivateIPs bool // permit fetching RFC1918 targets (off in production)

	// Model calls
	ModelTimeout time.Duration

	// History cleanup
	CleanupEnabled  bool
	CleanupMaxAge   time.Duration
	CleanupInterval time.Duration

	// CORS
	CORSOrigins []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 3000),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL: getEnv("DATABASE_URL", "file:streamwisdom.db?_journal=WAL&_timeout=5000"),

		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionExpiry: getEnvDuration("SESSION_EXPIRY", 24*time.Hour),

		ConfigDir:  getEnv("CONFIG_DIR", "config"),
		PromptsDir: getEnv("PROMPTS_DIR", "prompts"),

		ExtractTimeout:  getEnvDuration("EXTRACT_TIMEOUT", 15*time.Second),
		PDFTimeout:      getEnvDuration("PDF_TIMEOUT", 30*time.Second),
		MaxPDFSize:      int64(getEnvInt("MAX_PDF_SIZE_MB", 50)) * 1024 * 1024,
		CacheTTL:        getEnvDuration("CACHE_TTL", 24*time.Hour),
		AllowPrivateIPs: getEnvBool("ALLOW_PRIVATE_IPS", false),

		ModelTimeout: getEnvDuration("MODEL_TIMEOUT", 30*time.Second),

		CleanupEnabled:  getEnvBool("CLEANUP_ENABLED", true),
		CleanupMaxAge:   getEnvDuration("CLEANUP_MAX_AGE", 90*24*time.Hour),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.AdminPassword != "" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when ADMIN_PASSWORD is set")
	}

	return cfg, nil
}

// AdminEnabled returns true if the admin surface is configured.
func (c *Config) AdminEnabled() bool {
	return c.AdminPassword != ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
