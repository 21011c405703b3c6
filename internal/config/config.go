package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string
	StaticDir  string
	Env        string

	// Database
	DBPath string

	// Security
	AppSecret          string
	DBEncryptionKey    string
	CSRFEnabled        bool
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	LoginRateLimitRPS  float64
	LoginRateBurst     int

	// Mail backend
	BackendURL     string
	BackendTimeout time.Duration

	// Mail views
	ListPageSize      int
	CountsPageSize    int
	PreviewWords      int
	AdminPreviewWords int

	// Retention
	AuditRetentionDays int

	// Session
	SessionTimeoutHours int
}

// Load reads configuration from environment variables. A .env file in the
// working directory, when present, seeds variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Get required security secrets - fail startup if not set or too weak
	appSecret, err := getEnvRequiredMinLength("APP_SECRET", 32)
	if err != nil {
		return nil, fmt.Errorf("security configuration error: %w", err)
	}

	dbEncryptionKey, err := getEnvRequiredMinLength("DB_ENCRYPTION_KEY", 32)
	if err != nil {
		return nil, fmt.Errorf("security configuration error: %w", err)
	}

	env := getEnv("ENV", "development")
	cfg := &Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		StaticDir:           getEnv("STATIC_DIR", "./static"),
		Env:                 env,
		DBPath:              getEnv("DB_PATH", "./data/psfxmail.db"),
		AppSecret:           appSecret,
		DBEncryptionKey:     dbEncryptionKey,
		CSRFEnabled:         getEnvBool("CSRF_ENABLED", true),
		CORSAllowedOrigins:  allowedOrigins(env),
		RateLimitRPS:        getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:      getEnvInt("RATE_LIMIT_BURST", 30),
		LoginRateLimitRPS:   getEnvFloat("LOGIN_RATE_LIMIT_RPS", 1),
		LoginRateBurst:      getEnvInt("LOGIN_RATE_LIMIT_BURST", 5),
		BackendURL:          strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000"), "/"),
		AuditRetentionDays:  getEnvInt("AUDIT_RETENTION_DAYS", 90),
	}

	// Sizes and lifetimes must be positive.
	backendTimeout, err := getEnvPositiveInt("BACKEND_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.BackendTimeout = time.Duration(backendTimeout) * time.Second

	positive := []struct {
		key   string
		def   int
		field *int
	}{
		{"LIST_PAGE_SIZE", 20, &cfg.ListPageSize},
		{"COUNTS_PAGE_SIZE", 100, &cfg.CountsPageSize},
		{"PREVIEW_WORDS", 10, &cfg.PreviewWords},
		{"ADMIN_PREVIEW_WORDS", 15, &cfg.AdminPreviewWords},
		{"SESSION_TIMEOUT_HOURS", 8, &cfg.SessionTimeoutHours},
	}
	for _, p := range positive {
		if *p.field, err = getEnvPositiveInt(p.key, p.def); err != nil {
			return nil, err
		}
	}

	log.Info().Str("backend", cfg.BackendURL).Msg("Configuration loaded successfully")
	return cfg, nil
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionTTL is the lifetime of a login session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTimeoutHours) * time.Hour
}

// allowedOrigins returns CORS allowed origins from environment or defaults
func allowedOrigins(env string) []string {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		var out []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
		return out
	}

	// Default to localhost for development
	if env != "production" {
		return []string{"http://localhost:5173", "http://localhost:8080"}
	}

	log.Warn().Msg("CORS_ALLOWED_ORIGINS not set in production - using restrictive default")
	return []string{}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequiredMinLength returns an error if the environment variable is not set
// or if its value is shorter than the minimum required length
func getEnvRequiredMinLength(key string, minLength int) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s environment variable is required but not set", key)
	}
	if len(value) < minLength {
		return "", fmt.Errorf("%s must be at least %d characters (got %d)", key, minLength, len(value))
	}
	return value, nil
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid integer setting")
		return defaultValue
	}
	return i
}

// getEnvPositiveInt returns an error when the variable is set to anything
// but a positive integer.
func getEnvPositiveInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (got %q)", key, value)
	}
	return i, nil
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid number setting")
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
