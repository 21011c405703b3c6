package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("APP_SECRET", strings.Repeat("a", 32))
	t.Setenv("DB_ENCRYPTION_KEY", strings.Repeat("b", 32))
	for _, key := range []string{"ENV", "BACKEND_URL", "LIST_PAGE_SIZE", "COUNTS_PAGE_SIZE", "PREVIEW_WORDS", "ADMIN_PREVIEW_WORDS", "BACKEND_TIMEOUT_SECONDS", "CSRF_ENABLED", "CORS_ALLOWED_ORIGINS", "SESSION_TIMEOUT_HOURS"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 20, cfg.ListPageSize)
	assert.Equal(t, 100, cfg.CountsPageSize)
	assert.Equal(t, 10, cfg.PreviewWords)
	assert.Equal(t, 15, cfg.AdminPreviewWords)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL())
	assert.True(t, cfg.CSRFEnabled)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("BACKEND_URL", "https://mail.example.com/")
	t.Setenv("LIST_PAGE_SIZE", "50")
	t.Setenv("PREVIEW_WORDS", "12")
	t.Setenv("CSRF_ENABLED", "false")
	t.Setenv("ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mail.example.com", cfg.BackendURL)
	assert.Equal(t, 50, cfg.ListPageSize)
	assert.Equal(t, 12, cfg.PreviewWords)
	assert.False(t, cfg.CSRFEnabled)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("APP_SECRET", "")
	t.Setenv("DB_ENCRYPTION_KEY", strings.Repeat("b", 32))

	_, err := Load()
	assert.ErrorContains(t, err, "APP_SECRET")

	t.Setenv("APP_SECRET", "too-short")
	_, err = Load()
	assert.ErrorContains(t, err, "at least 32")
}

func TestLoadRejectsNonPositiveSizes(t *testing.T) {
	cases := map[string]string{
		"SESSION_TIMEOUT_HOURS":   "0",
		"LIST_PAGE_SIZE":          "-5",
		"COUNTS_PAGE_SIZE":        "0",
		"PREVIEW_WORDS":           "many",
		"BACKEND_TIMEOUT_SECONDS": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setSecrets(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}
