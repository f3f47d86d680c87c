package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 2*time.Second, cfg.VerifyTimeout)
	assert.Equal(t, 5, cfg.BulkRateLimit)
	assert.Equal(t, time.Hour, cfg.BulkRateWindow)
	assert.Equal(t, 100, cfg.BulkMaxItems)
	assert.Equal(t, "enorae_session", cfg.SessionCookie)
	assert.True(t, cfg.AuditReplayEnabled)
	assert.Equal(t, "s3cret", cfg.TokenSecret())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BULK_RATE_LIMIT=9\nJWT_SECRET=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Cleanup(func() {
		_ = os.Unsetenv("BULK_RATE_LIMIT")
		_ = os.Unsetenv("JWT_SECRET")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.BulkRateLimit)
	assert.Equal(t, "from-file", cfg.TokenSecret())
}

func TestLoadConfigRejectsNonPositiveBulkLimits(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("BULK_MAX_ITEMS", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}
