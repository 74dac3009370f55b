package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithMemoryDriver(t *testing.T) {
	// Arrange
	path := writeConfig(t, `
database:
  driver: memory
`)

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 50, cfg.Quiz.JoinRateLimit)
	assert.Equal(t, 60*time.Second, cfg.Quiz.JoinRateWindow)
	assert.Equal(t, 800*time.Millisecond, cfg.Quiz.StoreTimeout)
	assert.Equal(t, 1000, cfg.Quiz.LockRegistryMaxEntries)
	assert.Equal(t, 500, cfg.Quiz.LockRegistryKeep)
	assert.Equal(t, 100, cfg.Quiz.DefaultParticipantLimit)
	assert.Equal(t, 5000, cfg.WebSocket.MaxClientsPerRoom)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FileOverridesAndEnv(t *testing.T) {
	// Arrange
	path := writeConfig(t, `
database:
  driver: memory
quiz:
  join_rate_limit: 10
  join_rate_window: 30s
  store_timeout: 250ms
`)
	t.Setenv("ADMIN_TOKEN", "s3cret")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Quiz.JoinRateLimit)
	assert.Equal(t, 30*time.Second, cfg.Quiz.JoinRateWindow)
	assert.Equal(t, 250*time.Millisecond, cfg.Quiz.StoreTimeout)
	assert.Equal(t, "s3cret", cfg.Admin.Token)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: sqlite\n"},
		{"incomplete postgres", "database:\n  driver: postgres\n  host: localhost\n"},
		{"redis without address", "database:\n  driver: memory\nredis:\n  enabled: true\n"},
		{"keep above max", "database:\n  driver: memory\nquiz:\n  lock_registry_keep: 2000\n"},
		{"zero store timeout", "database:\n  driver: memory\nquiz:\n  store_timeout: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			cfg, err := Load(writeConfig(t, tt.body))

			// Assert
			assert.Error(t, err, "конфигурация должна быть отклонена")
			assert.Nil(t, cfg)
		})
	}
}
