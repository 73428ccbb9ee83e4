package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points CONFIG_PATH away from any config.yaml in the package dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "America/Los_Angeles", cfg.Ledger.Timezone)
	assert.Equal(t, 100, cfg.Ledger.DefaultDailyGoal)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
	assert.Equal(t, []string{"*"}, cfg.Security.CORSOrigins)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	// GIVEN: A config file setting port and timezone, and an env var for port
	// WHEN: Loading
	// THEN: Env wins for port, the file wins for timezone

	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4000
  shutdown_timeout: 3s
ledger:
  timezone: Europe/Paris
database:
  driver: sqlite
  path: /tmp/test.db
`), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("REPBOARD_SERVER_PORT", "5000")
	t.Setenv("REPBOARD_SECURITY_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REPBOARD_LEDGER_DEFAULT_DAILY_GOAL", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "Europe/Paris", cfg.Ledger.Timezone)
	assert.Equal(t, 50, cfg.Ledger.DefaultDailyGoal)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSOrigins)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad timezone", "REPBOARD_LEDGER_TIMEZONE", "Mars/Olympus"},
		{"bad driver", "REPBOARD_DATABASE_DRIVER", "postgres"},
		{"bad port", "REPBOARD_SERVER_PORT", "70000"},
		{"zero goal", "REPBOARD_LEDGER_DEFAULT_DAILY_GOAL", "0"},
		{"short hash key", "REPBOARD_SECURITY_COOKIE_HASH_KEY", "short"},
		{"odd block key", "REPBOARD_SECURITY_COOKIE_BLOCK_KEY", "0123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "server.port", envTransformFunc("REPBOARD_SERVER_PORT"))
	assert.Equal(t, "security.cors_origins", envTransformFunc("REPBOARD_SECURITY_CORS_ORIGINS"))
	assert.Equal(t, "", envTransformFunc("REPBOARD_DEBUG"))
}
