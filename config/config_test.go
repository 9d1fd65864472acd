package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 3, cfg.Remote.BreakerThreshold)
	assert.Equal(t, 10, cfg.Progress.Grade1LessonTotal)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Remote.Enabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"NURI_APP_ENV":                      "production",
		"NURI_APP_TIMEZONE":                 "UTC",
		"NURI_STORAGE_BACKEND":              "sqlite",
		"NURI_STORAGE_SQLITE_PATH":          "/tmp/progress.db",
		"NURI_REMOTE_BASE_URL":              "https://api.example.test",
		"NURI_REMOTE_TIMEOUT":               "3s",
		"NURI_PROGRESS_GRADE1_LESSON_TOTAL": "12",
		"NURI_LOG_FORMAT":                   "text",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.UTC, cfg.App.Location())
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/progress.db", cfg.Storage.SQLitePath)
	assert.True(t, cfg.Remote.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 12, cfg.Progress.Grade1LessonTotal)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"unknown backend", map[string]string{"NURI_STORAGE_BACKEND": "dynamo"}, "NURI_STORAGE_BACKEND"},
		{"postgres without dsn", map[string]string{"NURI_STORAGE_BACKEND": "postgres"}, "NURI_STORAGE_POSTGRES_DSN"},
		{"bad timezone", map[string]string{"NURI_APP_TIMEZONE": "Mars/Olympus"}, "NURI_APP_TIMEZONE"},
		{"zero lesson total", map[string]string{"NURI_PROGRESS_GRADE1_LESSON_TOTAL": "0"}, "GRADE1_LESSON_TOTAL"},
		{"events channel without redis", map[string]string{"NURI_STORAGE_REDIS_EVENTS_CHANNEL": "nuri:events"}, "REDIS_EVENTS_CHANNEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"NURI_REMOTE_TIMEOUT": "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestLoadFileEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"NURI_STORAGE_BACKEND=sqlite\n"+
			"NURI_STORAGE_SQLITE_PATH=/data/nuri.db\n"+
			"NURI_LOG_LEVEL=debug\n",
	), 0o600))
	t.Setenv("NURI_LOG_LEVEL", "warn")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/data/nuri.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
