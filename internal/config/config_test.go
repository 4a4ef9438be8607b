package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CHAT_MODEL", "gemini-2.0-flash")
	t.Setenv("CHAT_MAX_TOKENS", "256")
	t.Setenv("CHAT_TEMPERATURE", "0.7")
	t.Setenv("CHAT_FREQUENCY_PENALTY", "0.5")
	t.Setenv("CHAT_PRESENCE_PENALTY", "0")
	t.Setenv("SESSION_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.ChatModel)
	assert.Equal(t, int32(256), cfg.ChatMaxTokens)
	assert.InDelta(t, 0.7, cfg.ChatTemperature, 1e-6)
	assert.InDelta(t, 0.5, cfg.ChatFrequencyPenalty, 1e-6)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 60*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, ExportLocal, cfg.ExportBackend)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("CHAT_MODEL", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_MODEL")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoadMalformedNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("CHAT_MAX_TOKENS", "many")
	t.Setenv("CHAT_TEMPERATURE", "warm")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_MAX_TOKENS")
	assert.Contains(t, err.Error(), "CHAT_TEMPERATURE")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("EXPORT_BACKEND", "s3")
	t.Setenv("EXPORT_BUCKET", "transcripts")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "transcripts", cfg.ExportBucket)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("EXPORT_BACKEND", "s3")
	t.Setenv("EXPORT_BUCKET", "")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPORT_BUCKET")
}
