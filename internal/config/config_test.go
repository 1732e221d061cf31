package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the given keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "") // registers restoration of the prior value
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "ENV", "HOST", "PORT", "STORE_BACKEND", "MODEL_PROVIDER",
		"MODEL_BASE_URL", "MODEL_TEMPERATURE", "MODEL_MAX_TOKENS",
		"MODEL_TIMEOUT", "MODEL_MAX_RETRIES", "LOG_LEVEL", "LOG_FORMAT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsDevelopment())

	assert.Equal(t, BackendMemory, cfg.Store.Backend)

	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, "http://localhost:1236/v1", cfg.Model.BaseURL)
	assert.InDelta(t, 0.7, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, 1000, cfg.Model.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 3, cfg.Model.MaxRetries)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t, "MODEL_BASE_URL")

	t.Setenv("ENV", "production")
	t.Setenv("HOST", "10.0.0.5")
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/var/lib/chatflow/threads.db")
	t.Setenv("MODEL_PROVIDER", "anthropic")
	t.Setenv("MODEL_NAME", "claude-sonnet-4-0")
	t.Setenv("MODEL_TEMPERATURE", "0.2")
	t.Setenv("MODEL_TIMEOUT", "45")
	t.Setenv("CHAT_MODELS", "gpt-4o, gpt-4o-mini ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "10.0.0.5:9000", cfg.Addr())
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/chatflow/threads.db", cfg.Store.SQLitePath)
	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-0", cfg.Model.Name)
	// The local endpoint default applies to the openai provider only.
	assert.Equal(t, "", cfg.Model.BaseURL)
	assert.InDelta(t, 0.2, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, 45*time.Second, cfg.Model.Timeout)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, cfg.ChatModels)
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	clearEnv(t, "DATABASE_URL")

	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "palm")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODEL_PROVIDER")
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("D1", "2m")
	t.Setenv("D2", "15")
	t.Setenv("D3", "nonsense")

	assert.Equal(t, 2*time.Minute, getEnvDuration("D1", time.Second))
	assert.Equal(t, 15*time.Second, getEnvDuration("D2", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("D3", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("D_ABSENT", time.Second))
}
