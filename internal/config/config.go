// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Model providers selectable via MODEL_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds all application configuration.
type Config struct {
	Env  string
	Host string
	Port string

	Store StoreConfig
	Model ModelConfig

	// ChatModels populates the chat_model setting choices offered to clients.
	ChatModels []string
	// AllowedOrigins restricts websocket origins; empty allows same-origin
	// only.
	AllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// StoreConfig selects and parameterizes the thread store backend.
type StoreConfig struct {
	Backend       string
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
}

// ModelConfig parameterizes the model adapter.
type ModelConfig struct {
	Provider    string
	Name        string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("ENV", "local"),
		Host: getEnv("HOST", ""),
		Port: getEnv("PORT", "8080"),
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
			SQLitePath:    getEnv("SQLITE_PATH", "./data/chatflow.db"),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
		Model: ModelConfig{
			Provider:    strings.ToLower(getEnv("MODEL_PROVIDER", ProviderOpenAI)),
			Name:        getEnv("MODEL_NAME", ""),
			BaseURL:     getEnv("MODEL_BASE_URL", ""),
			APIKey:      getEnv("MODEL_API_KEY", ""),
			Temperature: getEnvFloat("MODEL_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 1000),
			Timeout:     getEnvDuration("MODEL_TIMEOUT", 30*time.Second),
			MaxRetries:  getEnvInt("MODEL_MAX_RETRIES", 3),
		},
		ChatModels:     getEnvList("CHAT_MODELS"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}

	// The openai provider targets any OpenAI-compatible endpoint; a local
	// server is the development default. Other providers use their SDK's own
	// endpoint unless overridden.
	if cfg.Model.BaseURL == "" && cfg.Model.Provider == ProviderOpenAI {
		cfg.Model.BaseURL = "http://localhost:1236/v1"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty when STORE_BACKEND=sqlite")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.Model.Provider)
	}

	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be > 0")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("MODEL_TEMPERATURE must be within [0, 2]")
	}

	return nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "local" || c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings ("30s", "1m") and falls back to
// seconds for bare integers.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	raw := strings.TrimSpace(value)
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// getEnvList splits a comma-separated variable into trimmed non-empty items.
func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
