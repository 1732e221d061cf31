package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/engine"
	"github.com/hupe1980/chatflow/internal/config"
	"github.com/hupe1980/chatflow/logging"
	"github.com/hupe1980/chatflow/model"
	modelanthropic "github.com/hupe1980/chatflow/model/anthropic"
	modelopenai "github.com/hupe1980/chatflow/model/openai"
	"github.com/hupe1980/chatflow/server"
	"github.com/hupe1980/chatflow/store"
	"github.com/hupe1980/chatflow/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long:  `Start the HTTP server exposing the REST and websocket chat surfaces.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dotenvErr := godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if verbose {
			cfg.LogLevel = "debug"
		}

		handler := logging.NewHandler(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		slog.SetDefault(slog.New(handler))
		logger := logging.NewSlogAdapter(slog.Default())

		if dotenvErr != nil {
			logger.Info("no .env file found, using environment variables")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("failed to close store", "error", closeErr.Error())
			}
		}()

		if err := st.Ping(ctx); err != nil {
			return fmt.Errorf("store health check failed: %w", err)
		}
		logger.Info("store connected", "backend", cfg.Store.Backend)

		m, err := buildModel(cfg)
		if err != nil {
			return err
		}
		logger.Info("model ready", "provider", m.Info().Provider, "name", m.Info().Name)

		registry := workflow.NewRegistry()
		workflow.RegisterBuiltins(registry)
		if len(cfg.ChatModels) > 0 {
			// Re-register with the configured model choices; the later
			// registration wins.
			registry.Register(func() workflow.Workflow {
				return workflow.NewSimpleChat(func(o *workflow.SimpleChatOptions) {
					o.ChatModels = cfg.ChatModels
				})
			})
		}

		eng := engine.New(registry, m, func(o *engine.Options) {
			o.Store = st
			o.Logger = logger
		})

		srv := server.New(eng, st, func(o *server.Options) {
			o.Addr = cfg.Addr()
			o.AllowedOrigins = cfg.AllowedOrigins
			o.Logger = logger
		})

		return srv.Run(ctx)
	},
}

// openStore builds the thread store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (core.ThreadStore, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendSQLite:
		return store.NewSQLite(cfg.Store.SQLitePath)
	case config.BackendPostgres:
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
		})
		return store.NewRedis(client), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildModel builds the model adapter selected by MODEL_PROVIDER.
func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		return modelopenai.NewModel(func(o *modelopenai.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.BaseURL = cfg.Model.BaseURL
			o.APIKey = cfg.Model.APIKey
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = int64(cfg.Model.MaxTokens)
			o.Timeout = cfg.Model.Timeout
			o.MaxRetries = cfg.Model.MaxRetries
		}), nil
	case config.ProviderAnthropic:
		return modelanthropic.NewModel(func(o *modelanthropic.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
			o.BaseURL = cfg.Model.BaseURL
			o.APIKey = cfg.Model.APIKey
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = int64(cfg.Model.MaxTokens)
			o.Timeout = cfg.Model.Timeout
			o.MaxRetries = cfg.Model.MaxRetries
		}), nil
	case config.ProviderMock:
		return model.NewMockModel("mock", "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
