// Package bootstrap assembles the application from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"contract-decoder/internal/analyses"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/llm/gemini"
	"contract-decoder/internal/llm/openai"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/shared/config"
	"contract-decoder/internal/shared/server"
	"contract-decoder/internal/shared/storage/db"
	"contract-decoder/internal/shared/telemetry"
	"contract-decoder/internal/workspace"
)

// MemoryDatabaseURL selects the in-memory repository.
const MemoryDatabaseURL = "memory"

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Repo      analyses.Repo
	LLM       llm.Client
	Workspace *workspace.Workspace
}

// Build prepares the workspace and router. Storage failures degrade to the
// in-memory repository instead of failing startup.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	client := BuildLLM(ctx, cfg)
	sqlDB, repo := buildRepo(ctx, cfg)

	ws := workspace.New(workspace.Deps{
		Client:             client,
		Repo:               repo,
		Slot:               opslot.New(),
		ChunkSize:          cfg.ChunkSize,
		MaxContractChars:   cfg.MaxContractChars,
		MaxComparisonChars: cfg.MaxComparisonChars,
	})
	if _, err := ws.RestoreLatest(ctx); err != nil {
		telemetry.Warn("bootstrap: restore latest analysis failed", map[string]any{"error": err})
	}

	return &App{
		Config:    cfg,
		Router:    server.NewRouter(cfg, ws),
		DB:        sqlDB,
		Repo:      repo,
		LLM:       client,
		Workspace: ws,
	}, nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// BuildLLM returns the configured provider wrapped with retries. Without an API
// key, or when the provider cannot be constructed, it returns the placeholder client.
func BuildLLM(ctx context.Context, cfg config.Config) llm.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		telemetry.Warn("bootstrap: no API key; LLM features disabled", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderClient{}
	}

	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "openai":
		client, err = openai.NewClient(cfg.APIKey, cfg.LLMModel, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	default:
		client, err = gemini.NewClient(ctx, cfg.APIKey, cfg.LLMModel)
	}
	if err != nil {
		telemetry.Error("bootstrap: llm client init failed", map[string]any{"provider": cfg.LLMProvider, "error": err})
		return llm.PlaceholderClient{}
	}
	telemetry.Info("bootstrap: llm provider ready", map[string]any{"provider": cfg.LLMProvider, "model": cfg.LLMModel})
	return llm.WithRetry(client)
}

func buildRepo(ctx context.Context, cfg config.Config) (*sql.DB, analyses.Repo) {
	url := strings.TrimSpace(cfg.DatabaseURL)
	if url == "" || url == MemoryDatabaseURL {
		telemetry.Info("bootstrap: using in-memory history", nil)
		return nil, analyses.NewMemoryRepo()
	}

	sqlDB, err := OpenDatabase(ctx, url, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		telemetry.Error("bootstrap: database unavailable, history will not persist", map[string]any{"error": err})
		return nil, analyses.NewMemoryRepo()
	}
	return sqlDB, &analyses.SQLRepo{DB: sqlDB, Dialect: db.DialectFor(url)}
}

// OpenDatabase connects and applies pending migrations.
func OpenDatabase(ctx context.Context, url string, opts db.Options) (*sql.DB, error) {
	sqlDB, err := db.Connect(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB, db.DialectFor(url)); err != nil {
		return nil, errors.Join(err, sqlDB.Close())
	}
	return sqlDB, nil
}
