package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/logging"
	"github.com/fyrsmithlabs/ragd/internal/telemetry"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// app holds the dependencies shared by serve and migrate.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	store     vectorstore.Store
}

// loadDotEnv loads .env from the working directory. Variables already in
// the environment win, and a missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// newLogger builds the service logger from the operator-facing settings.
func newLogger(c config.LogConfig) (*logging.Logger, error) {
	cfg := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(c.Level)
	if err != nil {
		return nil, err
	}
	cfg.Level = level
	cfg.Format = c.Format
	cfg.Sampling.Enabled = c.Sampling
	cfg.OTEL = c.OTEL
	return logging.NewLogger(cfg)
}

// setup loads configuration and builds the logger, telemetry, embedder and
// vector store. The caller must call close.
func setup(ctx context.Context, configPath string) (*app, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	a.telemetry, err = telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if h := a.telemetry.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded, continuing without export", zap.Error(h.LastErr))
	}

	embedder, err := embeddings.NewService(
		embeddings.ConfigFrom(cfg.OpenAI, cfg.VectorStore.Dimension),
		embeddings.WithLogger(logger.Underlying()),
		embeddings.WithMeterProvider(a.telemetry.MeterProvider()),
	)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	a.store, err = vectorstore.New(ctx, cfg, embedder, logger.Underlying())
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	return a, nil
}

// close releases everything setup created, in reverse order.
func (a *app) close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn(ctx, "closing vector store failed", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync() // Best-effort sync on shutdown
}
