package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/config"
)

// New builds the store selected by cfg.VectorStore.Provider, wrapped with
// metrics and tracing. It does not bootstrap.
func New(ctx context.Context, cfg *config.Config, embedder Embedder, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vs := cfg.VectorStore

	var (
		store Store
		err   error
	)
	switch vs.Provider {
	case config.ProviderPostgres:
		store, err = NewPostgresStore(ctx, PostgresConfig{
			URL:          cfg.Database.URL.Value(),
			Table:        cfg.Database.Table,
			Dimension:    vs.Dimension,
			MaxConns:     cfg.Database.MaxConns,
			IVFFlatLists: cfg.Database.IVFFlatLists,
		}, embedder, logger)
	case config.ProviderChromem:
		store, err = NewChromemStore(ChromemConfig{
			Path:       vs.ChromemPath,
			Compress:   vs.ChromemCompress,
			Collection: vs.Collection,
			Dimension:  vs.Dimension,
		}, embedder, logger)
	case config.ProviderQdrant:
		store, err = NewQdrantStore(QdrantConfig{
			Host:       vs.QdrantHost,
			Port:       vs.QdrantPort,
			APIKey:     vs.QdrantAPIKey.Value(),
			UseTLS:     vs.QdrantTLS,
			Collection: vs.Collection,
			Dimension:  vs.Dimension,
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, vs.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s store: %w", vs.Provider, err)
	}

	logger.Info("vector store created",
		zap.String("provider", vs.Provider),
		zap.Int("dimension", vs.Dimension),
	)
	return Instrument(store, vs.Provider), nil
}
