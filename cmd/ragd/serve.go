package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/ragd/internal/http"
	"github.com/fyrsmithlabs/ragd/internal/ingest"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/rag"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the ragd HTTP server. The vector store is bootstrapped first, so
a fresh database is ready without running migrate.

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// runServe runs the server until a termination signal arrives.
func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, configPath)
}

// run wires every component and serves until ctx is cancelled:
//  1. Loads configuration and builds logger, telemetry, embedder and store
//  2. Bootstraps the store
//  3. Builds the completion client, RAG service and document processor
//  4. Starts the HTTP server
//  5. Shuts down within server.shutdown_timeout once ctx is done
func run(ctx context.Context, configPath string) error {
	a, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	cfg := a.cfg
	zl := a.logger.Underlying()

	a.logger.Info(ctx, "starting ragd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
	)

	if err := a.store.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap vector store: %w", err)
	}

	generator, err := llm.New(llm.ConfigFrom(cfg.OpenAI), llm.WithLogger(zl))
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}
	svc, err := rag.NewService(a.store, generator, zl)
	if err != nil {
		return fmt.Errorf("failed to create rag service: %w", err)
	}
	processor, err := ingest.NewProcessor(a.store, ingest.ConfigFrom(cfg.Ingest), zl)
	if err != nil {
		return fmt.Errorf("failed to create document processor: %w", err)
	}

	srv, err := httpserver.NewServer(svc, processor, a.logger, httpserver.ConfigFrom(cfg.Server), httpserver.Options{
		MeterProvider: a.telemetry.MeterProvider(),
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "received shutdown signal",
		zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil {
		return err
	}

	a.logger.Info(context.Background(), "server shutdown complete")
	return nil
}
