package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/document"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,54}$`)

// PostgresConfig configures the pgvector-backed store.
type PostgresConfig struct {
	URL          string
	Table        string
	Dimension    int
	MaxConns     int32
	IVFFlatLists int
}

// Validate validates the configuration.
func (c PostgresConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: database url required", ErrInvalidConfig)
	}
	if !tableNameRe.MatchString(c.Table) {
		return fmt.Errorf("%w: table name %q must match %s", ErrInvalidConfig, c.Table, tableNameRe)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	if c.IVFFlatLists <= 0 {
		return fmt.Errorf("%w: ivfflat lists must be positive", ErrInvalidConfig)
	}
	return nil
}

// PostgresStore keeps chunks in one table with a vector column and an
// ivfflat cosine index.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder Embedder
	config   PostgresConfig
	logger   *zap.Logger
	table    string
}

// NewPostgresStore opens a connection pool. The pool connects lazily, so a
// down database surfaces on first use, not here.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, embedder Embedder, logger *zap.Logger) (*PostgresStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing database url: %v", ErrInvalidConfig, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, persistenceErr("creating pool", err)
	}

	return &PostgresStore{
		pool:     pool,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
		table:    pgx.Identifier{cfg.Table}.Sanitize(),
	}, nil
}

// bootstrapStatements returns the idempotent schema statements in order.
func bootstrapStatements(cfg PostgresConfig) []string {
	table := pgx.Identifier{cfg.Table}.Sanitize()
	index := pgx.Identifier{cfg.Table + "_embedding_idx"}.Sanitize()
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table, cfg.Dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`,
			index, table, cfg.IVFFlatLists),
	}
}

// Bootstrap creates the extension, table and index if absent.
func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	for _, stmt := range bootstrapStatements(s.config) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return persistenceErr("bootstrapping schema", err)
		}
	}
	s.logger.Info("postgres schema ready",
		zap.String("table", s.config.Table),
		zap.Int("dimension", s.config.Dimension),
	)
	return nil
}

// AddDocument embeds content and inserts one row.
func (s *PostgresStore) AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error) {
	if err := checkAdd(content, metadata); err != nil {
		return "", err
	}

	vec, err := embedOne(ctx, s.embedder, content, s.config.Dimension, false)
	if err != nil {
		return "", err
	}
	meta, err := json.Marshal(metadata.Map())
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (content, embedding, metadata) VALUES ($1, $2::vector, $3::jsonb) RETURNING id`, s.table),
		content, pgvector.NewVector(vec).String(), string(meta),
	).Scan(&id)
	if err != nil {
		return "", persistenceErr("inserting document", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// SimilaritySearch returns the k rows nearest to query by cosine distance.
func (s *PostgresStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	if err := checkSearch(query, k); err != nil {
		return nil, err
	}

	vec, err := embedOne(ctx, s.embedder, query, s.config.Dimension, true)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, content, metadata, 1 - (embedding <=> $1::vector) AS similarity
FROM %s
ORDER BY embedding <=> $1::vector
LIMIT $2`, s.table),
		pgvector.NewVector(vec).String(), k,
	)
	if err != nil {
		return nil, persistenceErr("querying documents", err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var (
			id   int64
			r    Result
			meta []byte
		)
		if err := rows.Scan(&id, &r.Content, &meta, &r.Similarity); err != nil {
			return nil, persistenceErr("scanning row", err)
		}
		r.ID = strconv.FormatInt(id, 10)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, persistenceErr("decoding metadata", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("reading rows", err)
	}
	return results, nil
}

// DeleteDocument removes a row by primary key.
func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), n)
	if err != nil {
		return persistenceErr("deleting document", err)
	}
	s.logger.Debug("deleted document", zap.Int64("id", n), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
