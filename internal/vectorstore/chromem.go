package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/document"
)

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path       string
	Compress   bool
	Collection string
	Dimension  int
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore keeps chunks in an embedded chromem-go collection. Metadata
// values are stored JSON-encoded because chromem only holds strings.
type ChromemStore struct {
	db *chromem.DB

	mu         sync.Mutex
	collection *chromem.Collection

	embedder Embedder
	config   ChromemConfig
	logger   *zap.Logger
}

// NewChromemStore opens or creates the database. Call Bootstrap before use.
func NewChromemStore(cfg ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, persistenceErr("creating directory", err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, persistenceErr("opening chromem db", err)
		}
		cfg.Path = path
	}

	return &ChromemStore{db: db, embedder: embedder, config: cfg, logger: logger}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc is only reached if chromem is handed a document or query
// without a vector, which this store never does.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Bootstrap gets or creates the collection.
func (s *ChromemStore) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapLocked()
}

func (s *ChromemStore) bootstrapLocked() error {
	c, err := s.db.GetOrCreateCollection(s.config.Collection, nil, s.embeddingFunc())
	if err != nil {
		return persistenceErr("creating collection", err)
	}
	s.collection = c
	s.logger.Info("chromem collection ready",
		zap.String("collection", s.config.Collection),
		zap.String("path", s.config.Path),
		zap.Int("documents", c.Count()),
	)
	return nil
}

func (s *ChromemStore) ensureCollection() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == nil {
		if err := s.bootstrapLocked(); err != nil {
			return nil, err
		}
	}
	return s.collection, nil
}

// AddDocument embeds content and adds it under a new UUID.
func (s *ChromemStore) AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error) {
	if err := checkAdd(content, metadata); err != nil {
		return "", err
	}
	collection, err := s.ensureCollection()
	if err != nil {
		return "", err
	}

	vec, err := embedOne(ctx, s.embedder, content, s.config.Dimension, false)
	if err != nil {
		return "", err
	}
	meta, err := encodeStringMetadata(metadata)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	doc := chromem.Document{ID: id, Content: content, Metadata: meta, Embedding: vec}
	if err := collection.AddDocument(ctx, doc); err != nil {
		return "", persistenceErr("adding document", err)
	}
	return id, nil
}

// SimilaritySearch queries by the embedded query vector. k is capped at the
// collection size because chromem rejects larger requests.
func (s *ChromemStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	if err := checkSearch(query, k); err != nil {
		return nil, err
	}
	collection, err := s.ensureCollection()
	if err != nil {
		return nil, err
	}

	vec, err := embedOne(ctx, s.embedder, query, s.config.Dimension, true)
	if err != nil {
		return nil, err
	}

	count := collection.Count()
	if count == 0 {
		return []Result{}, nil
	}
	if k > count {
		k = count
	}

	found, err := collection.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, persistenceErr("querying collection", err)
	}

	results := make([]Result, 0, len(found))
	for _, r := range found {
		meta, err := decodeStringMetadata(r.Metadata)
		if err != nil {
			return nil, persistenceErr("decoding metadata", err)
		}
		results = append(results, Result{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   meta,
			Similarity: float64(r.Similarity),
		})
	}
	return results, nil
}

// DeleteDocument removes a document by id.
func (s *ChromemStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	collection, err := s.ensureCollection()
	if err != nil {
		return err
	}
	if err := collection.Delete(ctx, nil, nil, id); err != nil {
		return persistenceErr("deleting document", err)
	}
	return nil
}

// Close is a no-op; persistent chromem writes each document as it is added.
func (s *ChromemStore) Close() error {
	return nil
}

func encodeStringMetadata(m document.Metadata) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding metadata %s: %w", k, err)
		}
		out[k] = string(b)
	}
	return out, nil
}

func decodeStringMetadata(m map[string]string) (document.Metadata, error) {
	out := make(document.Metadata, len(m))
	for k, raw := range m {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("metadata %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
