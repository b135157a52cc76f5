package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/fyrsmithlabs/ragd/internal/document"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidID is returned for ids the backend could never have issued.
	ErrInvalidID = fmt.Errorf("%w: invalid document id", v1.ErrInvalidInput)

	// ErrEmptyContent is returned when adding a document without content.
	ErrEmptyContent = fmt.Errorf("%w: content cannot be empty", v1.ErrInvalidInput)

	// ErrInvalidK is returned when fewer than one result is requested.
	ErrInvalidK = fmt.Errorf("%w: k must be at least 1", v1.ErrInvalidInput)
)

// Embedder generates vector embeddings from text. It is the langchaingo
// interface, so any langchaingo embedder can back a store.
type Embedder = embeddings.Embedder

// Result is one retrieved chunk.
type Result struct {
	ID         string
	Content    string
	Metadata   document.Metadata
	Similarity float64
}

// Store persists chunks and searches them by similarity.
//
// Similarity is 1 - cosine distance, so an exact match scores 1. Results are
// ordered by descending similarity; ties are ordered however the backend
// returns them. Searching an empty store returns an empty, non-nil slice.
type Store interface {
	// AddDocument embeds content and stores it, returning the new id.
	AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error)

	// SimilaritySearch embeds query and returns at most k nearest chunks.
	SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error)

	// DeleteDocument removes a chunk. Deleting an absent id succeeds.
	DeleteDocument(ctx context.Context, id string) error

	// Bootstrap creates whatever schema the backend needs. It is idempotent
	// and safe to run on every start.
	Bootstrap(ctx context.Context) error

	// Close releases connections.
	Close() error
}

func checkAdd(content string, metadata document.Metadata) error {
	if content == "" {
		return ErrEmptyContent
	}
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("%w: %w", v1.ErrInvalidInput, err)
	}
	return nil
}

func checkSearch(query string, k int) error {
	if query == "" {
		return fmt.Errorf("%w: query cannot be empty", v1.ErrInvalidInput)
	}
	if k < 1 {
		return ErrInvalidK
	}
	return nil
}

// embedOne embeds text and checks the vector length against dim.
func embedOne(ctx context.Context, e Embedder, text string, dim int, asQuery bool) ([]float32, error) {
	var (
		vec []float32
		err error
	)
	if asQuery {
		vec, err = e.EmbedQuery(ctx, text)
	} else {
		var vecs [][]float32
		vecs, err = e.EmbedDocuments(ctx, []string{text})
		if err == nil && len(vecs) != 1 {
			err = fmt.Errorf("got %d embeddings for 1 text", len(vecs))
		}
		if err == nil {
			vec = vecs[0]
		}
	}
	if err != nil {
		if errors.Is(err, v1.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", v1.ErrUpstream, err)
	}
	if dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, store expects %d", v1.ErrUpstream, len(vec), dim)
	}
	return vec, nil
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", v1.ErrPersistence, op, err)
}
