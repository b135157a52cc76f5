// Package rag combines retrieval and generation into the operations exposed
// over HTTP.
package rag

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/ragd/internal/rag")

// Retriever is the part of vectorstore.Store the service uses.
type Retriever interface {
	AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error)
	SimilaritySearch(ctx context.Context, query string, k int) ([]vectorstore.Result, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Generator produces an answer from retrieved documents.
type Generator interface {
	GenerateResponse(ctx context.Context, query string, docs []vectorstore.Result) (*llm.Response, error)
}

// Request is one question.
type Request struct {
	Query string
	// K is the number of documents to retrieve; values <= 0 use v1.DefaultK.
	K int
	// WithRetrieval is false for direct queries, which skip the store.
	WithRetrieval bool
}

// Service answers questions and manages stored documents.
type Service struct {
	store     Retriever
	generator Generator
	logger    *zap.Logger
}

// NewService creates a Service.
func NewService(store Retriever, generator Generator, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, generator: generator, logger: logger}, nil
}

// Ask answers req. With retrieval on, an empty search result still reaches
// the generator with empty context.
func (s *Service) Ask(ctx context.Context, req Request) (*llm.Response, error) {
	ctx, span := tracer.Start(ctx, "rag.Ask")
	defer span.End()

	k := req.K
	if k <= 0 {
		k = v1.DefaultK
	}
	span.SetAttributes(
		attribute.Bool("rag.retrieval", req.WithRetrieval),
		attribute.Int("rag.k", k),
	)

	var docs []vectorstore.Result
	if req.WithRetrieval {
		found, err := s.store.SimilaritySearch(ctx, req.Query, k)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("retrieving documents: %w", err)
		}
		docs = found
		span.SetAttributes(attribute.Int("rag.retrieved", len(docs)))
	}

	resp, err := s.generator.GenerateResponse(ctx, req.Query, docs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("query answered",
		zap.Bool("retrieval", req.WithRetrieval),
		zap.Int("k", k),
		zap.Int("sources", len(resp.Sources)),
	)
	return resp, nil
}

// Query answers text from the k most similar documents.
func (s *Service) Query(ctx context.Context, text string, k int) (*llm.Response, error) {
	return s.Ask(ctx, Request{Query: text, K: k, WithRetrieval: true})
}

// DirectQuery answers text without consulting the store.
func (s *Service) DirectQuery(ctx context.Context, text string) (*llm.Response, error) {
	return s.Ask(ctx, Request{Query: text, WithRetrieval: false})
}

// AddDocument stores content as a single document and returns its ID.
func (s *Service) AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error) {
	if err := metadata.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", v1.ErrInvalidInput, err)
	}
	id, err := s.store.AddDocument(ctx, content, metadata)
	if err != nil {
		return "", fmt.Errorf("adding document: %w", err)
	}
	s.logger.Info("document added", zap.String("id", id), zap.Strings("metadata_keys", metadata.Keys()))
	return id, nil
}

// DeleteDocument removes the document with id. Deleting a missing document
// succeeds.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting document %q: %w", id, err)
	}
	s.logger.Info("document deleted", zap.String("id", id))
	return nil
}
