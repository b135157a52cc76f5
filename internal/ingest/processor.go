package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/document"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// Metadata keys added to every chunk.
const (
	KeyChunkIndex  = "chunkIndex"
	KeyTotalChunks = "totalChunks"
)

// Separators are tried in order, so paragraphs split before lines, lines
// before words and words before characters.
var Separators = []string{"\n\n", "\n", " ", ""}

// ErrEmptyText is returned for documents with no non-whitespace content.
var ErrEmptyText = fmt.Errorf("%w: document content cannot be empty", v1.ErrInvalidInput)

var tracer = otel.Tracer("github.com/fyrsmithlabs/ragd/internal/ingest")

// Adder stores one chunk.
type Adder interface {
	AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error)
}

// Config holds chunking settings. Lengths are counted in runes.
type Config struct {
	ChunkSize      int
	ChunkOverlap   int
	MaxConcurrency int
}

// DefaultConfig returns 1000-rune chunks overlapping by 200.
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 200, MaxConcurrency: 4}
}

// ConfigFrom builds a Config from the service configuration.
func ConfigFrom(c config.IngestConfig) Config {
	return Config{ChunkSize: c.ChunkSize, ChunkOverlap: c.ChunkOverlap, MaxConcurrency: c.MaxConcurrency}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be >= 0 and < chunk size, got %d", c.ChunkOverlap)
	}
	return nil
}

// Chunk is one stored piece of a document.
type Chunk struct {
	PageContent string
	Metadata    document.Metadata
}

// Processed describes a stored document.
type Processed struct {
	Content  string
	Chunks   []Chunk
	Metadata document.Metadata
}

// Input is one document for ProcessDocuments.
type Input struct {
	Content  string
	Metadata document.Metadata
}

// Processor chunks documents and stores the chunks.
type Processor struct {
	store    Adder
	splitter textsplitter.TextSplitter
	config   Config
	logger   *zap.Logger
}

// NewProcessor creates a Processor that stores chunks through store.
func NewProcessor(store Adder, cfg Config, logger *zap.Logger) (*Processor, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:    store,
		splitter: newSplitter(cfg),
		config:   cfg,
		logger:   logger,
	}, nil
}

func newSplitter(cfg Config) textsplitter.RecursiveCharacter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithSeparators(Separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
}

// Split returns the chunks text would be stored as, without storing them.
func (p *Processor) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	chunks, err := p.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	return chunks, nil
}

// ProcessDocument splits text and stores each chunk in order with metadata
// plus chunkIndex and totalChunks. The first failing chunk aborts the rest;
// chunks already stored stay stored.
func (p *Processor) ProcessDocument(ctx context.Context, text string, metadata document.Metadata) (*Processed, error) {
	ctx, span := tracer.Start(ctx, "ingest.ProcessDocument")
	defer span.End()

	if err := metadata.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", v1.ErrInvalidInput, err)
	}
	base := metadata.Clone()

	parts, err := p.Split(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	total := len(parts)
	span.SetAttributes(
		attribute.Int("document.length", utf8.RuneCountInString(text)),
		attribute.Int("document.chunks", total),
	)

	var size int
	chunks := make([]Chunk, 0, total)
	for i, part := range parts {
		meta := base.With(KeyChunkIndex, i).With(KeyTotalChunks, total)
		if _, err := p.store.AddDocument(ctx, part, meta); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.logger.Error("storing chunk failed",
				zap.Int("chunk_index", i),
				zap.Int("total_chunks", total),
				zap.Error(err),
			)
			return nil, fmt.Errorf("storing chunk %d of %d: %w", i+1, total, err)
		}
		chunks = append(chunks, Chunk{PageContent: part, Metadata: meta})
		size += utf8.RuneCountInString(part)
	}

	avg := 0
	if total > 0 {
		avg = size / total
	}
	p.logger.Info("document processed",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.Strings("metadata_keys", base.Keys()),
		zap.Int("chunks", total),
		zap.Int("avg_chunk_size", avg),
	)

	return &Processed{Content: text, Chunks: chunks, Metadata: base}, nil
}

// ProcessDocuments processes inputs concurrently. Output order matches input
// order. Any failure cancels the remaining work and is the only result.
func (p *Processor) ProcessDocuments(ctx context.Context, inputs []Input) ([]*Processed, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one document is required", v1.ErrInvalidInput)
	}

	out := make([]*Processed, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxConcurrency)

	for i, in := range inputs {
		g.Go(func() error {
			processed, err := p.ProcessDocument(gctx, in.Content, in.Metadata)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			out[i] = processed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.logger.Info("documents processed", zap.Int("documents", len(inputs)))
	return out, nil
}

// ProcessTexts processes texts that share one metadata map.
func (p *Processor) ProcessTexts(ctx context.Context, texts []string, metadata document.Metadata) ([]*Processed, error) {
	inputs := make([]Input, len(texts))
	for i, t := range texts {
		inputs[i] = Input{Content: t, Metadata: metadata}
	}
	return p.ProcessDocuments(ctx, inputs)
}
