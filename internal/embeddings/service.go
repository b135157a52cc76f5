package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/ragd/internal/config"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates the API returned a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL overrides the OpenAI endpoint; empty uses the library default.
	BaseURL string
	Model   string
	APIKey  string

	// BatchSize bounds the texts sent per API request.
	BatchSize int

	// Dimension is the expected vector length; 0 disables the check.
	Dimension int

	// RequestsPerSecond limits outbound calls; 0 disables the limiter.
	RequestsPerSecond float64
	Burst             int
}

// ConfigFrom builds a Config from the service's OpenAI settings.
func ConfigFrom(c config.OpenAIConfig, dimension int) Config {
	return Config{
		BaseURL:           c.BaseURL,
		Model:             c.EmbeddingModel,
		APIKey:            c.APIKey.Value(),
		BatchSize:         c.EmbeddingBatchSize,
		Dimension:         dimension,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Dimension < 0 {
		return fmt.Errorf("%w: dimension must be >= 0", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMeterProvider sets where embedding metrics are recorded.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithEmbedder replaces the OpenAI-backed embedder, typically in tests.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// Service generates embeddings.
type Service struct {
	config        Config
	embedder      embeddings.Embedder
	limiter       *rate.Limiter
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	metrics       *Metrics
}

// NewService creates an embedding service. Unless WithEmbedder is given, an
// OpenAI client is constructed from cfg; no request is made until first use.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	s := &Service{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}
	s.metrics = NewMetrics(s.meterProvider.Meter(instrumentationName), s.logger)

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if s.embedder == nil {
		e, err := newOpenAIEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		s.embedder = e
	}
	return s, nil
}

func newOpenAIEmbedder(cfg Config) (embeddings.Embedder, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	var embedOpts []embeddings.Option
	if cfg.BatchSize > 0 {
		embedOpts = append(embedOpts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(llm, embedOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

// Dimension returns the configured vector length.
func (s *Service) Dimension() int {
	return s.config.Dimension
}

// Embed generates the embedding for one text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}
	if genErr = s.wait(ctx); genErr != nil {
		return nil, genErr
	}

	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		genErr = fmt.Errorf("%w: embedding query: %w", v1.ErrUpstream, err)
		s.logger.Warn("embedding request failed", zap.String("model", s.config.Model), zap.Error(err))
		return nil, genErr
	}
	if genErr = s.checkDimension(vec); genErr != nil {
		return nil, genErr
	}
	return vec, nil
}

// EmbedBatch generates embeddings for texts, one vector per text in order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		s.metrics.RecordGeneration(ctx, s.config.Model, "embed_batch", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}
	if genErr = s.wait(ctx); genErr != nil {
		return nil, genErr
	}

	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		genErr = fmt.Errorf("%w: embedding documents: %w", v1.ErrUpstream, err)
		s.logger.Warn("embedding batch failed",
			zap.String("model", s.config.Model),
			zap.Int("batch_size", len(texts)),
			zap.Error(err),
		)
		return nil, genErr
	}
	if len(vecs) != len(texts) {
		genErr = fmt.Errorf("%w: got %d embeddings for %d texts", v1.ErrUpstream, len(vecs), len(texts))
		return nil, genErr
	}
	for _, vec := range vecs {
		if genErr = s.checkDimension(vec); genErr != nil {
			return nil, genErr
		}
	}
	return vecs, nil
}

// EmbedQuery is Embed under the langchaingo Embedder name.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.Embed(ctx, text)
}

// EmbedDocuments is EmbedBatch under the langchaingo Embedder name.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return s.EmbedBatch(ctx, texts)
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: waiting for rate limiter: %w", v1.ErrUpstream, err)
	}
	return nil
}

func (s *Service) checkDimension(vec []float32) error {
	if s.config.Dimension > 0 && len(vec) != s.config.Dimension {
		return fmt.Errorf("%w: %w: got %d, want %d", v1.ErrUpstream, ErrDimensionMismatch, len(vec), s.config.Dimension)
	}
	return nil
}
