// Package llm answers questions from retrieved context with a chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// PromptTemplate is rendered with the joined context documents and the
// user's question.
const PromptTemplate = "You are a helpful AI assistant. Use the following pieces of context to answer the question at the end.\n" +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n" +
	"If the question is not related to the context, politely respond that you are tuned to only answer questions about the provided context.\n" +
	"\n" +
	"Context:\n" +
	"{{.context}}\n" +
	"\n" +
	"Question: {{.question}}\n" +
	"\n" +
	"Answer: "

var tracer = otel.Tracer("github.com/fyrsmithlabs/ragd/internal/llm")

// Config holds chat model settings.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
}

// ConfigFrom builds a Config from the service's OpenAI settings.
func ConfigFrom(c config.OpenAIConfig) Config {
	return Config{
		Model:       c.ChatModel,
		APIKey:      c.APIKey.Value(),
		BaseURL:     c.BaseURL,
		Temperature: c.Temperature,
	}
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithModel replaces the OpenAI chat model, typically in tests.
func WithModel(m llms.Model) Option {
	return func(g *Generator) { g.model = m }
}

// Response is a generated answer and the documents it was grounded on.
type Response struct {
	Answer  string
	Sources []vectorstore.Result
}

// Generator renders the prompt and calls the chat model.
type Generator struct {
	model       llms.Model
	prompt      prompts.PromptTemplate
	temperature float64
	logger      *zap.Logger
}

// New creates a Generator. Unless WithModel is given, an OpenAI chat client
// is constructed from cfg.
func New(cfg Config, opts ...Option) (*Generator, error) {
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be within [0, 2], got %v", cfg.Temperature)
	}

	g := &Generator{
		prompt:      prompts.NewPromptTemplate(PromptTemplate, []string{"context", "question"}),
		temperature: cfg.Temperature,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}

	if g.model == nil {
		if cfg.Model == "" {
			return nil, errors.New("chat model required")
		}
		openaiOpts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			openaiOpts = append(openaiOpts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err := openai.New(openaiOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating chat client: %w", err)
		}
		g.model = m
	}
	return g, nil
}

// BuildContext joins document contents with blank lines, in order.
func BuildContext(docs []vectorstore.Result) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

// RenderPrompt returns the prompt sent for query and docs.
func (g *Generator) RenderPrompt(query string, docs []vectorstore.Result) (string, error) {
	prompt, err := g.prompt.Format(map[string]any{
		"context":  BuildContext(docs),
		"question": query,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return prompt, nil
}

// GenerateResponse answers query from docs. An empty docs slice still
// produces a call with empty context.
func (g *Generator) GenerateResponse(ctx context.Context, query string, docs []vectorstore.Result) (*Response, error) {
	ctx, span := tracer.Start(ctx, "llm.GenerateResponse")
	defer span.End()
	span.SetAttributes(attribute.Int("llm.context_documents", len(docs)))

	prompt, err := g.RenderPrompt(query, docs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("chat completion failed", zap.Error(err))
		return nil, fmt.Errorf("%w: generating answer: %w", v1.ErrUpstream, err)
	}

	g.logger.Debug("answer generated",
		zap.Int("context_documents", len(docs)),
		zap.Int("answer_length", len(answer)),
	)

	sources := docs
	if sources == nil {
		sources = []vectorstore.Result{}
	}
	return &Response{Answer: answer, Sources: sources}, nil
}
