package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/ragtest"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

func newGenerator(t *testing.T, fake *ragtest.FakeLLM) *llm.Generator {
	t.Helper()
	g, err := llm.New(llm.Config{Temperature: 0.7}, llm.WithModel(fake))
	require.NoError(t, err)
	return g
}

func TestGenerateResponse(t *testing.T) {
	fake := &ragtest.FakeLLM{Answer: "Paris."}
	g := newGenerator(t, fake)

	docs := []vectorstore.Result{
		{ID: "1", Content: "The capital of France is Paris.", Metadata: document.Metadata{"source": "geo"}, Similarity: 0.9},
		{ID: "2", Content: "France is in Europe.", Similarity: 0.5},
	}

	resp, err := g.GenerateResponse(context.Background(), "What is the capital of France?", docs)
	require.NoError(t, err)
	assert.Equal(t, "Paris.", resp.Answer)
	assert.Equal(t, docs, resp.Sources)

	prompt := fake.LastPrompt()
	assert.Contains(t, prompt, "Context:\nThe capital of France is Paris.\n\nFrance is in Europe.\n")
	assert.Contains(t, prompt, "Question: What is the capital of France?\n")
	assert.Contains(t, prompt, "You are a helpful AI assistant.")
	assert.True(t, len(prompt) > 0 && prompt[len(prompt)-len("Answer: "):] == "Answer: ")

	opts := fake.LastOptions()
	assert.InDelta(t, 0.7, opts.Temperature, 1e-9)
}

func TestGenerateResponse_ZeroTemperature(t *testing.T) {
	fake := &ragtest.FakeLLM{Answer: "Paris."}
	g, err := llm.New(llm.Config{Temperature: 0}, llm.WithModel(fake))
	require.NoError(t, err)

	_, err = g.GenerateResponse(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Zero(t, fake.LastOptions().Temperature)
}

func TestGenerateResponse_EmptyContextStillCallsModel(t *testing.T) {
	fake := &ragtest.FakeLLM{Answer: "I don't know."}
	g := newGenerator(t, fake)

	resp, err := g.GenerateResponse(context.Background(), "Who are you?", nil)
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", resp.Answer)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)

	require.Len(t, fake.Prompts(), 1)
	assert.Contains(t, fake.LastPrompt(), "Context:\n\n\nQuestion: Who are you?")
}

func TestGenerateResponse_ModelFailure(t *testing.T) {
	fake := &ragtest.FakeLLM{Err: errors.New("boom")}
	g := newGenerator(t, fake)

	_, err := g.GenerateResponse(context.Background(), "q", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, v1.ErrUpstream)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, fake.Prompts(), 1, "no retries")
}

func TestRenderPrompt_DoesNotEscape(t *testing.T) {
	g := newGenerator(t, &ragtest.FakeLLM{})

	prompt, err := g.RenderPrompt(`a < b && "c"`, []vectorstore.Result{{Content: "<tag>"}})
	require.NoError(t, err)
	assert.Contains(t, prompt, `Question: a < b && "c"`)
	assert.Contains(t, prompt, "<tag>")
}

func TestNew_Validation(t *testing.T) {
	_, err := llm.New(llm.Config{Temperature: 3}, llm.WithModel(&ragtest.FakeLLM{}))
	assert.Error(t, err)

	_, err = llm.New(llm.Config{Temperature: 0.7})
	assert.Error(t, err, "model name required without an injected model")

	g, err := llm.New(llm.Config{Model: "gpt-3.5-turbo", APIKey: "sk-test", Temperature: 0.7})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "", llm.BuildContext(nil))
	assert.Equal(t, "a\n\nb", llm.BuildContext([]vectorstore.Result{{Content: "a"}, {Content: "b"}}))
}
