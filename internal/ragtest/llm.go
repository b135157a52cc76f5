package ragtest

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeLLM is an llms.Model that records prompts and returns a canned answer.
type FakeLLM struct {
	Answer string
	Err    error

	mu      sync.Mutex
	prompts []string
	options []llms.CallOptions
}

var _ llms.Model = (*FakeLLM)(nil)

// GenerateContent records the text parts of messages as one prompt.
func (f *FakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt string
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				prompt += tc.Text
			}
		}
	}

	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, opts)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.Answer}}}, nil
}

// Call implements the single-prompt form of llms.Model.
func (f *FakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

// Prompts returns every prompt received so far.
func (f *FakeLLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// LastPrompt returns the most recent prompt, or "".
func (f *FakeLLM) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// LastOptions returns the call options of the most recent call.
func (f *FakeLLM) LastOptions() llms.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.options) == 0 {
		return llms.CallOptions{}
	}
	return f.options[len(f.options)-1]
}
