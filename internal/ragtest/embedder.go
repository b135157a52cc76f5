package ragtest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// HashEmbedder maps text to a normalized bag-of-words vector. Identical
// texts get identical vectors and texts sharing words are similar.
type HashEmbedder struct {
	Dim int

	mu     sync.Mutex
	calls  int
	failOn func(text string) bool
}

// NewHashEmbedder returns an embedder producing dim-length vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

// FailWhen makes every call whose text satisfies fn return ErrInjected.
func (e *HashEmbedder) FailWhen(fn func(text string) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failOn = fn
}

// Calls returns the number of texts embedded so far.
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// EmbedQuery embeds one text.
func (e *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.calls++
	fail := e.failOn != nil && e.failOn(text)
	e.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return e.vector(text), nil
}

// EmbedDocuments embeds each text in order.
func (e *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.Dim)]++
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
