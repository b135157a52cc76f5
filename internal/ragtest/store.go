package ragtest

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// StoredDoc is one document held by MemoryStore.
type StoredDoc struct {
	ID       string
	Content  string
	Metadata document.Metadata
	vector   []float32
}

// MemoryStore is a brute-force in-memory vectorstore.Store with failure
// injection.
type MemoryStore struct {
	Embedder vectorstore.Embedder

	mu        sync.Mutex
	nextID    int
	docs      []StoredDoc
	searches  int
	failAdd   func(content string) bool
	searchErr error
}

var _ vectorstore.Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store embedding with a HashEmbedder of dim.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{Embedder: NewHashEmbedder(dim)}
}

// FailAddWhen makes AddDocument return ErrInjected for matching content.
func (s *MemoryStore) FailAddWhen(fn func(content string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAdd = fn
}

// FailSearch makes SimilaritySearch return err.
func (s *MemoryStore) FailSearch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchErr = err
}

// Docs returns a snapshot of the stored documents in insertion order.
func (s *MemoryStore) Docs() []StoredDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredDoc(nil), s.docs...)
}

// Searches returns how many searches ran.
func (s *MemoryStore) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

func (s *MemoryStore) AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error) {
	if content == "" {
		return "", vectorstore.ErrEmptyContent
	}
	s.mu.Lock()
	fail := s.failAdd != nil && s.failAdd(content)
	s.mu.Unlock()
	if fail {
		return "", ErrInjected
	}

	vec, err := s.Embedder.EmbedQuery(ctx, content)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := strconv.Itoa(s.nextID)
	s.docs = append(s.docs, StoredDoc{ID: id, Content: content, Metadata: metadata.Clone(), vector: vec})
	return id, nil
}

func (s *MemoryStore) SimilaritySearch(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	if k < 1 {
		return nil, vectorstore.ErrInvalidK
	}
	s.mu.Lock()
	s.searches++
	searchErr := s.searchErr
	s.mu.Unlock()
	if searchErr != nil {
		return nil, searchErr
	}

	q, err := s.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	results := make([]vectorstore.Result, 0, len(s.docs))
	for _, d := range s.docs {
		results = append(results, vectorstore.Result{
			ID:         d.ID,
			Content:    d.Content,
			Metadata:   d.Metadata,
			Similarity: cosine(q, d.vector),
		})
	}
	s.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.docs {
		if d.ID == id {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Bootstrap(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
