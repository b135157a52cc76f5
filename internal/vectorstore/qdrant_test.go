package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/document"
)

func TestQdrantConfig_Validate(t *testing.T) {
	valid := QdrantConfig{Host: "localhost", Port: 6334, Collection: "documents", Dimension: 1536}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*QdrantConfig){
		"host":       func(c *QdrantConfig) { c.Host = "" },
		"port":       func(c *QdrantConfig) { c.Port = 70000 },
		"collection": func(c *QdrantConfig) { c.Collection = "" },
		"dimension":  func(c *QdrantConfig) { c.Dimension = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestQdrantValueRoundTrip(t *testing.T) {
	in := map[string]any{
		"title":   "notes",
		"page":    3,
		"score":   0.5,
		"whole":   2.0,
		"ok":      true,
		"missing": nil,
		"tags":    []any{"a", 1.0},
		"nested":  map[string]any{"depth": json.Number("2")},
		"meta":    document.Metadata{"inner": "x"},
	}

	qv, err := toQdrantValue(in)
	require.NoError(t, err)
	require.IsType(t, &qdrant.Value_StructValue{}, qv.GetKind())

	out, ok := fromQdrantValue(qv).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"title":   "notes",
		"page":    3.0,
		"score":   0.5,
		"whole":   2.0,
		"ok":      true,
		"missing": nil,
		"tags":    []any{"a", 1.0},
		"nested":  map[string]any{"depth": 2.0},
		"meta":    map[string]any{"inner": "x"},
	}, out)
}

func TestToQdrantValue_Unsupported(t *testing.T) {
	_, err := toQdrantValue(map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
}

func TestQdrantStore_Integration(t *testing.T) {
	host := os.Getenv("RAGD_TEST_QDRANT_HOST")
	if host == "" {
		t.Skip("RAGD_TEST_QDRANT_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := fmt.Sprintf("ragd_test_%d", time.Now().UnixNano())
	store, err := NewQdrantStore(QdrantConfig{
		Host: host, Port: 6334, Collection: collection, Dimension: 8,
	}, unitEmbedder{dim: 8}, nil)
	require.NoError(t, err)
	defer store.Close()
	defer func() { _ = store.client.DeleteCollection(context.Background(), collection) }()

	require.NoError(t, store.Bootstrap(ctx))
	require.NoError(t, store.Bootstrap(ctx))

	id, err := store.AddDocument(ctx, "alpha", document.Metadata{"chunkIndex": 1})
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, "alpha", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, id, results[0].ID)
	assert.Equal(t, "alpha", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.Equal(t, 1.0, results[0].Metadata["chunkIndex"])

	require.NoError(t, store.DeleteDocument(ctx, id))
	require.NoError(t, store.DeleteDocument(ctx, id))
}
