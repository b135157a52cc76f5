package vectorstore_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/ragtest"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

func TestInstrument_CountsByResult(t *testing.T) {
	inner, embedder := newChromem(t, "")
	store := vectorstore.Instrument(inner, "instrument-test")
	ctx := context.Background()

	success := vectorstore.OperationsTotal.WithLabelValues("instrument-test", "AddDocument", "success")
	invalid := vectorstore.OperationsTotal.WithLabelValues("instrument-test", "AddDocument", "invalid")
	upstream := vectorstore.OperationsTotal.WithLabelValues("instrument-test", "SimilaritySearch", "upstream_error")
	before := [3]float64{testutil.ToFloat64(success), testutil.ToFloat64(invalid), testutil.ToFloat64(upstream)}

	_, err := store.AddDocument(ctx, "counted", nil)
	require.NoError(t, err)
	_, err = store.AddDocument(ctx, "", nil)
	require.Error(t, err)

	embedder.FailWhen(func(string) bool { return true })
	_, err = store.SimilaritySearch(ctx, "counted", 1)
	require.Error(t, err)

	assert.Equal(t, before[0]+1, testutil.ToFloat64(success))
	assert.Equal(t, before[1]+1, testutil.ToFloat64(invalid))
	assert.Equal(t, before[2]+1, testutil.ToFloat64(upstream))
}

func TestInstrument_PassesResultsThrough(t *testing.T) {
	inner, _ := newChromem(t, "")
	store := vectorstore.Instrument(inner, "passthrough-test")
	ctx := context.Background()

	id, err := store.AddDocument(ctx, "wrapped document", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	results, err := store.SimilaritySearch(ctx, "wrapped document", 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)

	require.NoError(t, store.DeleteDocument(ctx, id))
	require.NoError(t, store.Bootstrap(ctx))
	require.NoError(t, store.Close())
}

func TestNew_Factory(t *testing.T) {
	cfg := &config.Config{
		VectorStore: config.VectorStoreConfig{
			Provider:   config.ProviderChromem,
			Dimension:  testDim,
			Collection: "documents",
		},
	}
	store, err := vectorstore.New(context.Background(), cfg, ragtest.NewHashEmbedder(testDim), nil)
	require.NoError(t, err)
	require.NoError(t, store.Bootstrap(context.Background()))

	cfg.VectorStore.Provider = "sqlite"
	_, err = vectorstore.New(context.Background(), cfg, ragtest.NewHashEmbedder(testDim), nil)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)

	cfg.VectorStore.Provider = config.ProviderPostgres
	_, err = vectorstore.New(context.Background(), cfg, ragtest.NewHashEmbedder(testDim), nil)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig, "postgres without a url")
}
