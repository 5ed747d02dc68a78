package store

import (
	"context"
	"testing"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreParamsRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.LoadParams(ctx, "engine-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveParams(ctx, "engine-1", []byte("abc")))
	got, err := s.LoadParams(ctx, "engine-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemoryStoreExampleUpsertAndSample(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ex := shgat.TrainingExample{ID: "ex-1", IntentEmbedding: []float64{1, 2}, CapabilityID: "alpha", Label: 1.0}
	require.NoError(t, s.SaveExample(ctx, "k", ex, 0.1))
	require.NoError(t, s.SaveExample(ctx, "k", ex, 0.9))

	assert.Len(t, s.examples["k"], 1)

	samples, err := s.FetchPrioritySample(ctx, "k", 5)
	require.NoError(t, err)
	assert.Len(t, samples, 5)

	require.NoError(t, s.UpdatePriority(ctx, "k", "ex-1", 0.5))
	err = s.UpdatePriority(ctx, "k", "missing", 0.5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreFetchPrioritySampleEmpty(t *testing.T) {
	s := NewMemoryStore()
	samples, err := s.FetchPrioritySample(context.Background(), "k", 3)
	require.NoError(t, err)
	assert.Empty(t, samples)
}
