package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "shgat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreParamsRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.LoadParams(ctx, "engine-1")
	require.ErrorIs(t, err, ErrNotFound)

	blob := []byte("deadbeef")
	require.NoError(t, s.SaveParams(ctx, "engine-1", blob))

	got, err := s.LoadParams(ctx, "engine-1")
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestSQLiteStoreParamsKeepsNewestSnapshot(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveParams(ctx, "engine-1", []byte("v1")))
	require.NoError(t, s.SaveParams(ctx, "engine-1", []byte("v2")))

	got, err := s.LoadParams(ctx, "engine-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestSQLiteStoreExampleRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	ex := shgat.TrainingExample{
		ID:              "ex-1",
		IntentEmbedding: []float64{0.1, 0.2, 0.3},
		CapabilityID:    "alpha",
		Label:           1.0,
	}
	require.NoError(t, s.SaveExample(ctx, "engine-1", ex, 0.5))

	samples, err := s.FetchPrioritySample(ctx, "engine-1", 3)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for _, got := range samples {
		assert.Equal(t, ex.ID, got.ID)
		assert.Equal(t, ex.CapabilityID, got.CapabilityID)
		assert.Equal(t, ex.Label, got.Label)
		assert.Equal(t, ex.IntentEmbedding, got.IntentEmbedding)
	}

	require.NoError(t, s.UpdatePriority(ctx, "engine-1", "ex-1", 0.9))
	err = s.UpdatePriority(ctx, "engine-1", "missing", 0.1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreSaveExampleUpsertsByID(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	ex := shgat.TrainingExample{ID: "ex-1", IntentEmbedding: []float64{1}, CapabilityID: "alpha", Label: 1.0}
	require.NoError(t, s.SaveExample(ctx, "engine-1", ex, 0.2))

	ex.CapabilityID = "beta"
	require.NoError(t, s.SaveExample(ctx, "engine-1", ex, 0.8))

	var count int64
	require.NoError(t, s.db.Model(&trainingExampleRow{}).Where("key = ?", "engine-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	samples, err := s.FetchPrioritySample(ctx, "engine-1", 1)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "beta", samples[0].CapabilityID)
}

func TestSQLiteStoreFetchPrioritySampleEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)
	samples, err := s.FetchPrioritySample(context.Background(), "engine-1", 3)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestNewSQLiteStoreCreatesParentDirFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
