package reembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/ragline/ai/mock"
	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/storage"
	"github.com/poiesic/ragline/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = "old"

func setupStore(t *testing.T, n int) *badger.Store {
	t.Helper()
	ctx := context.Background()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureIndex(ctx, source, 2, core.MetricCosine))
	for i := range n {
		require.NoError(t, store.Upsert(ctx, source, &core.VectorRecord{
			ID:       fmt.Sprintf("rec-%02d", i),
			Vector:   []float32{1, float32(i)},
			Metadata: core.Metadata{Text: fmt.Sprintf("chunk text %d", i), Topic: "knowledge", ChunkCount: 1},
		}))
	}
	return store
}

func collect(t *testing.T, store *badger.Store, index string) []*core.VectorRecord {
	t.Helper()
	var out []*core.VectorRecord
	require.NoError(t, store.Scan(context.Background(), index, 50, func(batch []*core.VectorRecord) error {
		out = append(out, batch...)
		return nil
	}))
	return out
}

func TestReembedder_NewTarget(t *testing.T) {
	store := setupStore(t, 10)
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 8

	var buf bytes.Buffer
	r, err := NewReembedder(store, embedder,
		WithSource(source),
		WithTarget("new", 8, core.MetricCosine),
		WithBatchSize(3),
		WithProgress(&buf))
	require.NoError(t, err)

	written, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, written)
	assert.Equal(t, 4, embedder.CallCount())
	assert.Contains(t, buf.String(), "10/10")

	records := collect(t, store, "new")
	require.Len(t, records, 10)
	for _, rec := range records {
		assert.Len(t, rec.Vector, 8)
		assert.Equal(t, "knowledge", rec.Metadata.Topic)
	}

	// The source index is untouched.
	for _, rec := range collect(t, store, source) {
		assert.Len(t, rec.Vector, 2)
	}
}

func TestReembedder_InPlace(t *testing.T) {
	store := setupStore(t, 4)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0, 1}
		}
		return out, nil
	}

	r, err := NewReembedder(store, embedder, WithSource(source))
	require.NoError(t, err)
	written, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, written)

	for _, rec := range collect(t, store, source) {
		assert.InDelta(t, 0, rec.Vector[0], 1e-6)
		assert.InDelta(t, 1, rec.Vector[1], 1e-6)
	}
}

func TestReembedder_SkipsRecordsWithoutText(t *testing.T) {
	store := setupStore(t, 2)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, source, &core.VectorRecord{ID: "empty", Vector: []float32{1, 1}}))

	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 2
	r, err := NewReembedder(store, embedder, WithSource(source))
	require.NoError(t, err)

	written, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
}

func TestReembedder_EmptyIndex(t *testing.T) {
	store := setupStore(t, 0)
	embedder := mock.NewMockEmbedder()
	r, err := NewReembedder(store, embedder, WithSource(source))
	require.NoError(t, err)

	written, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Zero(t, embedder.CallCount())
}

func TestReembedder_EmbedFailureStops(t *testing.T) {
	store := setupStore(t, 6)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("model offline")
	}

	r, err := NewReembedder(store, embedder,
		WithSource(source),
		WithTarget("new", 2, core.MetricCosine),
		WithBatchSize(2),
		WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	written, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
	assert.Zero(t, written)
	assert.Equal(t, 2, embedder.CallCount())
}

func TestReembedder_DimensionMismatchInPlace(t *testing.T) {
	store := setupStore(t, 2)
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 16

	r, err := NewReembedder(store, embedder, WithSource(source), WithRetry(1, time.Millisecond))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreWrite)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestReembedder_Cancelled(t *testing.T) {
	store := setupStore(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := NewReembedder(store, mock.NewMockEmbedder(), WithSource(source))
	require.NoError(t, err)
	_, err = r.Run(ctx)
	assert.Error(t, err)
}

type plainStore struct{ storage.VectorStore }

func TestNewReembedder_Validation(t *testing.T) {
	store := setupStore(t, 0)
	embedder := mock.NewMockEmbedder()

	_, err := NewReembedder(nil, embedder)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)

	_, err = NewReembedder(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewReembedder(plainStore{store}, embedder)
	assert.ErrorIs(t, err, ErrScanUnsupported)

	_, err = NewReembedder(store, embedder, WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewReembedder(store, embedder, WithTarget("", 8, core.MetricCosine))
	assert.Error(t, err)
}
