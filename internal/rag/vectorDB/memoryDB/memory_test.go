package memoryDB

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(doc string, i int, text string) commonModels.DocChunk {
	return commonModels.DocChunk{
		ChunkId:    commonModels.ChunkId(doc, i),
		DocumentId: doc,
		DocName:    doc,
		Text:       text,
		ChunkIndex: i,
	}
}

func seeded(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := New("test")
	require.NoError(t, s.EnsureCollection(ctx, 2))
	require.NoError(t, s.UpsertBatch(ctx,
		[]commonModels.DocChunk{chunk("a", 0, "a0"), chunk("a", 1, "a1"), chunk("b", 0, "b0")},
		[][]float32{{1, 0}, {0.8, 0.6}, {0, 1}},
	))
	return s
}

func TestStore_SearchOrdersByDistance(t *testing.T) {
	s := seeded(t)
	res, err := s.Search(context.Background(), []float32{1, 0}, 3, commonModels.SourceFilter{})
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, "a_chunk_0", res[0].ChunkId)
	assert.Equal(t, "a_chunk_1", res[1].ChunkId)
	assert.Equal(t, "b_chunk_0", res[2].ChunkId)
	assert.InDelta(t, 0.0, res[0].Distance, 1e-6)
	assert.LessOrEqual(t, res[0].Distance, res[1].Distance)
}

func TestStore_SearchHonoursFilter(t *testing.T) {
	s := seeded(t)
	f, err := commonModels.NewSourceFilter("b")
	require.NoError(t, err)

	res, err := s.Search(context.Background(), []float32{1, 0}, 5, f)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "b", res[0].Metadata.Source)
}

func TestStore_DeleteBySourceAndCount(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteBySource(ctx, "a"))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Clear(ctx))
	n, _ = s.Count(ctx)
	assert.Zero(t, n)
}

func TestStore_UpsertOverwritesSameChunkId(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertBatch(ctx, []commonModels.DocChunk{chunk("a", 0, "new")}, [][]float32{{1, 0}}))

	n, _ := s.Count(ctx)
	assert.Equal(t, 3, n)
	res, _ := s.Search(ctx, []float32{1, 0}, 1, commonModels.SourceFilter{})
	assert.Equal(t, "new", res[0].Text)
}

func TestStore_Mismatch(t *testing.T) {
	s := seeded(t)
	err := s.UpsertBatch(context.Background(), []commonModels.DocChunk{chunk("c", 0, "x")}, nil)
	assert.ErrorIs(t, err, commonModels.ErrVectorMismatch)

	err = s.UpsertBatch(context.Background(), []commonModels.DocChunk{chunk("c", 0, "x")}, [][]float32{{1, 2, 3}})
	assert.ErrorIs(t, err, commonModels.ErrVectorMismatch)
}

func TestEnsureCollection_DimensionMismatch(t *testing.T) {
	s := seeded(t)
	err := s.EnsureCollection(context.Background(), 3)
	assert.True(t, errors.Is(err, commonModels.ErrDimensionMismatch))
	assert.NoError(t, s.EnsureCollection(context.Background(), 2))
}
