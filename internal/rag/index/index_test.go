package index

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/TranscriptRAG/internal/rag/ingest"
	"github.com/akolanti/TranscriptRAG/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const broadcasting = "The lecture traced the history of broadcasting. Public service radio grew out of the wireless clubs. " +
	"Listeners wrote letters to the corporation about the programmes they heard."

const physics = "Quantum mechanics describes the behaviour of particles and waves. " +
	"The uncertainty principle limits what can be measured about a particle at once."

func newIndex(t *testing.T) *Index {
	t.Helper()
	ix := New(memoryDB.New("test"), hashEmbedding.New(256))
	require.NoError(t, ix.Connect(context.Background()))
	return ix
}

func chunksOf(id string, text string) []commonModels.DocChunk {
	return ingest.PrepareChunks(commonModels.Document{Id: id, Name: id, Text: text}, 60, 10)
}

func TestIndex_ReindexDoesNotGrow(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	chunks := chunksOf("doc1", broadcasting)
	require.NotEmpty(t, chunks)

	n, err := ix.UpsertDocument(ctx, "doc1", chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), n)

	_, err = ix.UpsertDocument(ctx, "doc1", chunks)
	require.NoError(t, err)

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), count)
}

func TestIndex_ShorterReindexEvictsStaleChunks(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	_, err := ix.UpsertDocument(ctx, "doc1", chunksOf("doc1", broadcasting))
	require.NoError(t, err)

	short := chunksOf("doc1", "A single short sentence.")
	require.Len(t, short, 1)
	_, err = ix.UpsertDocument(ctx, "doc1", short)
	require.NoError(t, err)

	count, _ := ix.Count(ctx)
	assert.Equal(t, 1, count)
}

func TestIndex_SearchRanksRelevantDocumentFirst(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()
	_, err := ix.UpsertDocument(ctx, "doc1", chunksOf("doc1", broadcasting))
	require.NoError(t, err)
	_, err = ix.UpsertDocument(ctx, "doc2", chunksOf("doc2", physics))
	require.NoError(t, err)

	res, err := ix.Search(ctx, "quantum mechanics", 3, commonModels.SourceFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "doc2", res[0].Metadata.Source)
	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
	}
}

func TestIndex_FilterNeverLeaks(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()
	_, _ = ix.UpsertDocument(ctx, "doc1", chunksOf("doc1", broadcasting))
	_, _ = ix.UpsertDocument(ctx, "doc2", chunksOf("doc2", physics))

	f, err := commonModels.NewSourceFilter("doc1")
	require.NoError(t, err)

	res, err := ix.Search(ctx, "quantum mechanics", 10, f)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	for _, r := range res {
		assert.Equal(t, "doc1", r.Metadata.Source)
	}
}

func TestIndex_ClearAndStats(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()
	_, _ = ix.UpsertDocument(ctx, "doc1", chunksOf("doc1", broadcasting))

	require.NoError(t, ix.Clear(ctx))
	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChunks)
	assert.Equal(t, "memory:test", stats.Backend)

	// still writable after a clear
	_, err = ix.UpsertDocument(ctx, "doc2", chunksOf("doc2", physics))
	require.NoError(t, err)
}

func TestIndex_RejectsForeignChunks(t *testing.T) {
	ix := newIndex(t)
	_, err := ix.UpsertDocument(context.Background(), "doc1", chunksOf("doc2", physics))
	assert.Error(t, err)

	_, err = ix.UpsertDocument(context.Background(), "", nil)
	assert.True(t, errors.Is(err, commonModels.ErrEmptySourceID))
}

// flakyEmbedder fails every batch call while failing is set.
type flakyEmbedder struct {
	*hashEmbedding.Embedder
	failing atomic.Bool
}

func (f *flakyEmbedder) BatchEmbedding(ctx context.Context, chunks []string, huge bool) ([][]float32, error) {
	if f.failing.Load() {
		return nil, errors.New("429 resource exhausted")
	}
	return f.Embedder.BatchEmbedding(ctx, chunks, huge)
}

func TestIndex_FailedEmbeddingKeepsPreviousVersion(t *testing.T) {
	emb := &flakyEmbedder{Embedder: hashEmbedding.New(256)}
	ix := New(memoryDB.New("test"), emb)
	ctx := context.Background()
	require.NoError(t, ix.Connect(ctx))

	chunks := chunksOf("doc1", broadcasting)
	_, err := ix.UpsertDocument(ctx, "doc1", chunks)
	require.NoError(t, err)

	emb.failing.Store(true)
	_, err = ix.UpsertDocument(ctx, "doc1", chunksOf("doc1", physics))
	require.Error(t, err)

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), count)
}

// gatedEmbedder blocks its first batch call until release is closed.
type gatedEmbedder struct {
	*hashEmbedding.Embedder
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedEmbedder() *gatedEmbedder {
	return &gatedEmbedder{
		Embedder: hashEmbedding.New(256),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (g *gatedEmbedder) BatchEmbedding(ctx context.Context, chunks []string, huge bool) ([][]float32, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.Embedder.BatchEmbedding(ctx, chunks, huge)
}

func TestIndex_ConcurrentWritesDoNotInterleave(t *testing.T) {
	ctx := context.Background()
	oldVersion := chunksOf("doc1", broadcasting)
	require.Greater(t, len(oldVersion), 1)
	newVersion := chunksOf("doc1", "A single short sentence.")
	require.Len(t, newVersion, 1)

	t.Run("later reindex wins", func(t *testing.T) {
		emb := newGatedEmbedder()
		ix := New(memoryDB.New("test"), emb)
		require.NoError(t, ix.Connect(ctx))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = ix.UpsertDocument(ctx, "doc1", oldVersion)
		}()
		<-emb.entered
		go func() {
			defer wg.Done()
			_, _ = ix.UpsertDocument(ctx, "doc1", newVersion)
		}()
		close(emb.release)
		wg.Wait()

		count, err := ix.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("clear waits for a running reindex", func(t *testing.T) {
		emb := newGatedEmbedder()
		ix := New(memoryDB.New("test"), emb)
		require.NoError(t, ix.Connect(ctx))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = ix.UpsertDocument(ctx, "doc1", oldVersion)
		}()
		<-emb.entered
		go func() {
			defer wg.Done()
			_ = ix.Clear(ctx)
		}()
		close(emb.release)
		wg.Wait()

		count, err := ix.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
