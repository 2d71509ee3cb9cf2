package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
	"github.com/akolanti/TranscriptRAG/internal/rag/embedding"
	"github.com/akolanti/TranscriptRAG/internal/rag/vectorDB"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

// Index owns the chunk collection. Writes for one document always evict that
// document's previous chunks first, so a reindex never accumulates stale ones.
// Writes are serialised: one upsert or clear runs at a time.
type Index struct {
	writeMu   sync.Mutex
	store     vectorDB.Store
	embedder  embedding.Embedder
	batchSize int
	logger    *logger_i.Logger
}

func New(store vectorDB.Store, embedder embedding.Embedder) *Index {
	return &Index{
		store:     store,
		embedder:  embedder,
		batchSize: config.EmbeddingBatch,
		logger:    logger_i.NewLogger("index").With("backend", store.Name()),
	}
}

// Connect prepares the backing collection for the embedder's dimension.
func (ix *Index) Connect(ctx context.Context) error {
	if err := ix.store.EnsureCollection(ctx, ix.embedder.Dimension()); err != nil {
		return fmt.Errorf("connecting index: %w", err)
	}
	ix.refreshGauge(ctx)
	return nil
}

// UpsertDocument replaces every stored chunk of documentId with chunks.
// All chunks are embedded before anything is evicted, so a failed embedding
// leaves the previous version in place. It returns how many chunks were written.
func (ix *Index) UpsertDocument(ctx context.Context, documentId string, chunks []commonModels.DocChunk) (int, error) {
	if documentId == "" {
		return 0, commonModels.ErrEmptySourceID
	}
	log := ix.logger.FromContext(ctx).With("document", documentId)
	for _, c := range chunks {
		if c.DocumentId != documentId {
			return 0, fmt.Errorf("chunk %s belongs to %q, not %q", c.ChunkId, c.DocumentId, documentId)
		}
	}

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	batches, err := ix.embedChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding %s: %w", documentId, err)
	}

	if err := ix.store.DeleteBySource(ctx, documentId); err != nil {
		return 0, fmt.Errorf("evicting %s: %w", documentId, err)
	}
	if len(chunks) == 0 {
		log.Debug("no chunks to index")
		ix.refreshGauge(ctx)
		return 0, nil
	}

	written := 0
	for _, b := range batches {
		if err := ix.store.UpsertBatch(ctx, b.chunks, b.vectors); err != nil {
			return written, fmt.Errorf("writing %s: %w", documentId, err)
		}
		written += len(b.chunks)
	}

	log.Info("indexed document", "chunks", written)
	ix.refreshGauge(ctx)
	return written, nil
}

type embeddedBatch struct {
	chunks  []commonModels.DocChunk
	vectors [][]float32
}

func (ix *Index) embedChunks(ctx context.Context, chunks []commonModels.DocChunk) ([]embeddedBatch, error) {
	// huge documents go to the embedder in one piece so it can use a batch job
	huge := len(chunks) >= config.HugeDataSetChunks
	batchSize := ix.batchSize
	if huge {
		batchSize = len(chunks)
	}

	var out []embeddedBatch
	for start := 0; start < len(chunks); start += batchSize {
		batch := chunks[start:min(start+batchSize, len(chunks))]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := ix.embedBatch(ctx, texts, huge)
		if err != nil {
			return nil, err
		}
		out = append(out, embeddedBatch{chunks: batch, vectors: vectors})
	}
	return out, nil
}

// Search returns up to k chunks ranked by ascending distance to query,
// restricted to the filter's documents when it is non-empty.
func (ix *Index) Search(ctx context.Context, query string, k int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error) {
	if k <= 0 {
		return nil, errors.New("k must be greater than zero")
	}

	start := time.Now()
	vector, err := ix.embedder.GetEmbedding(ctx, query)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	start = time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	results, err := ix.store.Search(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return results, nil
}

func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

// Clear drops every chunk. The collection stays usable afterwards.
func (ix *Index) Clear(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	if err := ix.store.Clear(ctx); err != nil {
		return err
	}
	ix.logger.FromContext(ctx).Warn("index cleared")
	metrics.SetIndexedChunks(0)
	return nil
}

func (ix *Index) Stats(ctx context.Context) (commonModels.IndexStats, error) {
	n, err := ix.Count(ctx)
	if err != nil {
		return commonModels.IndexStats{}, err
	}
	return commonModels.IndexStats{
		CollectionName: config.CollectionName,
		TotalChunks:    n,
		Backend:        ix.store.Name(),
	}, nil
}

func (ix *Index) Close() error {
	return ix.store.Close()
}

func (ix *Index) embedBatch(ctx context.Context, texts []string, huge bool) ([][]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start)) }()

	vectors, err := ix.embedder.BatchEmbedding(ctx, texts, huge)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: embedded %d of %d texts", commonModels.ErrVectorMismatch, len(vectors), len(texts))
	}
	return vectors, nil
}

func (ix *Index) refreshGauge(ctx context.Context) {
	n, err := ix.store.Count(ctx)
	if err != nil {
		ix.logger.Warn("could not count chunks", "error", err)
		return
	}
	metrics.SetIndexedChunks(n)
}
