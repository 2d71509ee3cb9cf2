package vectorDB

import (
	"context"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

// Store is a vector-similarity collection of transcript chunks. Every chunk
// carries its owning document id as the "source" field, which both
// DeleteBySource and the Search filter match on.
type Store interface {
	// EnsureCollection creates the collection if missing. It is the explicit connect step.
	EnsureCollection(ctx context.Context, dimension int) error
	DeleteBySource(ctx context.Context, sourceId string) error
	UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error
	// Search returns up to limit chunks nearest to vector among those the filter allows.
	Search(ctx context.Context, vector []float32, limit int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Name() string
	Close() error
}
