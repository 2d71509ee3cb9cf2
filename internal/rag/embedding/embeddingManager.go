package embedding

import "context"

// Embedder turns text into vectors. GetEmbedding embeds a search query,
// BatchEmbedding embeds transcript chunks for storage.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error)
	Dimension() int
}
