package memoryDB

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

type entry struct {
	chunk  commonModels.DocChunk
	vector []float32
	seq    int
}

// Store is an in-process vector store with brute-force cosine search.
// Used for tests and for running without a vector database.
type Store struct {
	mu        sync.RWMutex
	name      string
	dimension int
	entries   map[string]entry
	seq       int
}

func New(name string) *Store {
	return &Store{name: name, entries: make(map[string]entry)}
}

func (s *Store) Name() string { return "memory:" + s.name }

func (s *Store) Close() error { return nil }

func (s *Store) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: collection has %d, requested %d", commonModels.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Store) DeleteBySource(_ context.Context, sourceId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.chunk.DocumentId == sourceId {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *Store) UpsertBatch(_ context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: got %d chunks but %d vectors", commonModels.ErrVectorMismatch, len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("collection not initialised")
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: vector has %d dimensions, collection has %d", commonModels.ErrVectorMismatch, len(v), s.dimension)
		}
	}
	for i, c := range chunks {
		s.seq++
		s.entries[c.ChunkId] = entry{chunk: c, vector: slices.Clone(vectors[i]), seq: s.seq}
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, limit int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		e    entry
		dist float64
	}
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if !filter.Allows(e.chunk.DocumentId) {
			continue
		}
		candidates = append(candidates, scored{e: e, dist: 1 - cosine(vector, e.vector)})
	}
	slices.SortFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.e.seq, b.e.seq)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]commonModels.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, commonModels.SearchResult{
			ChunkId:  c.e.chunk.ChunkId,
			Text:     c.e.chunk.Text,
			Metadata: c.e.chunk.SearchMetadata(),
			Distance: c.dist,
		})
	}
	return results, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	return nil
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
