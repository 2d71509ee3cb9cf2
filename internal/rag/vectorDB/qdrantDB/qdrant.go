package qdrantDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	fieldSource      = "source"
	fieldContent     = "content"
	fieldDocName     = "doc_name"
	fieldChunkIndex  = "chunk_index"
	fieldTotalChunks = "total_chunks"
	fieldChunkId     = "chunk_id"
	fieldIngestedAt  = "ingested_at"
	fieldMeta        = "meta"
)

type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	Collection string
}

type Store struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
	logger     *logger_i.Logger
}

func New(cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, errors.New("empty collection name")
	}
	if cfg.Host == "" {
		cfg.Host = config.QdrantHost
	}
	if cfg.Port == 0 {
		cfg.Port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}

	return &Store{
		client:     client,
		collection: cfg.Collection,
		logger:     logger_i.NewLogger("Qdrant").With("collection", cfg.Collection),
	}, nil
}

func (db *Store) Name() string {
	return "qdrant:" + db.collection
}

func (db *Store) Close() error {
	db.logger.Info("Closing Qdrant")
	return db.client.Close()
}

func (db *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	db.dimension = uint64(dimension)

	ctx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()

	exists, err := db.client.CollectionExists(ctx, db.collection)
	if err != nil {
		return fmt.Errorf("checking qdrant collection: %w", err)
	}
	if !exists {
		return db.createCollection(ctx)
	}

	info, err := db.client.GetCollectionInfo(ctx, db.collection)
	if err != nil {
		return fmt.Errorf("reading qdrant collection %s: %w", db.collection, err)
	}
	return checkDimension(db.collection, collectionSize(info), db.dimension)
}

// collectionSize is the vector size of a single unnamed vector collection, 0 when unknown.
func collectionSize(info *qdrant.CollectionInfo) uint64 {
	return info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
}

func checkDimension(collection string, existing uint64, want uint64) error {
	if existing == 0 || existing == want {
		return nil
	}
	return fmt.Errorf("%w: qdrant collection %s holds %d-d vectors, embedder produces %d-d; drop the collection or configure another one",
		commonModels.ErrDimensionMismatch, collection, existing, want)
}

func (db *Store) createCollection(ctx context.Context) error {
	err := db.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     db.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating qdrant collection: %w", err)
	}

	// keyword index on source keeps filtered search a pre-filter, not a scan
	_, err = db.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: db.collection,
		FieldName:      fieldSource,
		FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeKeyword),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("indexing source field: %w", err)
	}
	db.logger.Info("Created qdrant collection", "dimension", db.dimension)
	return nil
}

func (db *Store) DeleteBySource(ctx context.Context, sourceId string) error {
	_, err := db.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeyword(fieldSource, sourceId)},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete for %s failed: %w", sourceId, err)
	}
	return nil
}

func (db *Store) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: got %d chunks but %d vectors", commonModels.ErrVectorMismatch, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointId(chunk.ChunkId)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				fieldContent:     chunk.Text,
				fieldSource:      chunk.DocumentId,
				fieldDocName:     chunk.DocName,
				fieldChunkIndex:  chunk.ChunkIndex,
				fieldTotalChunks: chunk.TotalChunks,
				fieldChunkId:     chunk.ChunkId,
				fieldIngestedAt:  chunk.IngestedAt.Unix(),
				fieldMeta:        toAnyMap(chunk.Metadata),
			}),
		}
	}

	_, err := db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *Store) Search(ctx context.Context, vector []float32, limit int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error) {
	log := db.logger.FromContext(ctx)
	query := &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if !filter.IsEmpty() {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeywords(fieldSource, filter.IDs()...)},
		}
	}

	hits, err := db.client.Query(ctx, query)
	if err != nil {
		log.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	results := make([]commonModels.SearchResult, 0, len(hits))
	for _, hit := range hits {
		p := hit.GetPayload()
		results = append(results, commonModels.SearchResult{
			ChunkId: p[fieldChunkId].GetStringValue(),
			Text:    p[fieldContent].GetStringValue(),
			Metadata: commonModels.ChunkMetadata{
				Source:      p[fieldSource].GetStringValue(),
				DocName:     p[fieldDocName].GetStringValue(),
				ChunkIndex:  int(p[fieldChunkIndex].GetIntegerValue()),
				TotalChunks: int(p[fieldTotalChunks].GetIntegerValue()),
				Extra:       fromStruct(p[fieldMeta]),
			},
			Distance: 1 - float64(hit.GetScore()),
		})
	}
	log.Debug("qdrant search", "hits", len(results))
	return results, nil
}

func (db *Store) Count(ctx context.Context) (int, error) {
	n, err := db.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return int(n), nil
}

func (db *Store) Clear(ctx context.Context) error {
	if db.dimension == 0 {
		return errors.New("collection dimension unknown, call EnsureCollection first")
	}
	if err := db.client.DeleteCollection(ctx, db.collection); err != nil {
		return fmt.Errorf("dropping qdrant collection: %w", err)
	}
	return db.createCollection(ctx)
}

// pointId maps a chunk id onto a stable UUID, so re-upserting a chunk overwrites it.
func pointId(chunkId string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkId)).String()
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func fromStruct(v *qdrant.Value) map[string]string {
	fields := v.GetStructValue().GetFields()
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, f := range fields {
		out[k] = f.GetStringValue()
	}
	return out
}
