package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/customHttpClient"
	"github.com/akolanti/TranscriptRAG/internal/data/redisStore"
	"github.com/akolanti/TranscriptRAG/internal/data/store"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/jobModel"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/akolanti/TranscriptRAG/internal/rag/embedding"
	"github.com/akolanti/TranscriptRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/TranscriptRAG/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/TranscriptRAG/internal/rag/index"
	"github.com/akolanti/TranscriptRAG/internal/rag/ingest"
	"github.com/akolanti/TranscriptRAG/internal/rag/llm"
	"github.com/akolanti/TranscriptRAG/internal/rag/llm/gemini"
	"github.com/akolanti/TranscriptRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/TranscriptRAG/internal/rag/retriever"
	"github.com/akolanti/TranscriptRAG/internal/rag/vectorDB"
	"github.com/akolanti/TranscriptRAG/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/TranscriptRAG/internal/rag/vectorDB/pgvectorDB"
	"github.com/akolanti/TranscriptRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/TranscriptRAG/internal/session"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

// App holds every long-lived component, built once from Settings.
type App struct {
	Settings  config.Settings
	Index     *index.Index
	Retriever *retriever.Retriever
	Documents *ingest.TranscriptDirectory
	Answerer  rag.Service
	Sessions  *session.Manager

	httpClient *http.Client
	closers    []func() error
	logger     *logger_i.Logger
}

// Build connects the configured backends. Anything already opened is closed
// again when a later step fails.
func Build(ctx context.Context, s config.Settings) (_ *App, err error) {
	a := &App{
		Settings:   s,
		Documents:  ingest.NewTranscriptDirectory(s.TranscriptsDir),
		httpClient: customHttpClient.New(),
		logger:     logger_i.NewLogger("App"),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	embedder, err := a.buildEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	vectors, err := a.buildVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Index = index.New(vectors, embedder)
	a.closers = append(a.closers, a.Index.Close)
	if err := a.Index.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting vector index %s: %w", vectors.Name(), err)
	}

	a.Retriever = retriever.New(a.Index, retriever.Options{
		ChunkSize:    s.Chunk.Size,
		ChunkOverlap: s.Chunk.Overlap,
		TopK:         s.TopK,
	})

	provider, err := a.buildProvider(ctx)
	if err != nil {
		return nil, err
	}
	a.Answerer = rag.NewService(a.Retriever, provider)

	repo, err := a.buildSessionRepository(ctx)
	if err != nil {
		return nil, err
	}
	a.Sessions = session.NewManager(repo, s.ExportsDir)
	a.closers = append(a.closers, a.Sessions.Close)

	a.logger.Info("Components ready",
		"vectorStore", vectors.Name(),
		"embedding", s.Models.Embedding,
		"answererReady", a.Answerer.IsReady(),
	)
	return a, nil
}

func (a *App) buildEmbedder(ctx context.Context) (embedding.Embedder, error) {
	s := a.Settings
	if s.Models.Embedding == config.EmbeddingHash {
		return hashEmbedding.New(config.HashEmbeddingDimension), nil
	}
	if s.Models.GoogleAPIKey == "" {
		a.logger.Warn("GOOGLE_AI_API_KEY not set, using the local hashing embedder")
		return hashEmbedding.New(config.HashEmbeddingDimension), nil
	}
	return googleEmbedding.New(ctx, googleEmbedding.Config{
		APIKey:     s.Models.GoogleAPIKey,
		Model:      s.Models.EmbeddingModel,
		HTTPClient: a.httpClient,
	})
}

func (a *App) buildVectorStore(ctx context.Context) (vectorDB.Store, error) {
	s := a.Settings
	switch s.VectorStore {
	case config.VectorStoreMemory:
		return memoryDB.New(s.Qdrant.Collection), nil
	case config.VectorStorePostgres:
		return pgvectorDB.New(ctx, s.PostgresDSN, s.Qdrant.Collection)
	default:
		return qdrantDB.New(qdrantDB.Config{
			Host:       s.Qdrant.Host,
			Port:       s.Qdrant.Port,
			UseTLS:     s.Qdrant.UseTLS,
			Collection: s.Qdrant.Collection,
		})
	}
}

// buildProvider returns a nil provider, not an error, when no key is set.
func (a *App) buildProvider(ctx context.Context) (llm.Provider, error) {
	s := a.Settings
	var (
		provider llm.Provider
		err      error
	)
	switch s.Models.Provider {
	case config.LLMProviderOpenAI:
		var c *openaiLLM.Client
		c, err = openaiLLM.New(openaiLLM.Config{APIKey: s.Models.OpenAIAPIKey, Model: s.Models.Model, HTTPClient: a.httpClient})
		if err == nil {
			provider = c
		}
	default:
		var c *gemini.Client
		c, err = gemini.New(ctx, gemini.Config{APIKey: s.Models.GoogleAPIKey, Model: s.Models.Model, HTTPClient: a.httpClient})
		if err == nil {
			provider = c
		}
	}
	if errors.Is(err, commonModels.ErrNotConfigured) {
		a.logger.Warn("No api key for the answering model, chat is disabled", "provider", s.Models.Provider)
		return nil, nil
	}
	return provider, err
}

func (a *App) buildSessionRepository(ctx context.Context) (sessionModel.Repository, error) {
	s := a.Settings
	if s.SessionStore == config.SessionStoreRedis {
		rs, err := redisStore.New(ctx, redisStore.Options{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       config.RedisSessionStore,
		})
		if err == nil {
			return store.NewRedisSessionStore(rs), nil
		}
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return nil, err
		}
		a.logger.Warn("Redis session store offline, falling back to sqlite", "error", err)
	}
	return store.NewSQLiteSessionStore(filepath.Join(s.DataDir, config.SQLiteFileName))
}

// NewJobStore opens the reindex job store: redis when reachable, memory otherwise.
func (a *App) NewJobStore(ctx context.Context) jobModel.JobStore {
	rs, err := redisStore.New(ctx, redisStore.Options{
		Addr:     a.Settings.Redis.Addr,
		Password: a.Settings.Redis.Password,
		DB:       config.RedisJobStore,
	})
	if err != nil {
		a.logger.Warn("Redis job store offline, using in-memory job store", "error", err)
		return store.InitInMemoryJobStore()
	}
	a.closers = append(a.closers, rs.Close)
	return store.NewRedisJobStore(rs)
}

// Reindex re-reads the transcripts directory, or just documentIds when given.
func (a *App) Reindex(ctx context.Context, documentIds []string) (retriever.ReindexReport, error) {
	return a.Retriever.ReindexFrom(ctx, a.Documents, documentIds...)
}

func (a *App) Clear(ctx context.Context) error {
	return a.Index.Clear(ctx)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
