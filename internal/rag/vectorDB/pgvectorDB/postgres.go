package pgvectorDB

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Store keeps chunks in a postgres table with a pgvector column.
type Store struct {
	db     *sql.DB
	table  string
	logger *logger_i.Logger
}

func New(ctx context.Context, connString string, table string) (*Store, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, config.PostgresPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &Store{
		db:     db,
		table:  table,
		logger: logger_i.NewLogger("pgvector").With("table", table),
	}, nil
}

func (pg *Store) Name() string {
	return "postgres:" + pg.table
}

func (pg *Store) Close() error {
	return pg.db.Close()
}

func (pg *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	ctx, cancel := context.WithTimeout(ctx, config.PostgresQueryTimeout)
	defer cancel()

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id     TEXT PRIMARY KEY,
			source       TEXT NOT NULL,
			doc_name     TEXT NOT NULL DEFAULT '',
			chunk_index  INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			content      TEXT NOT NULL,
			metadata     JSONB NOT NULL DEFAULT '{}',
			ingested_at  TIMESTAMPTZ NOT NULL,
			embedding    vector(%d) NOT NULL
		)`, pg.table, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)`, pg.table, pg.table),
	}
	for _, stmt := range statements {
		if _, err := pg.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("preparing pgvector table: %w", err)
		}
	}

	// pgvector keeps the declared dimension in atttypmod
	var existing int
	err := pg.db.QueryRowContext(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`,
		pg.table).Scan(&existing)
	if err != nil {
		return fmt.Errorf("reading pgvector dimension: %w", err)
	}
	if existing > 0 && existing != dimension {
		return fmt.Errorf("%w: table %s holds %d-d vectors, embedder produces %d-d",
			commonModels.ErrDimensionMismatch, pg.table, existing, dimension)
	}
	return nil
}

func (pg *Store) DeleteBySource(ctx context.Context, sourceId string) error {
	ctx, cancel := context.WithTimeout(ctx, config.PostgresQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, pg.table)
	if _, err := pg.db.ExecContext(ctx, query, sourceId); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", sourceId, err)
	}
	return nil
}

func (pg *Store) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: got %d chunks but %d vectors", commonModels.ErrVectorMismatch, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := pg.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, source, doc_name, chunk_index, total_chunks, content, metadata, ingested_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chunk_id) DO UPDATE
		SET source = EXCLUDED.source,
		    doc_name = EXCLUDED.doc_name,
		    chunk_index = EXCLUDED.chunk_index,
		    total_chunks = EXCLUDED.total_chunks,
		    content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    ingested_at = EXCLUDED.ingested_at,
		    embedding = EXCLUDED.embedding
	`, pg.table)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		meta, err := json.Marshal(nonNil(c.Metadata))
		if err != nil {
			return fmt.Errorf("encoding metadata of %s: %w", c.ChunkId, err)
		}
		_, err = stmt.ExecContext(ctx, c.ChunkId, c.DocumentId, c.DocName, c.ChunkIndex, c.TotalChunks,
			c.Text, meta, c.IngestedAt, pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", c.ChunkId, err)
		}
	}
	return tx.Commit()
}

func (pg *Store) Search(ctx context.Context, vector []float32, limit int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}

	ctx, cancel := context.WithTimeout(ctx, config.PostgresQueryTimeout)
	defer cancel()

	args := []any{pgvector.NewVector(vector), limit}
	where := ""
	if !filter.IsEmpty() {
		where = "WHERE source = ANY($3)"
		args = append(args, pq.Array(filter.IDs()))
	}
	query := fmt.Sprintf(`
		SELECT chunk_id, source, doc_name, chunk_index, total_chunks, content, metadata, embedding <=> $1 AS distance
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pg.table, where)

	rows, err := pg.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	var results []commonModels.SearchResult
	for rows.Next() {
		var r commonModels.SearchResult
		var meta []byte
		err := rows.Scan(&r.ChunkId, &r.Metadata.Source, &r.Metadata.DocName, &r.Metadata.ChunkIndex,
			&r.Metadata.TotalChunks, &r.Text, &meta, &r.Distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata.Extra); err != nil {
				pg.logger.Warn("unreadable chunk metadata", "chunk", r.ChunkId, "error", err)
			}
		}
		results = append(results, r)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating through chunks: %w", rows.Err())
	}
	return results, nil
}

func (pg *Store) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pg.table)
	if err := pg.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (pg *Store) Clear(ctx context.Context) error {
	if _, err := pg.db.ExecContext(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, pg.table)); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	return nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
