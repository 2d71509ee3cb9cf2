package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
	"github.com/akolanti/TranscriptRAG/internal/rag/ingest"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

// ChunkIndex is the part of the index the retriever drives.
type ChunkIndex interface {
	UpsertDocument(ctx context.Context, documentId string, chunks []commonModels.DocChunk) (int, error)
	Search(ctx context.Context, query string, k int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error)
}

// DocumentProvider hands out transcripts by stable id.
type DocumentProvider interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, id string) (commonModels.Document, error)
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

type Retriever struct {
	index  ChunkIndex
	opts   Options
	logger *logger_i.Logger
}

func New(index ChunkIndex, opts Options) *Retriever {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = config.DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = min(config.DefaultChunkOverlap, opts.ChunkSize/2)
	}
	if opts.TopK <= 0 {
		opts.TopK = config.DefaultTopK
	}
	return &Retriever{
		index:  index,
		opts:   opts,
		logger: logger_i.NewLogger("retriever"),
	}
}

func (r *Retriever) TopK() int {
	return r.opts.TopK
}

// FailedDocument names one document a reindex had to skip.
type FailedDocument struct {
	DocumentId string `json:"document_id"`
	Reason     string `json:"reason"`
}

type ReindexReport struct {
	TotalChunks int              `json:"total_chunks"`
	Indexed     []string         `json:"indexed"`
	Failed      []FailedDocument `json:"failed,omitempty"`
}

func (rep *ReindexReport) fail(id string, err error) {
	rep.Failed = append(rep.Failed, FailedDocument{DocumentId: id, Reason: err.Error()})
}

// ReindexAll chunks and indexes every document. A failing document is logged
// and recorded in the report; the rest of the batch still runs.
func (r *Retriever) ReindexAll(ctx context.Context, docs []commonModels.Document) ReindexReport {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("reindex", time.Since(start)) }()

	var report ReindexReport
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			report.fail(doc.Id, err)
			continue
		}
		n, err := r.indexDocument(ctx, doc)
		if err != nil {
			r.logger.FromContext(ctx).Error("reindex skipped document", "document", doc.Id, "error", err)
			report.fail(doc.Id, err)
			continue
		}
		report.TotalChunks += n
		report.Indexed = append(report.Indexed, doc.Id)
	}
	r.logger.FromContext(ctx).Info("reindex finished",
		"documents", len(docs), "chunks", report.TotalChunks, "failed", len(report.Failed))
	return report
}

// ReindexFrom loads documents from provider and indexes them. With no ids
// every document the provider lists is indexed.
func (r *Retriever) ReindexFrom(ctx context.Context, provider DocumentProvider, ids ...string) (ReindexReport, error) {
	if len(ids) == 0 {
		listed, err := provider.List(ctx)
		if err != nil {
			return ReindexReport{}, fmt.Errorf("listing transcripts: %w", err)
		}
		ids = listed
	}

	var report ReindexReport
	docs := make([]commonModels.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := provider.Load(ctx, id)
		if err != nil {
			r.logger.FromContext(ctx).Error("could not load transcript", "document", id, "error", err)
			report.fail(id, err)
			continue
		}
		docs = append(docs, doc)
	}

	indexed := r.ReindexAll(ctx, docs)
	indexed.Failed = append(report.Failed, indexed.Failed...)
	return indexed, nil
}

func (r *Retriever) indexDocument(ctx context.Context, doc commonModels.Document) (int, error) {
	if doc.Id == "" {
		return 0, commonModels.ErrEmptySourceID
	}
	chunks := ingest.PrepareChunks(doc, r.opts.ChunkSize, r.opts.ChunkOverlap)
	return r.index.UpsertDocument(ctx, doc.Id, chunks)
}

// Retrieve is a pass-through to the index. k <= 0 uses the configured top-K.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error) {
	if k <= 0 {
		k = r.opts.TopK
	}
	return r.index.Search(ctx, query, k, filter)
}

// BuildContext renders the retrieved chunks with a provenance header each.
// When nothing is retrieved it returns the no-context sentinel and found=false.
func (r *Retriever) BuildContext(ctx context.Context, query string, k int, filter commonModels.SourceFilter) (string, bool, []commonModels.SearchResult, error) {
	results, err := r.Retrieve(ctx, query, k, filter)
	if err != nil {
		return "", false, nil, err
	}
	if len(results) == 0 {
		return config.NoContextSentinel, false, nil, nil
	}
	return FormatContext(results), true, results, nil
}

func FormatContext(results []commonModels.SearchResult) string {
	var sb strings.Builder
	for i, res := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[Source %d: %s]\n%s\n", i+1, sourceName(res.Metadata), res.Text)
	}
	return sb.String()
}

func sourceName(m commonModels.ChunkMetadata) string {
	switch {
	case m.DocName != "":
		return m.DocName
	case m.Source != "":
		return m.Source
	default:
		return "Unknown"
	}
}

// ValidateFilter builds a source filter from caller-supplied ids. An empty
// list is unrestricted, an empty id is an error.
func ValidateFilter(ids []string) (commonModels.SourceFilter, error) {
	return commonModels.NewSourceFilter(ids...)
}
