package api

import (
	"time"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id"`
	JobType   string            `json:"job_type,omitempty"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"can_retry"`
}

type ReindexResult struct {
	TotalChunks    int      `json:"total_chunks"`
	IndexedDocs    []string `json:"indexed_docs"`
	FailedDocs     []string `json:"failed_docs,omitempty"`
	SkippedReasons []string `json:"skipped_reasons,omitempty"`
}

type Result struct {
	Status        string         `json:"status"`
	Step          string         `json:"step,omitempty"`
	ReindexResult *ReindexResult `json:"reindex,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type ErrorResponse struct {
	Id    string `json:"id,omitempty"`
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type ChatResponse struct {
	SessionId        string                        `json:"session_id,omitempty"`
	Response         string                        `json:"response"`
	Sources          []commonModels.SourceCitation `json:"sources"`
	FormattedSources string                        `json:"formatted_sources"`
	ContextUsed      bool                          `json:"context_used"`
	Error            bool                          `json:"error"`
}

type SessionCreatedResponse struct {
	SessionId   string `json:"session_id"`
	SessionName string `json:"session_name"`
}

type SessionListResponse struct {
	Sessions []sessionModel.Summary `json:"sessions"`
}

type DeleteResponse struct {
	Id      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type ExportResponse struct {
	SessionId string `json:"session_id"`
	Format    string `json:"format"`
	Path      string `json:"path"`
}

// requests---------------------

type ChatRequest struct {
	Message     string   `json:"message" validate:"required"`
	UseRAG      *bool    `json:"use_rag,omitempty"`
	SourceFiles []string `json:"source_files,omitempty"`
	SessionId   string   `json:"session_id,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

// RAGEnabled reports the use_rag flag, which defaults to true when omitted.
func (c ChatRequest) RAGEnabled() bool {
	return c.UseRAG == nil || *c.UseRAG
}

type NewSessionRequest struct {
	SessionName string `json:"session_name"`
}

type ReindexRequest struct {
	DocumentIds []string `json:"document_ids,omitempty"`
}
