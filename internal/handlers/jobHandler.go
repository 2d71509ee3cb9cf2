package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/akolanti/TranscriptRAG/internal/adapter"
	"github.com/akolanti/TranscriptRAG/internal/adapter/utils"
	"github.com/akolanti/TranscriptRAG/internal/api"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/jobModel"
	"github.com/akolanti/TranscriptRAG/internal/job"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/akolanti/TranscriptRAG/internal/session"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

// IndexStats reports what the vector index currently holds.
type IndexStats interface {
	Stats(ctx context.Context) (commonModels.IndexStats, error)
}

type Deps struct {
	Answerer rag.Service
	Sessions *session.Manager
	Index    IndexStats
	Jobs     *job.Service
}

// Handler serves the chat, session and index routes.
type Handler struct {
	answerer rag.Service
	sessions *session.Manager
	index    IndexStats
	jobs     *job.Service

	// chatMu serializes chat turns: the session manager holds one active session.
	chatMu sync.Mutex
	logger *logger_i.Logger
}

func New(deps Deps) *Handler {
	h := &Handler{
		answerer: deps.Answerer,
		sessions: deps.Sessions,
		index:    deps.Index,
		jobs:     deps.Jobs,
		logger:   logger_i.NewLogger("Handler"),
	}
	h.logger.Info("Starting handlers")
	return h
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReindexHandler queues a reindex of the transcripts directory, optionally
// limited to document_ids, and returns 202 with the job id.
func (h *Handler) ReindexHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	var req api.ReindexRequest
	defer closeBody(r.Body, h.logger)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}
	if _, err := commonModels.NewSourceFilter(req.DocumentIds...); err != nil {
		h.WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		return
	}
	h.submit(w, r, job.NewJob(traceIdFrom(r.Context()), jobModel.JobTypeReindex, req.DocumentIds))
}

// ClearIndexHandler queues removal of every indexed chunk.
func (h *Handler) ClearIndexHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	h.submit(w, r, job.NewJob(traceIdFrom(r.Context()), jobModel.JobTypeClear, nil))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, newJob jobModel.Job) {
	log := h.logger.FromContext(r.Context())
	if err := h.jobs.Submit(r.Context(), newJob); err != nil {
		log.Error("Could not queue job", "jobId", newJob.Id, "error", err)
		code := http.StatusInternalServerError
		if errors.Is(err, job.ErrQueueFull) {
			code = http.StatusServiceUnavailable
		}
		h.WriteErrorResponse(w, code, newJob.Id, err.Error())
		return
	}
	h.writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.Id))
}

func (h *Handler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	if idString == "" {
		h.WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	result, isFound := h.jobs.Status(r.Context(), idString)
	if !isFound {
		h.WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

func (h *Handler) IndexStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	stats, err := h.index.Stats(r.Context())
	if err != nil {
		h.logger.FromContext(r.Context()).Error("Could not read index stats", "error", err)
		h.WriteErrorResponse(w, http.StatusBadGateway, "", "Index unavailable")
		return
	}
	h.writeJsonResponse(w, http.StatusOK, stats)
}
