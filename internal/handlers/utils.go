package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/akolanti/TranscriptRAG/internal/adapter"
	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

func (h *Handler) writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	WriteJsonResponse(w, statusCode, data, h.logger)
}

func WriteJsonResponse(w http.ResponseWriter, statusCode int, data interface{}, log *logger_i.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already out, nothing left to tell the client
		log.Error("Error encoding response", "error", err)
	}
}

func (h *Handler) validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		h.logger.FromContext(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func (h *Handler) WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	WriteErrorResponse(w, httpCode, id, error, h.logger)
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string, log *logger_i.Logger) {
	WriteJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode), log)
}

func traceIdFrom(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func closeBody(body io.ReadCloser, log *logger_i.Logger) {
	if err := body.Close(); err != nil {
		log.Error("Couldn't close the request body", "error", err)
	}
}
