package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/akolanti/TranscriptRAG/internal/adapter"
	"github.com/akolanti/TranscriptRAG/internal/adapter/utils"
	"github.com/akolanti/TranscriptRAG/internal/api"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/akolanti/TranscriptRAG/internal/rag/retriever"
)

// ChatHandler answers one question. The turn is appended to the session named
// by session_id, or to a fresh session when none is given, and saved. Failed
// answers are not recorded; without a session_id the response then carries none.
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	ctx := r.Context()
	log := h.logger.FromContext(ctx)

	var requestData api.ChatRequest
	defer closeBody(r.Body, log)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || strings.TrimSpace(requestData.Message) == "" {
		log.Warn("Bad Chat Request", "error", err)
		h.WriteErrorResponse(w, http.StatusBadRequest, requestData.SessionId, "Bad Request")
		return
	}
	filter, err := retriever.ValidateFilter(requestData.SourceFiles)
	if err != nil {
		h.WriteErrorResponse(w, http.StatusBadRequest, requestData.SessionId, err.Error())
		return
	}

	h.chatMu.Lock()
	defer h.chatMu.Unlock()

	if requestData.SessionId != "" {
		if current, ok := h.sessions.Current(); !ok || current.SessionId != requestData.SessionId {
			if !h.sessions.Load(ctx, requestData.SessionId) {
				h.WriteErrorResponse(w, http.StatusNotFound, requestData.SessionId, "Session not found")
				return
			}
		}
	}

	result := h.answerer.Ask(ctx, rag.AskRequest{
		Question: requestData.Message,
		UseRAG:   requestData.RAGEnabled(),
		Filter:   filter,
		K:        requestData.TopK,
	})

	// failed answers never start a session
	sessionId := requestData.SessionId
	if !result.Error {
		if sessionId == "" {
			sessionId = h.sessions.StartSession("")
		}
		h.sessions.AppendTurn(requestData.Message, result.Response, result.Citations)
		if _, err := h.sessions.Save(ctx, ""); err != nil {
			log.Warn("Answer not persisted", "sessionId", sessionId, "error", err)
		}
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToChatResponse(sessionId, result))
}

func (h *Handler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	var req api.NewSessionRequest
	defer closeBody(r.Body, h.logger)
	// an empty body is fine: the session gets a default name
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.chatMu.Lock()
	defer h.chatMu.Unlock()
	h.sessions.StartSession(req.SessionName)
	id, err := h.sessions.Save(r.Context(), "")
	if err != nil {
		h.WriteErrorResponse(w, http.StatusInternalServerError, id, "Could not save session")
		return
	}
	current, _ := h.sessions.Current()
	h.writeJsonResponse(w, http.StatusCreated, api.SessionCreatedResponse{
		SessionId:   id,
		SessionName: current.SessionName,
	})
}

func (h *Handler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToSessionList(h.sessions.ListSessions(r.Context())))
}

func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	record, ok := h.sessions.Get(r.Context(), id)
	if !ok {
		h.WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	h.writeJsonResponse(w, http.StatusOK, record)
}

func (h *Handler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if !h.sessions.Delete(r.Context(), id) {
		h.WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	h.writeJsonResponse(w, http.StatusOK, api.DeleteResponse{Id: id, Deleted: true})
}

// ExportSessionHandler writes the session to the exports directory and returns the file path.
func (h *Handler) ExportSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	format := sessionModel.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = sessionModel.ExportTxt
	}
	if !format.Valid() {
		h.WriteErrorResponse(w, http.StatusBadRequest, id, "format must be one of txt, md, json")
		return
	}
	if _, ok := h.sessions.Get(r.Context(), id); !ok {
		h.WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	path, ok := h.sessions.Export(r.Context(), id, format)
	if !ok {
		h.WriteErrorResponse(w, http.StatusInternalServerError, id, "Export failed")
		return
	}
	h.writeJsonResponse(w, http.StatusOK, adapter.ToExportResponse(id, string(format), path))
}
