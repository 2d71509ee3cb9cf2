package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
	"github.com/akolanti/TranscriptRAG/internal/rag/llm"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

/*
Service is the public contract the handlers, the CLI and the MCP tools call.
The private service struct holds the retriever and the model client; callers
never reach them directly, which keeps the transports swappable with mocks.
*/
type Service interface {
	IsReady() bool
	Ask(ctx context.Context, req AskRequest) AskResult
	History() []sessionModel.Turn
	ClearHistory()
}

// ContextBuilder is the retrieval side the answerer depends on.
type ContextBuilder interface {
	BuildContext(ctx context.Context, query string, k int, filter commonModels.SourceFilter) (string, bool, []commonModels.SearchResult, error)
}

type AskRequest struct {
	Question string
	UseRAG   bool
	Filter   commonModels.SourceFilter
	K        int
}

type AskResult struct {
	Response    string                        `json:"response"`
	Sources     []commonModels.SourceCitation `json:"sources"`
	Citations   []commonModels.Citation       `json:"citations"`
	ContextUsed bool                          `json:"context_used"`
	Error       bool                          `json:"error"`
}

type service struct {
	retriever   ContextBuilder
	llmProvider llm.Provider
	timeout     time.Duration
	logger      *logger_i.Logger

	mu      sync.Mutex
	history []sessionModel.Turn
}

// NewService wires the answerer. provider may be nil when no model is
// configured; the service then reports not ready and Ask returns an error result.
func NewService(retriever ContextBuilder, provider llm.Provider) Service {
	return &service{
		retriever:   retriever,
		llmProvider: provider,
		timeout:     config.LLMTimeout,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) IsReady() bool {
	return s.llmProvider != nil
}

func (s *service) Ask(ctx context.Context, req AskRequest) AskResult {
	log := s.logger.FromContext(ctx)
	mode := "direct"
	if req.UseRAG {
		mode = "rag"
	}

	if !s.IsReady() {
		log.Warn("ask without a configured model")
		metrics.CountAnswer(mode, "not_configured")
		return errorResult(config.NotConfiguredMsg)
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return errorResult("Please enter a question.")
	}

	var contextText string
	var hits []commonModels.SearchResult
	if req.UseRAG {
		text, found, results, err := s.executeRetrievalStep(ctx, question, req)
		if err != nil {
			log.Error("retrieval failed", "error", err)
			metrics.CountAnswer(mode, "error")
			return errorResult(fmt.Sprintf("Error retrieving transcript context: %v", err))
		}
		if found {
			contextText, hits = text, results
		}
	}

	var prompt string
	if contextText != "" {
		prompt = buildRAGPrompt(question, contextText, req.Filter)
	} else {
		prompt = buildFallbackPrompt(question)
	}

	answer, err := s.executeLLMStep(ctx, prompt)
	if err != nil {
		log.Error("generation failed", "error", err)
		metrics.CountAnswer(mode, "error")
		return errorResult(fmt.Sprintf("Error generating response: %v", err))
	}

	citations := citationsOf(hits)
	s.mu.Lock()
	s.history = append(s.history, sessionModel.Turn{Question: question, Response: answer, Sources: citations})
	s.mu.Unlock()

	log.Info("answer generated", "chunks", len(hits), "contextUsed", contextText != "")
	metrics.CountAnswer(mode, "ok")
	return AskResult{
		Response:    answer,
		Sources:     GroupSources(hits),
		Citations:   citations,
		ContextUsed: contextText != "",
	}
}

func (s *service) History() []sessionModel.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sessionModel.Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *service) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
	s.logger.Info("Cleared conversation history")
}

func (s *service) executeRetrievalStep(ctx context.Context, question string, req AskRequest) (string, bool, []commonModels.SearchResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	return s.retriever.BuildContext(ctx, question, req.K, req.Filter)
}

func (s *service) executeLLMStep(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.llmProvider.Generate(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", commonModels.ErrModelTimeout, s.timeout)
		}
		return "", err
	}
	return answer, nil
}

func errorResult(message string) AskResult {
	return AskResult{Response: message, Error: true}
}
