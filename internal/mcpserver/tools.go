package mcpserver

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SearchInput struct {
	Query   string   `json:"query" jsonschema:"what to look for in the transcripts"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	Sources []string `json:"sources,omitempty" jsonschema:"restrict the search to these transcript ids"`
}

type SearchOutput struct {
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

type SearchHit struct {
	Source     string  `json:"source"`
	DocName    string  `json:"doc_name"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
	Text       string  `json:"text"`
}

type AskInput struct {
	Question string   `json:"question" jsonschema:"the question to answer"`
	UseRAG   *bool    `json:"use_rag,omitempty" jsonschema:"ground the answer in transcript excerpts (default true)"`
	Sources  []string `json:"sources,omitempty" jsonschema:"restrict retrieval to these transcript ids"`
}

type AskOutput struct {
	Response         string                        `json:"response"`
	Sources          []commonModels.SourceCitation `json:"sources"`
	FormattedSources string                        `json:"formatted_sources"`
	ContextUsed      bool                          `json:"context_used"`
}

type ListSessionsInput struct{}

type ListSessionsOutput struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

// SessionInfo carries times as RFC 3339 strings.
type SessionInfo struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	StartTime    string `json:"start_time"`
	LastUpdated  string `json:"last_updated"`
	MessageCount int    `json:"message_count"`
	Preview      string `json:"preview"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_transcripts",
		Description: "Semantic search over indexed programme transcripts",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_transcripts",
		Description: "Answer a question, citing the transcripts it draws on",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List saved chat sessions, most recent first",
	}, s.handleListSessions)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}
	filter, err := commonModels.NewSourceFilter(input.Sources...)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = config.DefaultTopK
	}

	results, err := s.ports.Retriever.Retrieve(ctx, input.Query, limit, filter)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	output := SearchOutput{Results: make([]SearchHit, len(results)), Count: len(results)}
	for i, r := range results {
		output.Results[i] = SearchHit{
			Source:     r.Metadata.Source,
			DocName:    r.Metadata.DocName,
			ChunkIndex: r.Metadata.ChunkIndex,
			Distance:   r.Distance,
			Text:       r.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	filter, err := commonModels.NewSourceFilter(input.Sources...)
	if err != nil {
		return nil, AskOutput{}, err
	}
	result := s.ports.Answerer.Ask(ctx, rag.AskRequest{
		Question: input.Question,
		UseRAG:   input.UseRAG == nil || *input.UseRAG,
		Filter:   filter,
	})
	if result.Error {
		return nil, AskOutput{}, errors.New(result.Response)
	}
	return nil, AskOutput{
		Response:         result.Response,
		Sources:          result.Sources,
		FormattedSources: rag.FormatSources(result.Sources),
		ContextUsed:      result.ContextUsed,
	}, nil
}

func (s *Server) handleListSessions(ctx context.Context, _ *mcp.CallToolRequest, _ ListSessionsInput) (*mcp.CallToolResult, ListSessionsOutput, error) {
	output := ListSessionsOutput{Sessions: []SessionInfo{}}
	if s.ports.Sessions == nil {
		return nil, output, nil
	}
	for _, sum := range s.ports.Sessions.ListSessions(ctx) {
		output.Sessions = append(output.Sessions, toSessionInfo(sum))
	}
	output.Count = len(output.Sessions)
	return nil, output, nil
}

func toSessionInfo(sum sessionModel.Summary) SessionInfo {
	return SessionInfo{
		Id:           sum.Id,
		Name:         sum.Name,
		StartTime:    sum.StartTime.Format(time.RFC3339),
		LastUpdated:  sum.LastUpdated.Format(time.RFC3339),
		MessageCount: sum.MessageCount,
		Preview:      sum.Preview,
	}
}
