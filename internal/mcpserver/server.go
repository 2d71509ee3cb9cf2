// Package mcpserver exposes transcript search and question answering as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

var (
	ErrMissingRetriever = errors.New("mcp: retriever is required")
	ErrMissingAnswerer  = errors.New("mcp: answerer is required")
)

type Searcher interface {
	Retrieve(ctx context.Context, query string, k int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error)
}

type SessionLister interface {
	ListSessions(ctx context.Context) []sessionModel.Summary
}

// Ports are the components the tools call into. Sessions is optional.
type Ports struct {
	Retriever Searcher
	Answerer  rag.Service
	Sessions  SessionLister
}

func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	if p.Answerer == nil {
		return ErrMissingAnswerer
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *mcp.Server
	logger *logger_i.Logger
}

func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: "transcript-rag", Version: Version}, nil),
		logger: logger_i.NewLogger("MCP"),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
