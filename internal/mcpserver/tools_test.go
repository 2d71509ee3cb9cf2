package mcpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	results []commonModels.SearchResult
	err     error
	gotK    int
	gotIDs  []string
}

func (m *mockSearcher) Retrieve(_ context.Context, _ string, k int, filter commonModels.SourceFilter) ([]commonModels.SearchResult, error) {
	m.gotK = k
	m.gotIDs = filter.IDs()
	return m.results, m.err
}

type mockAnswerer struct {
	result rag.AskResult
	got    rag.AskRequest
}

func (m *mockAnswerer) IsReady() bool { return true }

func (m *mockAnswerer) Ask(_ context.Context, req rag.AskRequest) rag.AskResult {
	m.got = req
	return m.result
}

func (m *mockAnswerer) History() []sessionModel.Turn { return nil }

func (m *mockAnswerer) ClearHistory() {}

type mockSessions struct {
	summaries []sessionModel.Summary
}

func (m *mockSessions) ListSessions(context.Context) []sessionModel.Summary {
	return m.summaries
}

func TestNewServer(t *testing.T) {
	t.Run("missing retriever", func(t *testing.T) {
		server, err := NewServer(&Ports{Answerer: &mockAnswerer{}})
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetriever)
	})

	t.Run("missing answerer", func(t *testing.T) {
		_, err := NewServer(&Ports{Retriever: &mockSearcher{}})
		assert.ErrorIs(t, err, ErrMissingAnswerer)
	})

	t.Run("sessions are optional", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockSearcher{}, Answerer: &mockAnswerer{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("maps results and applies defaults", func(t *testing.T) {
		searcher := &mockSearcher{results: []commonModels.SearchResult{{
			ChunkId:  "physics_chunk_2",
			Text:     "uncertainty principle",
			Distance: 0.12,
			Metadata: commonModels.ChunkMetadata{Source: "physics", DocName: "Physics", ChunkIndex: 2},
		}}}
		server, err := NewServer(&Ports{Retriever: searcher, Answerer: &mockAnswerer{}})
		require.NoError(t, err)

		_, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "quantum", Sources: []string{"physics"}})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)
		assert.Equal(t, "physics", out.Results[0].Source)
		assert.Equal(t, 2, out.Results[0].ChunkIndex)
		assert.Equal(t, "uncertainty principle", out.Results[0].Text)
		assert.Equal(t, 5, searcher.gotK)
		assert.Equal(t, []string{"physics"}, searcher.gotIDs)
	})

	t.Run("empty source id is rejected", func(t *testing.T) {
		server, _ := NewServer(&Ports{Retriever: &mockSearcher{}, Answerer: &mockAnswerer{}})
		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "q", Sources: []string{""}})
		assert.ErrorIs(t, err, commonModels.ErrEmptySourceID)
	})

	t.Run("search failure", func(t *testing.T) {
		server, _ := NewServer(&Ports{Retriever: &mockSearcher{err: errors.New("qdrant down")}, Answerer: &mockAnswerer{}})
		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "q"})
		assert.ErrorContains(t, err, "qdrant down")
	})
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	answerer := &mockAnswerer{result: rag.AskResult{
		Response:    "It was the first broadcast.",
		Sources:     []commonModels.SourceCitation{{Source: "radio", DocName: "Radio", ChunkIndices: []int{0}}},
		ContextUsed: true,
	}}
	server, err := NewServer(&Ports{Retriever: &mockSearcher{}, Answerer: answerer})
	require.NoError(t, err)

	_, out, err := server.handleAsk(ctx, nil, AskInput{Question: "what happened?"})
	require.NoError(t, err)
	assert.True(t, answerer.got.UseRAG)
	assert.True(t, out.ContextUsed)
	assert.Equal(t, "1. Radio (chunks: 0)", out.FormattedSources)

	off := false
	_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q", UseRAG: &off})
	require.NoError(t, err)
	assert.False(t, answerer.got.UseRAG)

	answerer.result = rag.AskResult{Error: true, Response: "The answering model is not configured."}
	_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q"})
	assert.ErrorContains(t, err, "not configured")
}

func TestServer_handleListSessions(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	sessions := &mockSessions{summaries: []sessionModel.Summary{
		{Id: "s1", Name: "Reith", StartTime: ts, LastUpdated: ts, MessageCount: 2, Preview: "hello"},
	}}

	server, err := NewServer(&Ports{Retriever: &mockSearcher{}, Answerer: &mockAnswerer{}, Sessions: sessions})
	require.NoError(t, err)

	_, out, err := server.handleListSessions(context.Background(), nil, ListSessionsInput{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "2024-03-01T10:00:00Z", out.Sessions[0].StartTime)

	bare, _ := NewServer(&Ports{Retriever: &mockSearcher{}, Answerer: &mockAnswerer{}})
	_, out, err = bare.handleListSessions(context.Background(), nil, ListSessionsInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Sessions)
}
