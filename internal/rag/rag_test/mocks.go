package rag_test

import (
	"context"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

// MockRetriever implements rag.ContextBuilder
type MockRetriever struct {
	OnBuildContext func(ctx context.Context, query string, k int, filter commonModels.SourceFilter) (string, bool, []commonModels.SearchResult, error)
}

func (m *MockRetriever) BuildContext(ctx context.Context, q string, k int, f commonModels.SourceFilter) (string, bool, []commonModels.SearchResult, error) {
	if m.OnBuildContext != nil {
		return m.OnBuildContext(ctx, q, k, f)
	}
	return "", false, nil, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt string) (string, error)
	Prompts    []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}

func (m *MockLLM) Name() string { return "mock" }

func hit(source string, name string, idx int, text string) commonModels.SearchResult {
	return commonModels.SearchResult{
		ChunkId:  commonModels.ChunkId(source, idx),
		Text:     text,
		Metadata: commonModels.ChunkMetadata{Source: source, DocName: name, ChunkIndex: idx},
	}
}
