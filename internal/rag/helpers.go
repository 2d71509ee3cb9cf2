package rag

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

func buildRAGPrompt(question string, contextText string, filter commonModels.SourceFilter) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant that answers questions based on audio programme transcripts.\n\n")
	sb.WriteString("Context from transcripts:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nUser question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer strictly from the context above. If the context does not contain the information, say so. ")
	sb.WriteString("Always cite which source(s) you are referencing.")
	if !filter.IsEmpty() {
		fmt.Fprintf(&sb, "\n\nNote: the user restricted this search to these transcripts: %s.", strings.Join(filter.IDs(), ", "))
	}
	return sb.String()
}

func buildFallbackPrompt(question string) string {
	return "You are a helpful assistant for audio programme transcripts.\n\n" +
		"User question: " + question + "\n\n" +
		"Note: No relevant transcript context was found. Please provide a general response or ask the user to be more specific."
}

func citationsOf(hits []commonModels.SearchResult) []commonModels.Citation {
	out := make([]commonModels.Citation, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Citation())
	}
	return out
}

// GroupSources folds hits into one citation per document, in first-seen
// order, each listing its chunk indices once.
func GroupSources(hits []commonModels.SearchResult) []commonModels.SourceCitation {
	var out []commonModels.SourceCitation
	pos := make(map[string]int)
	for _, h := range hits {
		src := h.Metadata.Source
		i, ok := pos[src]
		if !ok {
			pos[src] = len(out)
			out = append(out, commonModels.SourceCitation{Source: src, DocName: h.Metadata.DocName})
			i = len(out) - 1
		}
		if !slices.Contains(out[i].ChunkIndices, h.Metadata.ChunkIndex) {
			out[i].ChunkIndices = append(out[i].ChunkIndices, h.Metadata.ChunkIndex)
		}
	}
	return out
}

// GroupCitations is GroupSources for bare citations, as stored in session turns.
func GroupCitations(citations []commonModels.Citation) []commonModels.SourceCitation {
	hits := make([]commonModels.SearchResult, len(citations))
	for i, c := range citations {
		hits[i].Metadata = commonModels.ChunkMetadata{Source: c.Source, ChunkIndex: c.ChunkIndex}
	}
	return GroupSources(hits)
}

// FormatSources renders "1. <name> (chunks: 0, 2)" lines.
func FormatSources(sources []commonModels.SourceCitation) string {
	if len(sources) == 0 {
		return config.NoSourcesCited
	}
	lines := make([]string, 0, len(sources))
	for i, s := range sources {
		name := s.DocName
		if name == "" {
			name = s.Source
		}
		if name == "" {
			name = "Unknown"
		}
		idx := make([]string, len(s.ChunkIndices))
		for j, c := range s.ChunkIndices {
			idx[j] = strconv.Itoa(c)
		}
		lines = append(lines, fmt.Sprintf("%d. %s (chunks: %s)", i+1, name, strings.Join(idx, ", ")))
	}
	return strings.Join(lines, "\n")
}
