package ingest

import (
	"strings"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

type span struct {
	start, end int
}

// chunkSpans walks the text in windows of chunkSize runes. A window that does
// not reach the end is cut just after its last '.' or '\n' when that boundary
// lies past ChunkBreakRatio of the window. The next window starts overlap
// runes before the previous cut.
func chunkSpans(text []rune, chunkSize int, overlap int) []span {
	var spans []span
	n := len(text)
	start := 0
	for start < n {
		end := start + chunkSize
		if end >= n {
			spans = append(spans, span{start, n})
			break
		}

		breakPoint := lastBoundary(text[start:end])
		if float64(breakPoint) > float64(chunkSize)*config.ChunkBreakRatio {
			end = start + breakPoint + 1
		}
		spans = append(spans, span{start, end})

		next := end - overlap
		if next <= start {
			//overlap would stall the walk
			next = end
		}
		start = next
	}
	return spans
}

func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}

// ChunkText splits text into overlapping, whitespace-trimmed chunks.
// Sizes are in characters. Invalid sizes fall back to the configured defaults.
func ChunkText(text string, chunkSize int, overlap int) []string {
	chunkSize, overlap = normaliseSizes(chunkSize, overlap)
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/chunkSize+1)
	for _, s := range chunkSpans(runes, chunkSize, overlap) {
		chunk := strings.TrimSpace(string(runes[s.start:s.end]))
		if chunk == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func normaliseSizes(chunkSize int, overlap int) (int, int) {
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = min(config.DefaultChunkOverlap, chunkSize/2)
	}
	return chunkSize, overlap
}

// PrepareChunks chunks a document and stamps every chunk with its owning
// document id, position and the document's metadata.
func PrepareChunks(doc commonModels.Document, chunkSize int, overlap int) []commonModels.DocChunk {
	texts := ChunkText(doc.Text, chunkSize, overlap)
	if len(texts) == 0 {
		return nil
	}

	now := time.Now().UTC()
	allChunks := make([]commonModels.DocChunk, 0, len(texts))
	for i, text := range texts {
		allChunks = append(allChunks, commonModels.DocChunk{
			ChunkId:     commonModels.ChunkId(doc.Id, i),
			DocumentId:  doc.Id,
			DocName:     doc.DisplayName(),
			Text:        text,
			ChunkIndex:  i,
			TotalChunks: len(texts),
			Metadata:    doc.Metadata,
			IngestedAt:  now,
		})
	}
	return allChunks
}
