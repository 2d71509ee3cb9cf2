package commonModels

import (
	"fmt"
	"time"
)

// Document is a transcript handed to the index. Id is a stable identifier
// (the file stem for directory transcripts), never a filesystem path.
type Document struct {
	Id          string            `json:"source_doc_id"`
	Name        string            `json:"doc_name"`
	Text        string            `json:"-"`
	Path        string            `json:"path,omitempty"`
	ContentType DocType           `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// DisplayName falls back to the id when no name is known.
func (d Document) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Id
}

type DocChunk struct {
	ChunkId     string            `json:"chunk_id"`
	DocumentId  string            `json:"source"`
	DocName     string            `json:"doc_name"`
	Text        string            `json:"content"`
	ChunkIndex  int               `json:"chunk_index"`
	TotalChunks int               `json:"total_chunks"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IngestedAt  time.Time         `json:"ingested_at"`
}

func ChunkId(documentId string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentId, index)
}

type ChunkMetadata struct {
	Source      string            `json:"source"`
	DocName     string            `json:"doc_name"`
	ChunkIndex  int               `json:"chunk_index"`
	TotalChunks int               `json:"total_chunks"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// SearchResult is one hit from the index. Lower Distance is more similar.
type SearchResult struct {
	ChunkId  string        `json:"chunk_id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float64       `json:"distance"`
}

func (r SearchResult) Citation() Citation {
	return Citation{Source: r.Metadata.Source, ChunkIndex: r.Metadata.ChunkIndex}
}

func (c DocChunk) SearchMetadata() ChunkMetadata {
	return ChunkMetadata{
		Source:      c.DocumentId,
		DocName:     c.DocName,
		ChunkIndex:  c.ChunkIndex,
		TotalChunks: c.TotalChunks,
		Extra:       c.Metadata,
	}
}

// Citation records which chunk of which document supported an answer.
type Citation struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}

// SourceCitation is a per-document group of citations.
type SourceCitation struct {
	Source       string `json:"source"`
	DocName      string `json:"doc_name"`
	ChunkIndices []int  `json:"chunk_indices"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

type IndexStats struct {
	CollectionName string `json:"collection_name"`
	TotalChunks    int    `json:"total_chunks"`
	Backend        string `json:"backend"`
}
