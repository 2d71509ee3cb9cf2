package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected commonModels.DocType
	}{
		{"test.pdf", commonModels.PDF},
		{"DOC.DOCX", commonModels.DOCX},
		{"lecture.odt", commonModels.DOCX},
		{"notes.txt", commonModels.TXT},
		{"notes.md", commonModels.TXT},
		{"image.png", commonModels.ERR},
		{"meta.json", commonModels.ERR},
	}

	for _, tt := range tests {
		if got := getDocType(tt.path); got != tt.expected {
			t.Errorf("getDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestChunkText_NoBoundaries(t *testing.T) {
	text := strings.Repeat("a", 2500)

	chunks := ChunkText(text, 1000, 200)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{1000, 1000, 900}
	for i, c := range chunks {
		if len(c) != wantLens[i] {
			t.Errorf("chunk %d has length %d, want %d", i, len(c), wantLens[i])
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	if got := ChunkText("", 1000, 200); len(got) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(got))
	}
	if got := ChunkText("   \n\t ", 1000, 200); len(got) != 0 {
		t.Errorf("expected no chunks for whitespace, got %d", len(got))
	}
}

func TestChunkText_ShortText(t *testing.T) {
	chunks := ChunkText("  A short transcript.  ", 1000, 200)
	if len(chunks) != 1 || chunks[0] != "A short transcript." {
		t.Errorf("unexpected chunks %q", chunks)
	}
}

func TestChunkText_BreaksAtSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 600) + "." + strings.Repeat("b", 1000)

	chunks := ChunkText(text, 1000, 200)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") || len(chunks[0]) != 601 {
		t.Errorf("first chunk should end at the period, got length %d", len(chunks[0]))
	}
}

func TestChunkText_IgnoresEarlyBoundary(t *testing.T) {
	// a period in the first half of the window is not a good place to cut
	text := strings.Repeat("a", 100) + "." + strings.Repeat("b", 1500)

	chunks := ChunkText(text, 1000, 200)

	if len(chunks[0]) != 1000 {
		t.Errorf("expected a full window, got length %d", len(chunks[0]))
	}
}

func TestChunkText_MultiByte(t *testing.T) {
	text := strings.Repeat("é", 2500)

	chunks := ChunkText(text, 1000, 200)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid utf8", i)
		}
	}
	if n := utf8.RuneCountInString(chunks[0]); n != 1000 {
		t.Errorf("expected 1000 runes in first chunk, got %d", n)
	}
}

func TestChunkSpans_Reconstruct(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("Sentence number ")
		sb.WriteString(strings.Repeat("x", i%17))
		if i%9 == 0 {
			sb.WriteString("\n")
		} else {
			sb.WriteString(". ")
		}
	}
	text := []rune(sb.String())

	for _, tc := range []struct{ size, overlap int }{{1000, 200}, {300, 50}, {120, 0}, {64, 60}} {
		spans := chunkSpans(text, tc.size, tc.overlap)
		if len(spans) == 0 {
			t.Fatalf("no spans for size %d", tc.size)
		}

		rebuilt := string(text[spans[0].start:spans[0].end])
		for i := 1; i < len(spans); i++ {
			prev, cur := spans[i-1], spans[i]
			if cur.start > prev.end || cur.start <= prev.start {
				t.Fatalf("span %d starts at %d after previous [%d,%d)", i, cur.start, prev.start, prev.end)
			}
			rebuilt += string(text[prev.end:cur.end])
		}
		if rebuilt != string(text) {
			t.Errorf("size %d overlap %d: reconstruction mismatch", tc.size, tc.overlap)
		}
		if spans[len(spans)-1].end != len(text) {
			t.Errorf("last span does not reach end of text")
		}
	}
}

func TestPrepareChunks(t *testing.T) {
	doc := commonModels.Document{
		Id:       "doc1",
		Name:     "Doc One",
		Text:     strings.Repeat("z", 2500),
		Metadata: map[string]string{"year": "1948"},
	}

	chunks := PrepareChunks(doc, 1000, 200)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i || c.TotalChunks != 3 {
			t.Errorf("chunk %d has index %d total %d", i, c.ChunkIndex, c.TotalChunks)
		}
		if c.ChunkId != commonModels.ChunkId("doc1", i) || c.DocumentId != "doc1" {
			t.Errorf("metadata mismatch in chunk %d: %+v", i, c)
		}
		if c.Metadata["year"] != "1948" || c.DocName != "Doc One" {
			t.Errorf("document metadata not inherited: %+v", c)
		}
	}

	if got := PrepareChunks(commonModels.Document{Id: "empty"}, 1000, 200); got != nil {
		t.Errorf("expected no chunks for an empty document, got %d", len(got))
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"Maurice-Merleau-Ponty_transcript": "Maurice Merleau Ponty",
		"reith_1948__lecture":              "reith 1948 lecture",
		"plain":                            "plain",
	}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestTranscriptDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("reith-1948_transcript.txt", "Bertrand Russell on authority and the individual.")
	write("reith-1948_transcript.json", `{"title": "Authority and the Individual", "year": 1948, "tags": ["philosophy"]}`)
	write("quantum.md", "A lecture about quantum mechanics.")
	write("cover.png", "not a transcript")

	provider := NewTranscriptDirectory(dir)
	ctx := context.Background()

	ids, err := provider.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if strings.Join(ids, ",") != "quantum,reith-1948_transcript" {
		t.Errorf("unexpected ids %v", ids)
	}

	doc, err := provider.Load(ctx, "reith-1948_transcript")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Name != "reith 1948" {
		t.Errorf("unexpected display name %q", doc.Name)
	}
	if !strings.Contains(doc.Text, "Bertrand Russell") {
		t.Errorf("unexpected text %q", doc.Text)
	}
	if doc.Metadata["title"] != "Authority and the Individual" || doc.Metadata["year"] != "1948" {
		t.Errorf("sidecar metadata not loaded: %v", doc.Metadata)
	}
	if doc.Metadata["tags"] != `["philosophy"]` {
		t.Errorf("list metadata should be json encoded, got %q", doc.Metadata["tags"])
	}

	if _, err := provider.Load(ctx, "missing"); !errors.Is(err, commonModels.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := provider.Load(ctx, "../etc/passwd"); !errors.Is(err, commonModels.ErrNotFound) {
		t.Errorf("expected path ids to be rejected, got %v", err)
	}
}

func TestTranscriptDirectory_MissingDir(t *testing.T) {
	ids, err := NewTranscriptDirectory(filepath.Join(t.TempDir(), "absent")).List(context.Background())
	if err != nil || len(ids) != 0 {
		t.Errorf("expected empty listing, got %v %v", ids, err)
	}
}
