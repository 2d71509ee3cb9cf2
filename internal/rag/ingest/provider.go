package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
)

// supported transcript extensions, in lookup preference order
var transcriptExtensions = []string{".txt", ".md", ".docx", ".odt", ".rtf", ".pdf"}

// TranscriptDirectory serves transcripts stored as files in one directory.
// A file's stem is its document id; an optional <stem>.json sidecar holds metadata.
type TranscriptDirectory struct {
	dir string
}

func NewTranscriptDirectory(dir string) *TranscriptDirectory {
	return &TranscriptDirectory{dir: dir}
}

func (d *TranscriptDirectory) Dir() string {
	return d.dir
}

// List returns the ids of every readable transcript, sorted.
func (d *TranscriptDirectory) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.FromContext(ctx).Warn("transcripts directory missing", "dir", d.dir)
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing transcripts in %s: %w", d.dir, err)
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isTranscript(e.Name()) {
			continue
		}
		id := stem(e.Name())
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Load reads one transcript and its sidecar metadata.
func (d *TranscriptDirectory) Load(ctx context.Context, id string) (commonModels.Document, error) {
	if err := ctx.Err(); err != nil {
		return commonModels.Document{}, err
	}
	path, ok := d.find(id)
	if !ok {
		return commonModels.Document{}, fmt.Errorf("transcript %q: %w", id, commonModels.ErrNotFound)
	}

	text, docType, err := ReadText(path)
	if err != nil {
		return commonModels.Document{}, err
	}

	meta, err := loadSidecar(filepath.Join(d.dir, id+".json"))
	if err != nil {
		// bad metadata is not worth losing the transcript over
		logger.FromContext(ctx).Warn("ignoring unreadable metadata sidecar", "document", id, "error", err)
		meta = map[string]string{}
	}

	return commonModels.Document{
		Id:          id,
		Name:        DisplayName(id),
		Text:        text,
		Path:        path,
		ContentType: docType,
		Metadata:    meta,
	}, nil
}

func (d *TranscriptDirectory) find(id string) (string, bool) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", false
	}
	for _, ext := range transcriptExtensions {
		p := filepath.Join(d.dir, id+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// DisplayName turns a transcript stem such as "Maurice-Merleau-Ponty_transcript"
// into "Maurice Merleau Ponty".
func DisplayName(id string) string {
	name := strings.TrimSuffix(id, "_transcript")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

func isTranscript(name string) bool {
	return slices.Contains(transcriptExtensions, strings.ToLower(filepath.Ext(name)))
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func loadSidecar(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			meta[k] = val
		case float64, bool:
			meta[k] = fmt.Sprint(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			meta[k] = string(b)
		}
	}
	return meta, nil
}
