package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag/ingest"
)

const (
	turnSeparator = "----------------------------------------"
	exportDate    = "2006-01-02 15:04:05"
)

// Export renders a persisted session to <exportsDir>/<id>.<format> and
// returns the path. Unknown sessions and write failures are logged and
// reported as false.
func (m *Manager) Export(ctx context.Context, id string, format sessionModel.ExportFormat) (string, bool) {
	log := m.logger.FromContext(ctx).With("sessionId", id, "format", string(format))
	if !format.Valid() {
		log.Warn("unsupported export format")
		return "", false
	}
	record, ok := m.Get(ctx, id)
	if !ok {
		return "", false
	}

	data, err := Render(record, format)
	if err != nil {
		log.Error("could not render session", "error", err)
		return "", false
	}
	if err := os.MkdirAll(m.exportsDir, 0o755); err != nil {
		log.Error("could not create exports directory", "error", err)
		return "", false
	}
	path := filepath.Join(m.exportsDir, record.SessionId+"."+string(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error("could not write export", "error", err)
		return "", false
	}
	log.Info("exported session", "path", path)
	return path, true
}

func Render(s sessionModel.Session, format sessionModel.ExportFormat) ([]byte, error) {
	switch format {
	case sessionModel.ExportJson:
		return json.MarshalIndent(s, "", "  ")
	case sessionModel.ExportTxt:
		return []byte(renderText(s)), nil
	case sessionModel.ExportMd:
		return []byte(renderMarkdown(s)), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

func renderText(s sessionModel.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", s.SessionName)
	fmt.Fprintf(&sb, "Date: %s\n", s.StartTime.Format(exportDate))
	fmt.Fprintf(&sb, "Messages: %d\n", len(s.Conversation))
	sb.WriteString(turnSeparator + "\n\n")
	for _, t := range s.Conversation {
		fmt.Fprintf(&sb, "Q: %s\n\n", t.Question)
		fmt.Fprintf(&sb, "A: %s\n\n", t.Response)
		sb.WriteString(turnSeparator + "\n\n")
	}
	return sb.String()
}

func renderMarkdown(s sessionModel.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", s.SessionName)
	fmt.Fprintf(&sb, "**Date:** %s  \n", s.StartTime.Format(exportDate))
	fmt.Fprintf(&sb, "**Messages:** %d\n\n", len(s.Conversation))
	sb.WriteString("---\n\n")
	for i, t := range s.Conversation {
		fmt.Fprintf(&sb, "## Question %d\n\n%s\n\n", i+1, t.Question)
		fmt.Fprintf(&sb, "### Answer\n\n%s\n\n", t.Response)
		if names := sourceNames(t); len(names) > 0 {
			sb.WriteString("**Sources:**\n\n")
			for _, n := range names {
				fmt.Fprintf(&sb, "- %s\n", n)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

func sourceNames(t sessionModel.Turn) []string {
	var names []string
	seen := make(map[string]bool)
	for _, c := range t.Sources {
		if seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		names = append(names, ingest.DisplayName(c.Source))
	}
	return names
}
