package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/TranscriptRAG/internal/app"
	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoLLM struct{}

func (echoLLM) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "[Source 1:") {
		return "grounded answer", nil
	}
	return "direct answer", nil
}

func (echoLLM) Name() string { return "echo" }

// sharedOpener hands every command the same in-memory app, so state survives between commands.
func sharedOpener(t *testing.T) (Opener, *app.App) {
	t.Helper()
	root := t.TempDir()
	s := config.Defaults()
	s.VectorStore = config.VectorStoreMemory
	s.SessionStore = config.SessionStoreSQLite
	s.Models.Embedding = config.EmbeddingHash
	s.TranscriptsDir = filepath.Join(root, "transcripts")
	s.DataDir = filepath.Join(root, "data")
	s.ExportsDir = filepath.Join(root, "exports")
	require.NoError(t, os.MkdirAll(s.TranscriptsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.TranscriptsDir, "Physics_transcript.txt"),
		[]byte("Quantum mechanics describes particles, waves and the uncertainty principle."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.TranscriptsDir, "Radio-Days_transcript.txt"),
		[]byte("The history of broadcasting and public service radio."), 0o644))

	a, err := app.Build(context.Background(), s)
	require.NoError(t, err)
	a.Answerer = rag.NewService(a.Retriever, echoLLM{})
	t.Cleanup(func() { _ = a.Close() })

	open := func(context.Context, string) (*app.App, func() error, error) {
		return a, func() error { return nil }, nil
	}
	return open, a
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(open)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_HasCommands(t *testing.T) {
	cmd := NewRootCmd(DefaultOpener)
	for _, name := range []string{"reindex", "ask", "stats", "clear", "sessions", "mcp"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, config.DefaultConfigFile, flag.DefValue)
}

func TestReindexAndStats(t *testing.T) {
	open, _ := sharedOpener(t)

	out, err := run(t, open, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 documents (2 chunks)")

	out, err = run(t, open, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Chunks:     2")
	assert.Contains(t, out, "memory:")

	out, err = run(t, open, "reindex", "nope")
	assert.Error(t, err)
	assert.Contains(t, out, "skipped nope")
}

func TestClear_NeedsConfirmation(t *testing.T) {
	open, a := sharedOpener(t)
	_, err := run(t, open, "reindex")
	require.NoError(t, err)

	_, err = run(t, open, "clear")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, open, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Index cleared.")

	n, err := a.Index.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAsk(t *testing.T) {
	open, a := sharedOpener(t)
	_, err := run(t, open, "reindex")
	require.NoError(t, err)

	t.Run("grounded answer with sources", func(t *testing.T) {
		out, err := run(t, open, "ask", "quantum", "mechanics", "-k", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "grounded answer")
		assert.Contains(t, out, "1. Physics (chunks: 0)")
	})

	t.Run("direct answer", func(t *testing.T) {
		out, err := run(t, open, "ask", "--no-rag", "hello")
		require.NoError(t, err)
		assert.Contains(t, out, "direct answer")
		assert.Contains(t, out, config.NoSourcesCited)
	})

	t.Run("empty source id", func(t *testing.T) {
		_, err := run(t, open, "ask", "--source", ",", "hello")
		assert.Error(t, err)
	})

	t.Run("save then continue the session", func(t *testing.T) {
		out, err := run(t, open, "ask", "--save", "--name", "Physics notes", "quantum mechanics")
		require.NoError(t, err)
		require.Contains(t, out, "Saved to session ")

		current, ok := a.Sessions.Current()
		require.True(t, ok)

		_, err = run(t, open, "ask", "--session", current.SessionId, "radio")
		require.NoError(t, err)

		record, ok := a.Sessions.Get(context.Background(), current.SessionId)
		require.True(t, ok)
		assert.Equal(t, "Physics notes", record.SessionName)
		assert.Equal(t, 2, record.MessageCount)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := run(t, open, "ask", "--session", "missing", "radio")
		assert.ErrorContains(t, err, "not found")
	})
}

func TestSessionsCommands(t *testing.T) {
	open, a := sharedOpener(t)
	ctx := context.Background()

	out, err := run(t, open, "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved sessions.")

	a.Sessions.StartSession("Reith notes")
	a.Sessions.AppendTurn("What is radio?", "A broadcast medium.", nil)
	id, err := a.Sessions.Save(ctx, "")
	require.NoError(t, err)

	out, err = run(t, open, "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Reith notes")

	out, err = run(t, open, "sessions", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Q: What is radio?")
	assert.Contains(t, out, "A: A broadcast medium.")

	out, err = run(t, open, "sessions", "export", id, "--format", "json")
	require.NoError(t, err)
	assert.FileExists(t, strings.TrimSpace(out))

	_, err = run(t, open, "sessions", "export", id, "--format", "pdf")
	assert.Error(t, err)

	out, err = run(t, open, "sessions", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted session")

	_, err = run(t, open, "sessions", "delete", id)
	assert.ErrorContains(t, err, "not found")
}
