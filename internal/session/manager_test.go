package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/data/store"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	dir := t.TempDir()
	repo, err := store.NewSQLiteSessionStore(filepath.Join(dir, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)}
	return NewManager(repo, filepath.Join(dir, "exports"), WithClock(clock.Now)), clock
}

func TestStartSession_DefaultName(t *testing.T) {
	m, _ := newManager(t)
	id := m.StartSession("")
	require.NotEmpty(t, id)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "Chat Session 2026-05-01 09:30", cur.SessionName)
	assert.Empty(t, m.Turns())
}

func TestSave_StartsImplicitly(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	id, err := m.Save(ctx, "Reith questions")
	require.NoError(t, err)

	got, ok := m.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "Reith questions", got.SessionName)
	assert.Zero(t, got.MessageCount)
}

func TestSave_Idempotent(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	m.StartSession("s")
	m.AppendTurn("What is discussed?", "Radio.", []commonModels.Citation{{Source: "doc1", ChunkIndex: 0}})
	id, err := m.Save(ctx, "")
	require.NoError(t, err)
	first, _ := m.Get(ctx, id)

	clock.now = clock.now.Add(time.Minute)
	_, err = m.Save(ctx, "")
	require.NoError(t, err)
	second, _ := m.Get(ctx, id)

	assert.Equal(t, first.Conversation, second.Conversation)
	assert.Equal(t, first.SessionName, second.SessionName)
	assert.Equal(t, 1, second.MessageCount)
	assert.True(t, second.LastUpdated.After(first.LastUpdated))
}

func TestListSessions_MostRecentFirst(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	clock.now = clock.now.Add(-24 * time.Hour)
	m.StartSession("A")
	m.AppendTurn(strings.Repeat("é", 150), "answer", nil)
	idA, err := m.Save(ctx, "")
	require.NoError(t, err)

	clock.now = clock.now.Add(24 * time.Hour)
	m.StartSession("B")
	m.AppendTurn("short question", "answer", nil)
	idB, err := m.Save(ctx, "")
	require.NoError(t, err)

	list := m.ListSessions(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, idB, list[0].Id)
	assert.Equal(t, idA, list[1].Id)
	assert.Equal(t, "short question", list[0].Preview)
	assert.Equal(t, strings.Repeat("é", 100)+"...", list[1].Preview)
	assert.Equal(t, 1, list[1].MessageCount)
}

func TestLoad(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.StartSession("old")
	m.AppendTurn("q1", "a1", nil)
	id, err := m.Save(ctx, "")
	require.NoError(t, err)

	m.StartSession("new")
	assert.Empty(t, m.Turns())

	require.True(t, m.Load(ctx, id))
	cur, _ := m.Current()
	assert.Equal(t, id, cur.SessionId)
	require.Len(t, m.Turns(), 1)

	assert.False(t, m.Load(ctx, "nonexistent"))
	cur, _ = m.Current()
	assert.Equal(t, id, cur.SessionId)
}

func TestDelete(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	assert.False(t, m.Delete(ctx, "nonexistent"))

	id, err := m.Save(ctx, "")
	require.NoError(t, err)
	assert.True(t, m.Delete(ctx, id))
	assert.False(t, m.Delete(ctx, id))
}

func TestExport_JsonRoundTrip(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.StartSession("Round trip")
	m.AppendTurn("What is discussed?", "Broadcasting.", []commonModels.Citation{{Source: "reith_1948_transcript", ChunkIndex: 3}})
	id, err := m.Save(ctx, "")
	require.NoError(t, err)
	saved, _ := m.Get(ctx, id)

	path, ok := m.Export(ctx, id, sessionModel.ExportJson)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(m.ExportsDir(), id+".json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed sessionModel.Session
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, saved.SessionId, parsed.SessionId)
	assert.Equal(t, saved.SessionName, parsed.SessionName)
	assert.True(t, saved.StartTime.Equal(parsed.StartTime))
	assert.True(t, saved.LastUpdated.Equal(parsed.LastUpdated))
	assert.Equal(t, saved.MessageCount, parsed.MessageCount)
	assert.Equal(t, saved.Conversation, parsed.Conversation)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"session_id", "session_name", "start_time", "last_updated", "message_count", "conversation"} {
		assert.Contains(t, raw, key)
	}
}

func TestExport_TextAndMarkdown(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.StartSession("Lecture notes")
	m.AppendTurn("First?", "One.", []commonModels.Citation{{Source: "reith_1948_transcript", ChunkIndex: 0}})
	m.AppendTurn("Second?", "Two.", nil)
	id, err := m.Save(ctx, "")
	require.NoError(t, err)

	path, ok := m.Export(ctx, id, sessionModel.ExportTxt)
	require.True(t, ok)
	txt, _ := os.ReadFile(path)
	assert.Contains(t, string(txt), "Lecture notes")
	assert.Contains(t, string(txt), "Messages: 2")
	assert.Contains(t, string(txt), "Q: First?")
	assert.Contains(t, string(txt), "A: Two.")
	assert.Contains(t, string(txt), turnSeparator)

	path, ok = m.Export(ctx, id, sessionModel.ExportMd)
	require.True(t, ok)
	md, _ := os.ReadFile(path)
	assert.Contains(t, string(md), "# Lecture notes")
	assert.Contains(t, string(md), "## Question 1")
	assert.Contains(t, string(md), "## Question 2")
	assert.Contains(t, string(md), "- reith 1948")
}

func TestExport_Missing(t *testing.T) {
	m, _ := newManager(t)
	path, ok := m.Export(context.Background(), "nonexistent", sessionModel.ExportTxt)
	assert.False(t, ok)
	assert.Empty(t, path)

	_, ok = m.Export(context.Background(), "x", sessionModel.ExportFormat("pdf"))
	assert.False(t, ok)
}

type failingRepo struct{ sessionModel.Repository }

func (failingRepo) List(context.Context) ([]sessionModel.Session, error) {
	return nil, errors.New("disk error")
}

func (failingRepo) Delete(context.Context, string) (bool, error) {
	return false, errors.New("disk error")
}

func TestManager_RepositoryErrorsBecomeResults(t *testing.T) {
	m := NewManager(failingRepo{}, t.TempDir())
	assert.Empty(t, m.ListSessions(context.Background()))
	assert.False(t, m.Delete(context.Background(), "x"))
}
