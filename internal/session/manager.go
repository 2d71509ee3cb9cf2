package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/adapter/utils"
	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

// Manager holds the active conversation and persists sessions through a
// Repository. One session is active at a time; appends to it must come from
// a single writer.
type Manager struct {
	repo       sessionModel.Repository
	exportsDir string
	clock      func() time.Time
	logger     *logger_i.Logger

	mu      sync.Mutex
	current *sessionModel.Session
}

type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

func NewManager(repo sessionModel.Repository, exportsDir string, opts ...Option) *Manager {
	if exportsDir == "" {
		exportsDir = config.DefaultExportsDir
	}
	m := &Manager{
		repo:       repo,
		exportsDir: exportsDir,
		clock:      time.Now,
		logger:     logger_i.NewLogger("sessions"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) ExportsDir() string {
	return m.exportsDir
}

// StartSession makes a fresh session active and returns its id.
func (m *Manager) StartSession(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(name)
}

func (m *Manager) startLocked(name string) string {
	now := m.clock()
	if strings.TrimSpace(name) == "" {
		name = DefaultName(now)
	}
	m.current = &sessionModel.Session{
		SessionId:    utils.GetNewUUID(),
		SessionName:  name,
		StartTime:    now,
		LastUpdated:  now,
		Conversation: []sessionModel.Turn{},
	}
	m.logger.Info("started session", "sessionId", m.current.SessionId)
	return m.current.SessionId
}

func DefaultName(t time.Time) string {
	return "Chat Session " + t.Format(config.SessionNameLayout)
}

// AppendTurn adds a turn to the active session, starting one if needed.
// Nothing is persisted until Save.
func (m *Manager) AppendTurn(question string, response string, sources []commonModels.Citation) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		m.startLocked("")
	}
	m.current.Conversation = append(m.current.Conversation, sessionModel.Turn{
		Question: question,
		Response: response,
		Sources:  slices.Clone(sources),
	})
	return m.current.SessionId
}

// Save writes the active session, starting an empty one if none is active.
// A non-empty name renames the session.
func (m *Manager) Save(ctx context.Context, name string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("session_save", time.Since(start)) }()

	m.mu.Lock()
	if m.current == nil {
		m.startLocked(name)
	}
	if strings.TrimSpace(name) != "" {
		m.current.SessionName = name
	}
	m.current.LastUpdated = m.clock()
	m.current.MessageCount = len(m.current.Conversation)
	record := cloneSession(*m.current)
	m.mu.Unlock()

	if err := m.repo.Save(ctx, record); err != nil {
		m.logger.FromContext(ctx).Error("could not save session", "sessionId", record.SessionId, "error", err)
		return record.SessionId, err
	}
	m.logger.FromContext(ctx).Info("saved session", "sessionId", record.SessionId, "messages", record.MessageCount)
	return record.SessionId, nil
}

// Load makes a persisted session active. Missing or unreadable records are
// logged and reported as false.
func (m *Manager) Load(ctx context.Context, id string) bool {
	record, err := m.repo.Get(ctx, id)
	if err != nil {
		m.logNotLoaded(ctx, id, err)
		return false
	}
	if record.Conversation == nil {
		record.Conversation = []sessionModel.Turn{}
	}

	m.mu.Lock()
	m.current = &record
	m.mu.Unlock()
	m.logger.FromContext(ctx).Info("loaded session", "sessionId", id, "messages", len(record.Conversation))
	return true
}

// Get reads a persisted session without making it active.
func (m *Manager) Get(ctx context.Context, id string) (sessionModel.Session, bool) {
	record, err := m.repo.Get(ctx, id)
	if err != nil {
		m.logNotLoaded(ctx, id, err)
		return sessionModel.Session{}, false
	}
	return record, true
}

// ListSessions returns summaries, most recently updated first.
func (m *Manager) ListSessions(ctx context.Context) []sessionModel.Summary {
	records, err := m.repo.List(ctx)
	if err != nil {
		m.logger.FromContext(ctx).Error("could not list sessions", "error", err)
		return []sessionModel.Summary{}
	}
	slices.SortStableFunc(records, func(a, b sessionModel.Session) int {
		return b.LastUpdated.Compare(a.LastUpdated)
	})

	out := make([]sessionModel.Summary, 0, len(records))
	for _, r := range records {
		out = append(out, summarize(r))
	}
	return out
}

// Delete removes a persisted session. It is false when nothing was deleted.
func (m *Manager) Delete(ctx context.Context, id string) bool {
	ok, err := m.repo.Delete(ctx, id)
	if err != nil {
		m.logger.FromContext(ctx).Error("could not delete session", "sessionId", id, "error", err)
		return false
	}
	if !ok {
		m.logger.FromContext(ctx).Warn("session to delete not found", "sessionId", id)
	}
	return ok
}

// Current returns a copy of the active session.
func (m *Manager) Current() (sessionModel.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return sessionModel.Session{}, false
	}
	return cloneSession(*m.current), true
}

func (m *Manager) Turns() []sessionModel.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return slices.Clone(m.current.Conversation)
}

func (m *Manager) Close() error {
	return m.repo.Close()
}

func (m *Manager) logNotLoaded(ctx context.Context, id string, err error) {
	log := m.logger.FromContext(ctx).With("sessionId", id)
	if errors.Is(err, commonModels.ErrNotFound) {
		log.Warn("session not found")
		return
	}
	log.Error("could not read session", "error", err)
}

func summarize(s sessionModel.Session) sessionModel.Summary {
	preview := ""
	if len(s.Conversation) > 0 {
		preview = truncate(s.Conversation[0].Question, config.SessionPreviewRunes)
	}
	count := s.MessageCount
	if count == 0 {
		count = len(s.Conversation)
	}
	return sessionModel.Summary{
		Id:           s.SessionId,
		Name:         s.SessionName,
		StartTime:    s.StartTime,
		LastUpdated:  s.LastUpdated,
		MessageCount: count,
		Preview:      preview,
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func cloneSession(s sessionModel.Session) sessionModel.Session {
	s.Conversation = slices.Clone(s.Conversation)
	return s
}
