package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	_ "modernc.org/sqlite"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	start_time    TEXT NOT NULL,
	last_updated  TEXT NOT NULL,
	message_count INTEGER NOT NULL,
	conversation  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_last_updated_idx ON sessions (last_updated DESC);
`

// SQLiteSessionStore keeps sessions in a local database file.
type SQLiteSessionStore struct {
	db     *sql.DB
	path   string
	logger *logger_i.Logger
}

func NewSQLiteSessionStore(path string) (*SQLiteSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}
	return &SQLiteSessionStore{
		db:     db,
		path:   path,
		logger: logger_i.NewLogger("SessionStore").With("backend", "sqlite"),
	}, nil
}

func (s *SQLiteSessionStore) Path() string {
	return s.path
}

func (s *SQLiteSessionStore) Save(ctx context.Context, session sessionModel.Session) error {
	conversation, err := json.Marshal(session.Conversation)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", session.SessionId, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, start_time, last_updated, message_count, conversation)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_time = excluded.start_time,
			last_updated = excluded.last_updated,
			message_count = excluded.message_count,
			conversation = excluded.conversation`,
		session.SessionId, session.SessionName, formatTime(session.StartTime), formatTime(session.LastUpdated),
		session.MessageCount, string(conversation))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", session.SessionId, err)
	}
	s.logger.FromContext(ctx).Debug("session saved", "sessionId", session.SessionId)
	return nil
}

func (s *SQLiteSessionStore) Get(ctx context.Context, id string) (sessionModel.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, start_time, last_updated, message_count, conversation
		FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sessionModel.Session{}, commonModels.ErrNotFound
	}
	if err != nil {
		return sessionModel.Session{}, fmt.Errorf("reading session %s: %w", id, err)
	}
	return session, nil
}

func (s *SQLiteSessionStore) List(ctx context.Context) ([]sessionModel.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_time, last_updated, message_count, conversation
		FROM sessions ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []sessionModel.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			s.logger.FromContext(ctx).Warn("skipping unreadable session", "error", err)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (sessionModel.Session, error) {
	var session sessionModel.Session
	var start, updated, conversation string
	if err := row.Scan(&session.SessionId, &session.SessionName, &start, &updated, &session.MessageCount, &conversation); err != nil {
		return session, err
	}
	var err error
	if session.StartTime, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return session, fmt.Errorf("parsing start_time: %w", err)
	}
	if session.LastUpdated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return session, fmt.Errorf("parsing last_updated: %w", err)
	}
	if err := json.Unmarshal([]byte(conversation), &session.Conversation); err != nil {
		return session, fmt.Errorf("parsing conversation: %w", err)
	}
	return session, nil
}

// fixed-width UTC so the text column sorts chronologically
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sortableTime)
}
