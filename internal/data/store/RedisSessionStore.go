package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akolanti/TranscriptRAG/internal/data/redisStore"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

const (
	sessionKeyPrefix = "session:"
	sessionsByUpdate = "sessions:by_updated"
)

// RedisSessionStore keeps one JSON record per session plus a sorted set of
// session ids scored by last update.
type RedisSessionStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedisSessionStore(store *redisStore.Store) *RedisSessionStore {
	return &RedisSessionStore{
		store:  store,
		logger: logger_i.NewLogger("SessionStore").With("backend", "redis"),
	}
}

func (s *RedisSessionStore) Save(ctx context.Context, session sessionModel.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", session.SessionId, err)
	}
	score := float64(session.LastUpdated.UnixMilli())
	if err := s.store.SetIndexed(ctx, sessionKeyPrefix+session.SessionId, data, sessionsByUpdate, score, session.SessionId); err != nil {
		return fmt.Errorf("saving session %s: %w", session.SessionId, err)
	}
	s.logger.FromContext(ctx).Debug("session saved", "sessionId", session.SessionId)
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (sessionModel.Session, error) {
	var session sessionModel.Session
	val, err := s.store.Get(ctx, sessionKeyPrefix+id)
	if s.store.IsNil(err) {
		return session, commonModels.ErrNotFound
	} else if err != nil {
		return session, fmt.Errorf("reading session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return session, fmt.Errorf("parsing session %s: %w", id, err)
	}
	return session, nil
}

// List returns sessions most recently updated first. Records that vanished
// or no longer parse are skipped.
func (s *RedisSessionStore) List(ctx context.Context) ([]sessionModel.Session, error) {
	log := s.logger.FromContext(ctx)
	ids, err := s.store.Members(ctx, sessionsByUpdate)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	sessions := make([]sessionModel.Session, 0, len(ids))
	var stale []string
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, commonModels.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			log.Warn("skipping unreadable session", "sessionId", id, "error", err)
			continue
		}
		sessions = append(sessions, session)
	}
	if err := s.store.Unindex(ctx, sessionsByUpdate, stale...); err != nil {
		log.Warn("could not drop stale session ids", "error", err)
	}
	return sessions, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := s.store.DelIndexed(ctx, sessionKeyPrefix+id, sessionsByUpdate, id)
	if err != nil {
		return false, fmt.Errorf("deleting session %s: %w", id, err)
	}
	return existed, nil
}

func (s *RedisSessionStore) Close() error {
	return s.store.Close()
}
