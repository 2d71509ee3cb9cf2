package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/jobModel"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

// InMemoryJobStore keeps reindex jobs in a map. Finished jobs are dropped
// once they are older than the ttl, matching the redis key expiry.
type InMemoryJobStore struct {
	jobMutex sync.RWMutex
	jobMap   map[string]jobModel.Job
	ttl      time.Duration
	now      func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return newInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

func newInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMap: make(map[string]jobModel.Job),
		ttl:    ttl,
		now:    now,
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, jobToStore jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	store.pruneLocked()
	store.jobMap[jobToStore.Id] = jobToStore
	inMemLogger.FromContext(ctx).Debug("Saved job to store", "jobId", jobToStore.Id, "status", jobToStore.Status)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	result, found := store.jobMap[jobId]
	if found && store.expired(result) {
		found = false
		result = jobModel.Job{}
	}
	inMemLogger.FromContext(ctx).Debug("job lookup", "jobId", jobId, "found", found)
	return result, found
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobMap, jobID)
}

// Len counts stored jobs, expired ones included until the next save.
func (store *InMemoryJobStore) Len() int {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	return len(store.jobMap)
}

func (store *InMemoryJobStore) expired(j jobModel.Job) bool {
	if j.EndTime.IsZero() {
		return false
	}
	return store.now().Sub(j.EndTime) > store.ttl
}

func (store *InMemoryJobStore) pruneLocked() {
	for id, j := range store.jobMap {
		if store.expired(j) {
			delete(store.jobMap, id)
		}
	}
}
