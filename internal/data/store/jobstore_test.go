package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/data/redisStore"
	"github.com/akolanti/TranscriptRAG/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisJobStore(t *testing.T) (*RedisJobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisJobStore(redisStore.NewTestStore(client)), mr
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	jobStore, mr := newRedisJobStore(t)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:      jobID,
		JobType: jobModel.JobTypeReindex,
		Status:  jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			DocumentIds: []string{"reith_1948_transcript"},
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if len(retrievedJob.JobPayload.DocumentIds) != 1 || retrievedJob.JobPayload.DocumentIds[0] != "reith_1948_transcript" {
			t.Errorf("Data mismatch! Got %v", retrievedJob.JobPayload.DocumentIds)
		}
		if ttl := mr.TTL(jobKeyPrefix + jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("TTL got %v, want %v", ttl, config.RedisJobStoreTTL)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Corrupt Job", func(t *testing.T) {
		_ = mr.Set(jobKeyPrefix+"bad", "{not json")
		if _, found := jobStore.GetJob(ctx, "bad"); found {
			t.Error("Expected found=false for corrupt record")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists(jobKeyPrefix + jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	jobStore, _ := newRedisJobStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("job missing after concurrent saves")
	}
}

func TestInMemoryJobStore(t *testing.T) {
	s := InitInMemoryJobStore()
	ctx := context.Background()

	_ = s.SaveJob(ctx, jobModel.Job{Id: "j1", Status: jobModel.JobStatusQueued})
	got, found := s.GetJob(ctx, "j1")
	if !found || got.Status != jobModel.JobStatusQueued {
		t.Fatalf("got %+v found=%v", got, found)
	}

	s.DeleteJob(ctx, "j1")
	if _, found := s.GetJob(ctx, "j1"); found {
		t.Error("job still present after delete")
	}
}

func TestInMemoryJobStore_ExpiresFinishedJobs(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newInMemoryJobStore(time.Hour, func() time.Time { return now })
	ctx := context.Background()

	_ = s.SaveJob(ctx, jobModel.Job{Id: "done", Status: jobModel.JobStatusComplete, EndTime: now.Add(-2 * time.Hour)})
	_ = s.SaveJob(ctx, jobModel.Job{Id: "recent", Status: jobModel.JobStatusComplete, EndTime: now.Add(-time.Minute)})
	_ = s.SaveJob(ctx, jobModel.Job{Id: "running", Status: jobModel.JobStatusRunning})

	if _, found := s.GetJob(ctx, "done"); found {
		t.Error("expired job still visible")
	}
	if _, found := s.GetJob(ctx, "recent"); !found {
		t.Error("recent job missing")
	}
	if _, found := s.GetJob(ctx, "running"); !found {
		t.Error("unfinished job missing")
	}

	// the next save prunes what has expired
	_ = s.SaveJob(ctx, jobModel.Job{Id: "queued", Status: jobModel.JobStatusQueued})
	if s.Len() != 3 {
		t.Errorf("Len got %d, want 3", s.Len())
	}
}
