package job

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/jobModel"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"github.com/google/uuid"
)

var ErrQueueFull = errors.New("job queue is full")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	if cfg.JobChannel == nil {
		cfg.JobChannel = make(chan jobModel.Job, config.BufferLimit)
	}
	if cfg.DispatcherChannel == nil {
		cfg.DispatcherChannel = make(chan bool, 1)
	}
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

// NewJob builds a queued job. documentIds only applies to reindex jobs.
func NewJob(traceId string, jobType jobModel.JobType, documentIds []string) jobModel.Job {
	return jobModel.Job{
		Id:          uuid.NewString(),
		TraceId:     traceId,
		JobType:     jobType,
		JobPayload:  jobModel.JobPayload{DocumentIds: documentIds},
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: initialStep(jobType),
	}
}

func initialStep(jobType jobModel.JobType) jobModel.InternalStatus {
	if jobType == jobModel.JobTypeClear {
		return jobModel.ClearIndexStep
	}
	return jobModel.ReindexInit
}

// Submit records the job as queued and hands it to the worker pool.
// It never blocks: a full queue is reported as ErrQueueFull.
func (s *Service) Submit(ctx context.Context, job jobModel.Job) error {
	log := s.logger.FromContext(ctx).With("jobId", job.Id)

	job.Status = jobModel.JobStatusQueued
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to save queued job", "error", err)
		return err
	}

	select {
	case s.JobChannel <- job:
	default:
		log.Warn("Job queue full, rejecting job")
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Error = jobModel.JobError{Code: 503, Message: ErrQueueFull.Error(), Retry: true}
		job.EndTime = time.Now()
		_ = s.JobStore.SaveJob(ctx, job)
		return ErrQueueFull
	}
	metrics.IncrementJobsInQueue()

	count := atomic.AddInt64(&s.RequestCount, 1)
	// reindex jobs are long running; index writes stay serialised inside index.Index
	if count%config.RequestsPerNewWorkerCount == 0 || job.JobType == jobModel.JobTypeReindex {
		s.signalDispatcher()
	}
	log.Info("Job queued", "type", job.JobType)
	return nil
}

func (s *Service) signalDispatcher() {
	select {
	case s.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
		// a signal is already pending
	}
}

func (s *Service) Status(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return s.JobStore.GetJob(ctx, jobId)
}
