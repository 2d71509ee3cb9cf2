package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	jobmodel "github.com/akolanti/TranscriptRAG/internal/domain/jobModel"
	"github.com/akolanti/TranscriptRAG/internal/metrics"
)

func (p *Pool) executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, p.opts.JobTimeout)
	defer cancel()

	log := p.logger.FromContext(ctx).With("jobId", job.Id, "type", job.JobType)
	log.Debug("Processing job")

	job = p.saveJobState(ctx, job, jobmodel.JobStatusRunning)

	var err error
	switch job.JobType {
	case jobmodel.JobTypeReindex:
		job.CurrentStep = jobmodel.ChunkAndEmbed
		job, err = p.reindex(ctx, job)
	case jobmodel.JobTypeClear:
		job.CurrentStep = jobmodel.ClearIndexStep
		err = p.runner.Clear(ctx)
	default:
		err = fmt.Errorf("unknown job type %q", job.JobType)
	}

	job.EndTime = time.Now()
	if err != nil {
		log.Error("Job failed", "error", err, "step", job.CurrentStep)
		job.CurrentStep = jobmodel.Error
		job.Error = jobmodel.JobError{
			Code:    500,
			Message: err.Error(),
			Retry:   errors.Is(err, context.DeadlineExceeded),
		}
		job = p.saveJobState(ctx, job, jobmodel.JobStatusError)
		return
	}

	job.CurrentStep = jobmodel.Complete
	job = p.saveJobState(ctx, job, jobmodel.JobStatusComplete)
	log.Info("Job complete", "chunks", job.JobPayload.TotalChunks, "elapsed", time.Since(start))
}

func (p *Pool) reindex(ctx context.Context, job jobmodel.Job) (jobmodel.Job, error) {
	report, err := p.runner.Reindex(ctx, job.JobPayload.DocumentIds)
	if err != nil {
		return job, err
	}

	job.JobPayload.TotalChunks = report.TotalChunks
	job.JobPayload.IndexedDocs = report.Indexed
	job.JobPayload.FailedDocs = nil
	job.JobPayload.SkippedReasons = nil
	for _, f := range report.Failed {
		job.JobPayload.FailedDocs = append(job.JobPayload.FailedDocs, f.DocumentId)
		job.JobPayload.SkippedReasons = append(job.JobPayload.SkippedReasons, f.DocumentId+": "+f.Reason)
	}
	return job, nil
}

func (p *Pool) saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) jobmodel.Job {
	job.Status = jobStatus
	// the job context may already be past its deadline when recording the failure
	saveCtx := context.WithoutCancel(ctx)
	if err := p.jobService.JobStore.SaveJob(saveCtx, job); err != nil {
		p.logger.FromContext(ctx).Error("Failed to update job status", "jobId", job.Id, "err", err)
	}
	return job
}
