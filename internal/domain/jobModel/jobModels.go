package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	ReindexInit    InternalStatus = "ReindexInit"
	ListDocuments  InternalStatus = "ListDocuments"
	ChunkAndEmbed  InternalStatus = "ChunkAndEmbed"
	ClearIndexStep InternalStatus = "ClearIndex"
	Error          InternalStatus = "Error"
	Complete       InternalStatus = "Complete"

	JobTypeReindex JobType = "Reindex"
	JobTypeClear   JobType = "ClearIndex"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	// DocumentIds limits a reindex to these documents; empty means the whole directory.
	DocumentIds []string `json:"document_ids,omitempty"`

	TotalChunks    int      `json:"total_chunks"`
	IndexedDocs    []string `json:"indexed_docs,omitempty"`
	FailedDocs     []string `json:"failed_docs,omitempty"`
	SkippedReasons []string `json:"skipped_reasons,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
