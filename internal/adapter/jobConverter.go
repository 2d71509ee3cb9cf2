package adapter

import (
	"fmt"

	"github.com/akolanti/TranscriptRAG/internal/api"
	"github.com/akolanti/TranscriptRAG/internal/domain/jobModel"
	"github.com/akolanti/TranscriptRAG/internal/domain/sessionModel"
	"github.com/akolanti/TranscriptRAG/internal/rag"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Step:   string(job.CurrentStep),
	}
	if job.JobType == jobModel.JobTypeReindex && job.Status == jobModel.JobStatusComplete {
		result.ReindexResult = ToReindexResult(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToReindexResult(payload jobModel.JobPayload) *api.ReindexResult {
	indexed := payload.IndexedDocs
	if indexed == nil {
		indexed = []string{}
	}
	return &api.ReindexResult{
		TotalChunks:    payload.TotalChunks,
		IndexedDocs:    indexed,
		FailedDocs:     payload.FailedDocs,
		SkippedReasons: payload.SkippedReasons,
	}
}

func ToChatResponse(sessionId string, result rag.AskResult) api.ChatResponse {
	return api.ChatResponse{
		SessionId:        sessionId,
		Response:         result.Response,
		Sources:          result.Sources,
		FormattedSources: rag.FormatSources(result.Sources),
		ContextUsed:      result.ContextUsed,
		Error:            result.Error,
	}
}

func ToExportResponse(sessionId string, format string, path string) api.ExportResponse {
	return api.ExportResponse{SessionId: sessionId, Format: format, Path: path}
}

func ToSessionList(summaries []sessionModel.Summary) api.SessionListResponse {
	if summaries == nil {
		summaries = []sessionModel.Summary{}
	}
	return api.SessionListResponse{Sessions: summaries}
}

func BadRequest(id string, error string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id:    id,
		Code:  code,
		Error: error,
	}
}
