package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"github.com/google/uuid"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// doRetry reports whether err is a rate limit worth one more attempt.
func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}

func (c *Client) batchJobEmbedding(ctx context.Context, chunks []string, log *logger_i.Logger) ([][]float32, error) {
	displayName := uuid.NewString()
	log = log.With("batchJob", displayName)

	src := genai.EmbeddingsBatchJobSource{InlinedRequests: c.getInlinedBatchRequests(chunks)}
	conf := genai.CreateEmbeddingsBatchJobConfig{DisplayName: displayName}
	job, err := c.genAi.Batches.CreateEmbeddings(ctx, &c.model, &src, &conf)
	if err != nil {
		log.Error("Error creating batch embedding job", "error", err)
		return nil, err
	}

	answer, err := c.pollForAnswer(ctx, job.Name, log)
	if err != nil {
		return nil, err
	}
	return downloadAnswerFromClient(answer, len(chunks), log)
}

func (c *Client) getInlinedBatchRequests(chunks []string) *genai.EmbedContentBatch {
	return &genai.EmbedContentBatch{
		Config: &genai.EmbedContentConfig{
			OutputDimensionality: &c.dimension,
			TaskType:             taskDocument,
		},
		Contents: getContent(chunks),
	}
}

func (c *Client) pollForAnswer(ctx context.Context, batchJobName string, log *logger_i.Logger) (*genai.BatchJob, error) {
	ticker := time.NewTicker(config.EmbeddingBatchPollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Error("pollForAnswer cancelled", "error", ctx.Err())
			return nil, ctx.Err()

		case <-ticker.C:
			bJob, err := c.genAi.Batches.Get(ctx, batchJobName, nil)
			if err != nil {
				log.Warn("Error getting batch job", "error", err)
				continue
			}

			//https://pkg.go.dev/google.golang.org/genai@v1.41.1#JobState
			switch bJob.State {
			case "JOB_STATE_SUCCEEDED":
				log.Debug("batch job succeeded")
				return bJob, nil
			case "JOB_STATE_FAILED", "JOB_STATE_CANCELLED", "JOB_STATE_EXPIRED", "JOB_STATE_PARTIALLY_SUCCEEDED":
				log.Error("batch job ended early", "state", bJob.State)
				return nil, fmt.Errorf("embedding batch job %s ended in state %s", batchJobName, bJob.State)
			}
		}
	}
}

// downloadAnswerFromClient fails the whole batch if any chunk lacks a vector,
// since a partial upsert would leave the document half indexed.
func downloadAnswerFromClient(answer *genai.BatchJob, expected int, log *logger_i.Logger) ([][]float32, error) {
	if answer.Dest == nil {
		return nil, errors.New("embedding batch job returned no destination")
	}
	res := answer.Dest.InlinedEmbedContentResponses
	if len(res) != expected {
		return nil, fmt.Errorf("embedding batch job returned %d results for %d chunks", len(res), expected)
	}

	results := make([][]float32, 0, len(res))
	for i, r := range res {
		if r == nil || r.Error != nil || r.Response == nil || r.Response.Embedding == nil {
			log.Error("Error with a particular result in batch embedding", "index", i)
			return nil, fmt.Errorf("embedding batch job result %d missing", i)
		}
		results = append(results, r.Response.Embedding.Values)
	}
	return results, nil
}
