package commonModels

import "errors"

var (
	ErrNotConfigured     = errors.New("generative model not configured")
	ErrModelTimeout      = errors.New("generative model timed out")
	ErrEmptySourceID     = errors.New("source filter contains an empty document id")
	ErrNotFound          = errors.New("not found")
	ErrVectorMismatch    = errors.New("chunk and vector counts differ")
	ErrDimensionMismatch = errors.New("collection vector size does not match the embedder")
)
