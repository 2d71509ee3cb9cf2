package llm

import "context"

// Provider turns one prompt into one completion. No streaming.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}
