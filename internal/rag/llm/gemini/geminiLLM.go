package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/domain/commonModels"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type Config struct {
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

type Client struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, commonModels.ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = config.GeminiModelName
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	logger := logger_i.NewLogger("llm_gemini").With("model", cfg.Model)
	logger.Info("Gemini client created")
	return &Client{client: c, modelName: cfg.Model, logger: logger}, nil
}

func (c *Client) Name() string {
	return "gemini:" + c.modelName
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	log := c.logger.FromContext(ctx)
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: config.ModelContext}},
		},
		Temperature:     genai.Ptr(config.ModelTemperature),
		MaxOutputTokens: config.ModelMaxOutputTokens,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
	if err != nil {
		log.Error("gemini generation failed", "error", err)
		return "", err
	}
	if result == nil {
		return "", errors.New("gemini returned no result")
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}
