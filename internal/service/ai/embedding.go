package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/piskoqo/backend/internal/config"
	"github.com/piskoqo/backend/internal/observability"
)

// EmbeddingService turns text into a vector through an OpenAI-compatible
// /embeddings endpoint.
type EmbeddingService struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	retry   RetryPolicy
	metrics *observability.Metrics
}

// NewEmbeddingService builds the client from the AI configuration.
func NewEmbeddingService(cfg config.AIConfig, metrics *observability.Metrics) (*EmbeddingService, error) {
	if !cfg.EmbeddingEnabled() {
		return nil, errors.New("embedding provider requires OPENROUTER_API_KEY and AI_EMBEDDING_MODEL")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &EmbeddingService{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.EmbeddingModel,
		timeout: cfg.Timeout,
		retry:   DefaultRetryPolicy(cfg.RetryAttempts),
		metrics: metrics,
	}, nil
}

// Embed returns the embedding of text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var vector []float32

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()

		resp, err := s.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(s.model),
		})
		if err != nil {
			return fmt.Errorf("create embeddings failed: %w", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return errEmptyEmbedding
		}
		vector = resp.Data[0].Embedding
		return nil
	})

	s.metrics.ObserveLLM("embedding", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return vector, nil
}

var errEmptyEmbedding = errors.New("empty embedding response")

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
