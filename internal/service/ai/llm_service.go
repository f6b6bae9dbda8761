package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/piskoqo/backend/internal/config"
	"github.com/piskoqo/backend/internal/observability"
)

// Service issues one chat completion per user message.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	retry     RetryPolicy
	metrics   *observability.Metrics
}

// NewChatModel picks the configured provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		return cfg.NewArkChatModel(ctx)
	case config.ProviderOpenRouter, "":
		if !cfg.Enabled() {
			return nil, fmt.Errorf("OPENROUTER_API_KEY and AI_MODEL are required for provider %s", config.ProviderOpenRouter)
		}
		return newOpenRouterChatModel(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// NewService compiles the system+user prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig, metrics *observability.Metrics) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
		retry:     DefaultRetryPolicy(cfg.RetryAttempts),
		metrics:   metrics,
	}, nil
}

// Generate returns the first choice's content, or "" when the provider sends
// none.
func (s *Service) Generate(ctx context.Context, system, userMessage string, temperature float32) (string, error) {
	input := map[string]any{
		"system": system,
		"query":  userMessage,
	}

	opts := []model.Option{model.WithTemperature(temperature)}
	if s.cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(s.cfg.MaxTokens))
	}

	start := time.Now()
	var response *schema.Message
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := withTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		msg, err := s.chain.Invoke(callCtx, input, compose.WithChatModelOption(opts...))
		if err != nil {
			return err
		}
		response = msg
		return nil
	})
	s.metrics.ObserveLLM("chat", err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	if response == nil {
		return "", nil
	}
	log.Printf("[ai] generated response provider=%s temperature=%.2f length=%d", s.provider(), temperature, len(response.Content))
	return response.Content, nil
}

func (s *Service) provider() config.Provider {
	if s.cfg.Provider == "" {
		return config.ProviderOpenRouter
	}
	return s.cfg.Provider
}
