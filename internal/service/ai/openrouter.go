package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
)

// openRouterChatModel adapts an OpenAI-compatible chat completion endpoint
// (OpenRouter by default) to eino's ChatModel so it can sit in a chain next
// to the Ark model.
type openRouterChatModel struct {
	client    *openai.Client
	model     string
	maxTokens int
}

var _ model.ChatModel = (*openRouterChatModel)(nil)

func newOpenRouterChatModel(apiKey, baseURL, modelName string, maxTokens int) *openRouterChatModel {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &openRouterChatModel{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     modelName,
		maxTokens: maxTokens,
	}
}

func (m *openRouterChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName := m.model
	maxTokens := m.maxTokens
	options := model.GetCommonOptions(&model.Options{Model: &modelName, MaxTokens: &maxTokens}, opts...)

	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: toOpenAIMessages(input),
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	if options.TopP != nil {
		req.TopP = *options.TopP
	}
	if len(options.Stop) > 0 {
		req.Stop = options.Stop
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	msg := schema.AssistantMessage("", nil)
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		msg.Content = choice.Message.Content
		msg.ResponseMeta = &schema.ResponseMeta{FinishReason: string(choice.FinishReason)}
	} else {
		msg.ResponseMeta = &schema.ResponseMeta{}
	}
	msg.ResponseMeta.Usage = &schema.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return msg, nil
}

// Stream emits the whole completion as a single chunk.
func (m *openRouterChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *openRouterChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("openrouter chat model: tool calling is not supported")
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case schema.System:
			role = openai.ChatMessageRoleSystem
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		case schema.Tool:
			role = openai.ChatMessageRoleTool
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}
