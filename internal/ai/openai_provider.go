package ai

import (
	"context"
	"math"
	"net/http"

	"atsmatch/internal/config"
	appErrors "atsmatch/internal/errors"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI compatible chat-completion endpoint.
// Groq and xAI Grok are served by the same client with a different base URL.
type OpenAIProvider struct {
	client *openai.Client
	name   string
	model  string
	logger *appErrors.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider builds a client for the resolved backend
func NewOpenAIProvider(cfg config.ResolvedAIConfig, logger *appErrors.Logger) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		name:   cfg.Provider,
		model:  cfg.Model,
		logger: logger,
	}
}

// Name returns the backend identifier
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Complete issues one chat-completion call
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// temperature is omitempty on the wire; a zero would fall back to the server default
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserInput},
		},
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, appErrors.NewAIError(appErrors.ErrCodeEmptyReply, "model returned no choices", nil).
			WithContext("provider", p.name)
	}

	if p.logger != nil {
		p.logger.Debug("Chat completion received",
			"provider", p.name,
			"model", resp.Model,
			"finish_reason", string(resp.Choices[0].FinishReason),
			"total_tokens", resp.Usage.TotalTokens)
	}

	return &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: &TokenUsage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
			TotalTokens:  int64(resp.Usage.TotalTokens),
		},
	}, nil
}

// Close implements Provider; the HTTP client holds no resources of its own.
func (p *OpenAIProvider) Close() error {
	return nil
}
