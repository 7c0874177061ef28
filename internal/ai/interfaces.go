package ai

import (
	"context"
)

// Provider is a chat-completion backend.
// Every backend receives the same system instruction and tagged user input
// and returns the model's free-text reply.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Name() string
	Close() error
}

// CompletionRequest is a single system+user exchange
type CompletionRequest struct {
	SystemPrompt string
	UserInput    string
	Temperature  float32
	MaxTokens    int
}

// Completion is the raw reply of a backend
type Completion struct {
	Text  string
	Model string
	Usage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}
