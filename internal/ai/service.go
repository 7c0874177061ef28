package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"atsmatch/internal/config"
	"atsmatch/internal/errors"
	"atsmatch/internal/types"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Service runs the assessment against the single configured backend
type Service struct {
	provider Provider
	config   config.ResolvedAIConfig
	breaker  *AICircuitBreaker
	logger   *errors.Logger
}

// NewService creates the provider named by the resolved configuration
func NewService(ctx context.Context, cfg config.ResolvedAIConfig, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"max_tokens", cfg.MaxTokens,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)

	var provider Provider
	switch cfg.Provider {
	case config.ProviderOpenAI, config.ProviderGroq, config.ProviderGrok:
		provider = NewOpenAIProvider(cfg, logger)
	case config.ProviderGemini:
		gemini, err := NewGeminiProvider(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		provider = gemini
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	return NewServiceWithProvider(cfg, provider, logger), nil
}

// NewServiceWithProvider wires an already constructed backend
func NewServiceWithProvider(cfg config.ResolvedAIConfig, provider Provider, logger *errors.Logger) *Service {
	return &Service{
		provider: provider,
		config:   cfg,
		breaker:  NewAICircuitBreaker(cfg.Provider, cfg.CircuitBreaker, logger),
		logger:   logger,
	}
}

// ProviderInfo describes the active backend
func (s *Service) ProviderInfo() types.ProviderInfo {
	return types.ProviderInfo{
		Provider:    s.config.Provider,
		DisplayName: s.config.DisplayName,
		Model:       s.config.Model,
	}
}

// CircuitBreakerStats returns the breaker state for the stats endpoint
func (s *Service) CircuitBreakerStats() map[string]any {
	return s.breaker.GetStats()
}

// Close releases the backend
func (s *Service) Close() error {
	return s.provider.Close()
}

// Assess sends both texts to the model and returns the normalized assessment.
// jobText may be empty.
func (s *Service) Assess(ctx context.Context, resumeText, jobText string) (*types.Assessment, *TokenUsage, error) {
	tracer := otel.Tracer("atsmatch.ai")
	ctx, span := tracer.Start(ctx, "ai.assess")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", s.config.Provider),
		attribute.String("ai.model", s.config.Model),
		attribute.Int("input.resume_length", utf8.RuneCountInString(resumeText)),
		attribute.Int("input.job_length", utf8.RuneCountInString(jobText)),
		attribute.Bool("input.job_empty", strings.TrimSpace(jobText) == ""),
	)

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	req := CompletionRequest{
		SystemPrompt: resolveSystemPrompt(s.config.SystemPrompt),
		UserInput:    BuildUserInput(resumeText, jobText),
		Temperature:  s.config.Temperature,
		MaxTokens:    s.config.MaxTokens,
	}

	completion, err := s.breaker.Execute(func() (*Completion, error) {
		return executeWithRetry(ctx, s.config.MaxRetries, s.logger, "assess", func() (*Completion, error) {
			return s.provider.Complete(ctx, req)
		})
	})
	if err != nil {
		appErr := s.classifyError(err)
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Message)
		return nil, nil, appErr
	}

	usage := completion.Usage
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	if strings.TrimSpace(completion.Text) == "" {
		err := errors.NewAIError(errors.ErrCodeEmptyReply, "Model returned an empty reply", nil).
			WithContext("provider", s.config.Provider)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Message)
		return nil, usage, err
	}

	assessment, err := ParseReply(completion.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable reply")
		s.logger.LogError(err, "Model reply could not be parsed", "provider", s.config.Provider)
		return nil, usage, err
	}

	if assessment.ATSScore != nil {
		span.SetAttributes(attribute.Int("ats.score", *assessment.ATSScore))
	}
	span.SetAttributes(attribute.Bool("success", true))

	return assessment, usage, nil
}

// classifyError maps provider, breaker and context failures onto application errors
func (s *Service) classifyError(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}

	switch {
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.NewAIError(errors.ErrCodeCircuitOpen,
			"AI service temporarily unavailable", err).
			WithContext("provider", s.config.Provider)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewAIError(errors.ErrCodeAITimeout,
			"AI request timed out", err).
			WithContext("provider", s.config.Provider).
			WithContext("timeout", s.config.Timeout.String())
	default:
		return errors.NewAIError(errors.ErrCodeAIServiceFailed,
			fmt.Sprintf("%s request failed", s.config.DisplayName), err).
			WithContext("provider", s.config.Provider)
	}
}
