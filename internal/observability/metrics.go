package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom instruments.
// Every method is safe on a nil receiver so callers never check whether metrics are enabled.
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Pipeline metrics
	MatchesCompleted   metric.Int64Counter
	ATSScore           metric.Int64Histogram
	ExtractionDuration metric.Float64Histogram
	PersistenceCount   metric.Int64Counter

	// Certificate metrics
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter

	trackTokenUsage bool
	trackRateLimits bool
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// newMetrics creates every instrument on the given meter
func newMetrics(meter metric.Meter, cfg ObservabilityConfig) (*Metrics, error) {
	m := &Metrics{
		trackTokenUsage: cfg.TrackTokenUsage,
		trackRateLimits: cfg.TrackRateLimits,
	}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"atsmatch_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.AIRequestCount, err = meter.Int64Counter(
		"atsmatch_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	if m.AIErrorCount, err = meter.Int64Counter(
		"atsmatch_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	if m.AITokenUsage, err = meter.Int64Histogram(
		"atsmatch_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.MatchesCompleted, err = meter.Int64Counter(
		"atsmatch_matches_total",
		metric.WithDescription("Total number of resume/job matching runs"),
	); err != nil {
		return nil, fmt.Errorf("failed to create matches metric: %w", err)
	}

	if m.ATSScore, err = meter.Int64Histogram(
		"atsmatch_ats_score",
		metric.WithDescription("Distribution of returned ATS scores"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ATS score metric: %w", err)
	}

	if m.ExtractionDuration, err = meter.Float64Histogram(
		"atsmatch_extraction_duration_seconds",
		metric.WithDescription("Time spent extracting document text"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create extraction duration metric: %w", err)
	}

	if m.PersistenceCount, err = meter.Int64Counter(
		"atsmatch_persistence_total",
		metric.WithDescription("Evaluation store calls by mode and outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create persistence metric: %w", err)
	}

	if m.CertReloadCount, err = meter.Int64Counter(
		"atsmatch_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	if m.CertExpiryTime, err = meter.Float64Gauge(
		"atsmatch_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"atsmatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	if m == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("atsmatch.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	if result != nil && result.TokenUsage != nil {
		if m.trackTokenUsage {
			m.recordTokenMetrics(ctx, operation, result.TokenUsage)
		}
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
		)
	}
	span.SetAttributes(attrs...)

	return err
}

// recordTokenMetrics records one histogram sample per token type
func (m *Metrics) recordTokenMetrics(ctx context.Context, operation string, usage *TokenUsage) {
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}

	for _, tt := range tokenTypes {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordExtraction records how long one document took to turn into text
func (m *Metrics) RecordExtraction(ctx context.Context, format string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("format", format),
		attribute.Bool("success", err == nil),
	))
}

// RecordPersistence counts a store call; outcome is saved, unsaved or failed
func (m *Metrics) RecordPersistence(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	m.PersistenceCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
}

// RecordMatch counts a finished run and the score it produced
func (m *Metrics) RecordMatch(ctx context.Context, success, jobProvided bool, score *int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.Bool("job_provided", jobProvided),
	)
	m.MatchesCompleted.Add(ctx, 1, attrs)
	if score != nil {
		m.ATSScore.Record(ctx, int64(*score), metric.WithAttributes(attribute.Bool("job_provided", jobProvided)))
	}
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if m == nil || !m.trackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}

// RecordCertReload counts a certificate reload attempt
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCertExpiry records the time left on the serving certificate
func (m *Metrics) RecordCertExpiry(ctx context.Context, notAfter time.Time) {
	if m == nil {
		return
	}
	m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}
