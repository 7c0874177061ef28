// Package match runs one resume/job comparison: extraction, assessment and persistence.
package match

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"atsmatch/internal/ai"
	"atsmatch/internal/errors"
	"atsmatch/internal/extract"
	"atsmatch/internal/observability"
	"atsmatch/internal/store"
	"atsmatch/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Warning texts shown next to a result
const (
	WarnNoJobDescription = "No job description provided — analysis only based on resume."
	WarnNotSaved         = "Evaluation not saved."
)

// Extractor turns a document into plain text
type Extractor interface {
	Extract(data []byte, filename string) (string, error)
}

// Assessor compares resume text against job text
type Assessor interface {
	Assess(ctx context.Context, resumeText, jobText string) (*types.Assessment, *ai.TokenUsage, error)
	ProviderInfo() types.ProviderInfo
}

// Saver persists the evaluation record
type Saver interface {
	Save(ctx context.Context, record types.EvaluationRecord) (types.SaveResult, error)
	Mode() string
}

var _ Saver = store.Disabled{}

// Options tune a Pipeline
type Options struct {
	// MaxTextChars bounds each persisted text field.
	MaxTextChars int
	Metrics      *observability.Metrics
}

// Pipeline executes matching runs. It holds no per-request state.
type Pipeline struct {
	extractor    Extractor
	assessor     Assessor
	saver        Saver
	maxTextChars int
	metrics      *observability.Metrics
	validate     *validator.Validate
	logger       *errors.Logger
}

// NewPipeline wires the three steps together
func NewPipeline(extractor Extractor, assessor Assessor, saver Saver, opts Options, logger *errors.Logger) *Pipeline {
	if saver == nil {
		saver = store.Disabled{}
	}
	if opts.MaxTextChars <= 0 {
		opts.MaxTextChars = 30000
	}
	return &Pipeline{
		extractor:    extractor,
		assessor:     assessor,
		saver:        saver,
		maxTextChars: opts.MaxTextChars,
		metrics:      opts.Metrics,
		validate:     newValidator(),
		logger:       logger,
	}
}

// ProviderInfo describes the backend used by Run
func (p *Pipeline) ProviderInfo() types.ProviderInfo {
	return p.assessor.ProviderInfo()
}

// StoreMode reports where evaluations are persisted
func (p *Pipeline) StoreMode() string {
	return p.saver.Mode()
}

// Run executes one request. Resume problems and assessment failures abort the run;
// job description and persistence problems only add warnings.
func (p *Pipeline) Run(ctx context.Context, req types.MatchRequest) (*types.MatchOutcome, error) {
	outcome := &types.MatchOutcome{
		RequestID: uuid.NewString(),
		Provider:  p.assessor.ProviderInfo(),
	}
	logger := p.logger.With("request_id", outcome.RequestID)

	if err := p.validateRequest(req); err != nil {
		p.metrics.RecordMatch(ctx, false, false, nil)
		return nil, err
	}

	resumeText, err := p.extract(ctx, req.Resume)
	if err != nil {
		logger.LogError(err, "Failed to extract resume text")
		p.metrics.RecordMatch(ctx, false, false, nil)
		return nil, err
	}

	jobText := p.jobText(ctx, req, outcome, logger)
	jobProvided := strings.TrimSpace(jobText) != ""
	if !jobProvided {
		outcome.Warnings = append(outcome.Warnings, WarnNoJobDescription)
	}

	outcome.ResumeChars = utf8.RuneCountInString(resumeText)
	outcome.JobChars = utf8.RuneCountInString(jobText)

	var assessment *types.Assessment
	err = p.metrics.TrackAIOperationWithTokens(ctx, "assess", func(ctx context.Context) *observability.AIOperationResult {
		var usage *ai.TokenUsage
		var assessErr error
		assessment, usage, assessErr = p.assessor.Assess(ctx, resumeText, jobText)
		return &observability.AIOperationResult{Error: assessErr, TokenUsage: toObservedUsage(usage)}
	})
	if err != nil {
		logger.LogError(err, "AI analysis failed", "provider", outcome.Provider.Provider)
		p.metrics.RecordMatch(ctx, false, jobProvided, nil)
		return nil, err
	}
	outcome.Assessment = assessment

	if !req.SkipSave {
		p.save(ctx, resumeText, jobText, outcome, logger)
	}

	p.metrics.RecordMatch(ctx, true, jobProvided, assessment.ATSScore)
	logger.Info("Match completed",
		"provider", outcome.Provider.Provider,
		"resume_chars", outcome.ResumeChars,
		"job_chars", outcome.JobChars,
		"saved", outcome.Saved,
		"warnings", len(outcome.Warnings))

	return outcome, nil
}

// jobText resolves the job description: pasted text wins over an uploaded file
func (p *Pipeline) jobText(ctx context.Context, req types.MatchRequest, outcome *types.MatchOutcome, logger *errors.Logger) string {
	if strings.TrimSpace(req.JobText) != "" {
		return req.JobText
	}
	if req.JobFileErr != nil {
		logger.Warn("Job description file rejected", "error", req.JobFileErr.Error())
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("Failed to extract job description: %s", userMessage(req.JobFileErr)))
		return ""
	}
	if req.JobFile == nil || len(req.JobFile.Data) == 0 {
		return ""
	}

	text, err := p.extract(ctx, req.JobFile)
	if err != nil {
		logger.Warn("Failed to extract job description", "filename", req.JobFile.Filename, "error", err.Error())
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("Failed to extract job description: %s", userMessage(err)))
		return ""
	}
	return text
}

func (p *Pipeline) extract(ctx context.Context, doc *types.Document) (string, error) {
	start := time.Now()
	text, err := p.extractor.Extract(doc.Data, doc.Filename)
	p.metrics.RecordExtraction(ctx, string(extract.DetectFormat(doc.Filename)), time.Since(start), err)
	return text, err
}

// save persists the record; failures are reported on the outcome and never abort the run
func (p *Pipeline) save(ctx context.Context, resumeText, jobText string, outcome *types.MatchOutcome, logger *errors.Logger) {
	mode := p.saver.Mode()
	if mode == store.ModeDisabled {
		return
	}

	record := store.NewRecord(resumeText, jobText, outcome.Assessment, p.maxTextChars)
	result, err := p.saver.Save(ctx, record)
	switch {
	case err != nil:
		logger.LogError(err, "Could not save evaluation", "mode", mode)
		outcome.SaveError = userMessage(err)
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("Could not save evaluation: %s", outcome.SaveError))
		p.metrics.RecordPersistence(ctx, mode, "failed")
	case !result.Saved:
		outcome.Warnings = append(outcome.Warnings, WarnNotSaved)
		p.metrics.RecordPersistence(ctx, mode, "unsaved")
	default:
		outcome.Saved = true
		outcome.ObjectID = result.ObjectID
		p.metrics.RecordPersistence(ctx, mode, "saved")
	}
}

// userMessage prefers the AppError message over the wrapped chain
func userMessage(err error) string {
	if appErr, ok := errors.As(err); ok {
		if appErr.Cause != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
		return appErr.Message
	}
	return err.Error()
}

func toObservedUsage(usage *ai.TokenUsage) *observability.TokenUsage {
	if usage == nil {
		return nil
	}
	return &observability.TokenUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
	}
}
