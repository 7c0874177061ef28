package common

import (
	"context"
	"strings"

	"atsmatch/internal/errors"
	"atsmatch/internal/types"
)

// Matcher runs one resume/job comparison
type Matcher interface {
	Run(ctx context.Context, req types.MatchRequest) (*types.MatchOutcome, error)
}

// MatchInputs names the files and text given on the command line
type MatchInputs struct {
	ResumeFile string
	JobFile    string
	JobText    string
	SkipSave   bool
}

// RunMatchCommand reads the inputs, runs the matcher and writes the formatted outcome.
// Warnings are logged; they never fail the command.
func RunMatchCommand(
	ctx context.Context,
	logger *errors.Logger,
	matcher Matcher,
	cmdConfig CommandConfig,
	inputs MatchInputs,
	outputHandler *OutputHandler,
) error {
	fileProcessor := NewFileProcessor(logger, cmdConfig.MaxFileSize)

	if err := fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	resume, err := fileProcessor.ReadDocument(inputs.ResumeFile)
	if err != nil {
		return err
	}

	req := types.MatchRequest{
		Resume:   resume,
		JobText:  inputs.JobText,
		SkipSave: inputs.SkipSave,
	}

	if inputs.JobFile != "" && strings.TrimSpace(inputs.JobText) == "" {
		jobFile, err := fileProcessor.ReadDocument(inputs.JobFile)
		switch {
		case errors.IsCode(err, errors.ErrCodeFileTooLarge):
			req.JobFileErr = err
		case err != nil:
			return err
		default:
			req.JobFile = jobFile
		}
	}

	logger.Info("Starting resume match",
		"resume", resume.Filename,
		"job_file", inputs.JobFile,
		"job_text_chars", len(inputs.JobText),
		"output_format", cmdConfig.OutputFormat)

	outcome, err := matcher.Run(ctx, req)
	if err != nil {
		return err
	}

	for _, warning := range outcome.Warnings {
		logger.Warn(warning, "request_id", outcome.RequestID)
	}

	return outputHandler.HandleOutput(*outcome, cmdConfig)
}
