package cli

import (
	"context"
	"fmt"

	"atsmatch/internal/ai"
	"atsmatch/internal/config"
	"atsmatch/internal/errors"
	"atsmatch/internal/extract"
	"atsmatch/internal/match"
	"atsmatch/internal/observability"
	"atsmatch/internal/store"
)

// buildPipeline creates the AI service, the store client and the matching pipeline.
// The caller closes the returned service.
func buildPipeline(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *errors.Logger) (*match.Pipeline, *ai.Service, error) {
	resolved, err := cfg.ResolveAI()
	if err != nil {
		return nil, nil, err
	}

	aiService, err := ai.NewService(ctx, resolved, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI service: %w", err)
	}

	pipeline := match.NewPipeline(
		extract.New(),
		aiService,
		store.New(cfg.Store, logger),
		match.Options{MaxTextChars: cfg.Store.MaxTextChars, Metrics: metrics},
		logger,
	)

	logger.Debug("Pipeline ready",
		"provider", resolved.DisplayName,
		"model", resolved.Model,
		"store_mode", pipeline.StoreMode())

	return pipeline, aiService, nil
}
