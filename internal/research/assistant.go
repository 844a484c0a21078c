package research

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/llm"
	"github.com/scholarpipe/research-assistant/internal/observability"
)

// Assistant exposes the single-shot completion operations that do not
// need workflow orchestration: concept explanations and paper formatting
// checks. Retries are left to the provider's own policy since there is no
// pipeline state to protect.
type Assistant struct {
	provider llm.CompletionProvider
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewAssistant creates an assistant. metrics may be nil.
func NewAssistant(provider llm.CompletionProvider, logger zerolog.Logger, metrics *observability.Metrics) *Assistant {
	return &Assistant{
		provider: provider,
		logger:   logger,
		metrics:  metrics,
	}
}

// ExplainConcept returns an accessible explanation of the concept.
// extraContext is optional and narrows the explanation.
func (a *Assistant) ExplainConcept(ctx context.Context, concept, extraContext string) (string, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return "", domain.NewValidationError("concept", "must not be empty")
	}

	return a.complete(ctx, "explain", BuildExplainRequest(concept, extraContext))
}

// CheckPaper reviews a paper draft for formatting completeness and
// returns the reviewer report.
func (a *Assistant) CheckPaper(ctx context.Context, title, content string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", domain.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(content) == "" {
		return "", domain.NewValidationError("content", "must not be empty")
	}

	return a.complete(ctx, "check_paper", BuildCheckPaperRequest(title, content))
}

func (a *Assistant) complete(ctx context.Context, operation string, req llm.CompletionRequest) (string, error) {
	start := time.Now()
	res, err := a.provider.Complete(ctx, req)
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordLLMRequestFailed(operation, a.provider.Model(), domain.Classify(err).String())
		}
		a.logger.Error().Err(err).Str("operation", operation).Msg("completion failed")
		return "", err
	}
	if a.metrics != nil {
		a.metrics.RecordLLMRequest(operation, res.Model, time.Since(start).Seconds(), res.InputTokens, res.OutputTokens)
	}

	return strings.TrimSpace(res.Content), nil
}
