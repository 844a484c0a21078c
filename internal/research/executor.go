package research

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/observability"
)

// StageConfig holds the retry and timeout configuration for a single
// pipeline stage.
type StageConfig struct {
	// Name is the stage identifier (e.g. "search", "synthesize").
	Name string

	// MaxRetries is the maximum number of retry attempts for transient errors.
	MaxRetries int

	// AttemptTimeout bounds a single collaborator call. Zero means no
	// per-attempt timeout beyond the workflow context.
	AttemptTimeout time.Duration

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// BackoffMultiplier controls exponential growth of the backoff interval.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff interval.
	MaxBackoff time.Duration
}

// backoffForAttempt computes the backoff duration for the given attempt (0-indexed).
func (c StageConfig) backoffForAttempt(attempt int) time.Duration {
	backoff := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * c.BackoffMultiplier)
		if backoff > c.MaxBackoff {
			backoff = c.MaxBackoff
			break
		}
	}
	return backoff
}

// DefaultStageConfigs returns the standard stage configurations for the
// research workflow pipeline.
func DefaultStageConfigs() map[string]StageConfig {
	return map[string]StageConfig{
		StageSearch: {
			Name:              StageSearch,
			MaxRetries:        2,
			AttemptTimeout:    30 * time.Second,
			InitialBackoff:    2 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Second,
		},
		StageSynthesize: {
			Name:              StageSynthesize,
			MaxRetries:        2,
			AttemptTimeout:    60 * time.Second,
			InitialBackoff:    2 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Second,
		},
		StageExtend: {
			Name:              StageExtend,
			MaxRetries:        2,
			AttemptTimeout:    60 * time.Second,
			InitialBackoff:    2 * time.Second,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Second,
		},
	}
}

// Stage name constants used across the engine, metrics, and events.
const (
	StageSearch     = "search"
	StageSynthesize = "synthesize"
	StageExtend     = "extend"
)

// StageExecutor runs one collaborator call with a bounded retry policy.
// Transient failures are retried with exponential backoff; permanent and
// cancelled failures return immediately. All failures come back as a
// *domain.StageError so the engine can record them deterministically.
type StageExecutor struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewStageExecutor creates a stage executor. metrics may be nil.
func NewStageExecutor(logger zerolog.Logger, metrics *observability.Metrics) *StageExecutor {
	return &StageExecutor{
		logger:  logger,
		metrics: metrics,
	}
}

// Execute runs fn under cfg's retry policy. fn receives a context bounded
// by cfg.AttemptTimeout for each attempt. A nil return means the stage
// succeeded; any non-nil return is a *domain.StageError carrying the
// classified failure category.
func (e *StageExecutor) Execute(ctx context.Context, cfg StageConfig, fn func(ctx context.Context) error) error {
	logger := e.logger.With().Str("stage", cfg.Name).Logger()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := e.runAttempt(ctx, cfg, fn)
		if err == nil {
			if e.metrics != nil {
				e.metrics.RecordStageCompleted(cfg.Name, time.Since(start).Seconds())
			}
			return nil
		}
		lastErr = err

		// The workflow context being done overrides any classification.
		if ctx.Err() != nil {
			stageErr := domain.NewStageError(cfg.Name, ctx.Err())
			e.recordFailure(cfg.Name, stageErr)
			return stageErr
		}

		category := domain.Classify(err)
		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxRetries+1).
			Str("category", category.String()).
			Msg("stage attempt failed")

		switch category {
		case domain.CategoryCancelled, domain.CategoryPermanent:
			stageErr := domain.NewStageError(cfg.Name, err)
			e.recordFailure(cfg.Name, stageErr)
			return stageErr

		case domain.CategoryTransient:
			if attempt < cfg.MaxRetries {
				backoff := cfg.backoffForAttempt(attempt)
				logger.Info().
					Dur("backoff", backoff).
					Int("attempt", attempt+1).
					Msg("retrying stage after backoff")
				if e.metrics != nil {
					e.metrics.RecordStageRetry(cfg.Name)
				}
				if sleepErr := sleepContext(ctx, backoff); sleepErr != nil {
					stageErr := domain.NewStageError(cfg.Name, sleepErr)
					e.recordFailure(cfg.Name, stageErr)
					return stageErr
				}
				continue
			}
		}
	}

	// Retries exhausted.
	stageErr := domain.NewStageError(cfg.Name, lastErr)
	e.recordFailure(cfg.Name, stageErr)
	return stageErr
}

// runAttempt executes fn once under the per-attempt timeout.
func (e *StageExecutor) runAttempt(ctx context.Context, cfg StageConfig, fn func(ctx context.Context) error) error {
	if cfg.AttemptTimeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

func (e *StageExecutor) recordFailure(stage string, err *domain.StageError) {
	if e.metrics != nil {
		e.metrics.RecordStageFailed(stage, err.Category.String())
	}
}

// sleepContext waits for the given duration, respecting context cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
