// Package research implements the workflow orchestration and progress
// tracking engine: it creates research workflows, drives their stages in
// the correct order and concurrency, records progress snapshots for
// pollers, and resolves each workflow to a terminal result or failure.
//
// A workflow runs search sequentially, then forks synthesize and extend
// into two concurrent branches that are barrier-joined before the
// workflow completes. All collaborator calls go through the StageExecutor
// retry policy; all observable state lives in the ProgressStore.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/llm"
	"github.com/scholarpipe/research-assistant/internal/observability"
)

// DefaultMaxPapers is the upper bound on papers per workflow when the
// engine config does not override it.
const DefaultMaxPapers = 10

// EventPublisher publishes workflow lifecycle events. Publishing is best
// effort; the engine logs and continues when a publish fails.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// EngineConfig holds the tunable parameters of the workflow engine.
type EngineConfig struct {
	// MaxPapers is the inclusive upper bound accepted by Start.
	// Defaults to DefaultMaxPapers.
	MaxPapers int

	// Stages overrides the per-stage retry configuration.
	// Defaults to DefaultStageConfigs.
	Stages map[string]StageConfig
}

// Engine drives research workflows from creation to terminal state.
// Start never blocks on collaborator I/O; each workflow executes in its
// own goroutine and is the only writer for its progress record.
type Engine struct {
	cfg       EngineConfig
	store     *ProgressStore
	searcher  PaperSearcher
	provider  llm.CompletionProvider
	executor  *StageExecutor
	publisher EventPublisher
	logger    zerolog.Logger
	metrics   *observability.Metrics

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine creates a workflow engine. publisher and metrics may be nil.
func NewEngine(
	cfg EngineConfig,
	store *ProgressStore,
	searcher PaperSearcher,
	provider llm.CompletionProvider,
	executor *StageExecutor,
	publisher EventPublisher,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Engine {
	if cfg.MaxPapers <= 0 {
		cfg.MaxPapers = DefaultMaxPapers
	}
	if cfg.Stages == nil {
		cfg.Stages = DefaultStageConfigs()
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:        cfg,
		store:      store,
		searcher:   searcher,
		provider:   provider,
		executor:   executor,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Start validates the request, registers a pending workflow, launches its
// background execution, and returns the workflow id immediately.
func (e *Engine) Start(topic string, maxPapers int) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", domain.NewValidationError("topic", "must not be empty")
	}
	if maxPapers < 1 || maxPapers > e.cfg.MaxPapers {
		return "", domain.NewValidationError("max_papers",
			fmt.Sprintf("must be between 1 and %d", e.cfg.MaxPapers))
	}

	now := time.Now()
	w := &domain.ResearchWorkflow{
		ID:              uuid.New().String(),
		Topic:           topic,
		MaxPapers:       maxPapers,
		Status:          domain.WorkflowStatusPending,
		ProgressPercent: domain.ProgressPending,
		StepLabel:       domain.StepLabelPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	e.store.Put(w)

	runCtx, cancel := context.WithCancel(e.baseCtx)
	e.mu.Lock()
	e.cancels[w.ID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(runCtx, cancel, w)

	if e.metrics != nil {
		e.metrics.RecordWorkflowStarted()
	}
	e.publish(domain.EventTypeWorkflowStarted, w.ID, domain.WorkflowStartedPayload{
		WorkflowID: w.ID,
		Topic:      w.Topic,
		MaxPapers:  w.MaxPapers,
	})

	wfLogger := observability.WithWorkflowContext(e.logger, w.ID, w.Topic)
	wfLogger.Info().
		Int("max_papers", w.MaxPapers).
		Msg("workflow started")

	return w.ID, nil
}

// GetProgress returns the latest committed snapshot for the workflow.
// It never blocks on in-flight work.
func (e *Engine) GetProgress(id string) (*domain.ResearchWorkflow, error) {
	return e.store.Get(id)
}

// Cancel requests cancellation of an active workflow. The in-flight stage
// is interrupted and the workflow transitions to failed with a cancelled
// reason. Cancelling an unknown id returns domain.ErrNotFound; cancelling
// a finished workflow returns domain.ErrInvalidArgument.
func (e *Engine) Cancel(id string) error {
	snapshot, err := e.store.Get(id)
	if err != nil {
		return err
	}
	if !snapshot.IsActive() {
		return fmt.Errorf("workflow %s is already %s: %w", id, snapshot.Status, domain.ErrInvalidArgument)
	}

	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()
	if !ok {
		// Execution finished between the snapshot read and here.
		return fmt.Errorf("workflow %s is no longer active: %w", id, domain.ErrInvalidArgument)
	}

	cancel()
	if e.metrics != nil {
		e.metrics.RecordWorkflowCancelled()
	}
	cancelLogger := observability.WithWorkflowContext(e.logger, id, snapshot.Topic)
	cancelLogger.Info().
		Msg("workflow cancellation requested")
	return nil
}

// Shutdown cancels all active workflows and waits for their executions to
// finish or for ctx to expire.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.baseCancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one workflow to a terminal state. It owns w exclusively; the
// store only ever sees clones committed at stage boundaries. cancel must
// be invoked on exit so the workflow context is released from baseCtx
// instead of accumulating there for the life of the process.
func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, w *domain.ResearchWorkflow) {
	defer e.wg.Done()
	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.cancels, w.ID)
		e.mu.Unlock()
	}()

	logger := observability.WithWorkflowContext(e.logger, w.ID, w.Topic)
	start := time.Now()

	// Stage 1: search.
	w.Status = domain.WorkflowStatusSearching
	w.ProgressPercent = domain.ProgressSearching
	w.StepLabel = domain.StepLabelSearching
	e.commit(w)

	var papers []domain.Paper
	searchErr := e.executor.Execute(ctx, e.stage(StageSearch), func(ctx context.Context) error {
		found, err := e.searcher.Search(ctx, w.Topic, w.MaxPapers)
		if err != nil {
			return err
		}
		papers = found
		return nil
	})
	if searchErr != nil {
		e.fail(logger, w, searchErr, start)
		return
	}

	w.Papers = papers
	w.ProgressPercent = domain.ProgressRetrieved
	w.StepLabel = domain.StepLabelRetrieved
	e.commit(w)
	if e.metrics != nil {
		e.metrics.RecordPapersRetrieved(len(papers))
	}
	logger.Info().Int("papers", len(papers)).Msg("search stage completed")

	// Stage 2: synthesize and extend run concurrently over the same
	// papers. A plain errgroup is the barrier join: Wait blocks until
	// both branches return and yields the first non-nil error. A failed
	// branch must not cancel its sibling, so no shared context cancel
	// is wired here; each branch writes only its own result variable.
	w.Status = domain.WorkflowStatusSynthesizing
	w.ProgressPercent = domain.ProgressSynthesizing
	w.StepLabel = domain.StepLabelSynthesizing
	e.commit(w)

	var synthesis string
	var extensions []domain.Extension

	var g errgroup.Group
	g.Go(func() error {
		return e.executor.Execute(ctx, e.stage(StageSynthesize), func(ctx context.Context) error {
			out, err := e.complete(ctx, StageSynthesize, BuildSynthesisRequest(w.Papers))
			if err != nil {
				return err
			}
			synthesis = out
			return nil
		})
	})
	g.Go(func() error {
		return e.executor.Execute(ctx, e.stage(StageExtend), func(ctx context.Context) error {
			out, err := e.complete(ctx, StageExtend, BuildExtensionsRequest(w.Papers))
			if err != nil {
				return err
			}
			parsed := ParseExtensions(out)
			if len(parsed) == 0 {
				return errors.New("no extensions parsed from completion output")
			}
			extensions = parsed
			return nil
		})
	})

	joinErr := g.Wait()

	// Record whichever branch results arrived, even when the join failed.
	if synthesis != "" {
		w.Synthesis = synthesis
	}
	if len(extensions) > 0 {
		w.Extensions = extensions
	}

	if joinErr != nil {
		e.fail(logger, w, joinErr, start)
		return
	}

	// Stage 3: completion.
	w.Status = domain.WorkflowStatusCompleted
	w.ProgressPercent = domain.ProgressCompleted
	w.StepLabel = domain.StepLabelCompleted
	e.commit(w)

	duration := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordWorkflowCompleted(duration.Seconds())
	}
	e.publish(domain.EventTypeWorkflowCompleted, w.ID, domain.WorkflowCompletedPayload{
		WorkflowID:     w.ID,
		Topic:          w.Topic,
		PapersFound:    len(w.Papers),
		ExtensionCount: len(w.Extensions),
		Duration:       duration,
	})
	logger.Info().
		Dur("duration", duration).
		Int("papers", len(w.Papers)).
		Int("extensions", len(w.Extensions)).
		Msg("workflow completed")
}

// fail commits the terminal failed record for the workflow.
func (e *Engine) fail(logger zerolog.Logger, w *domain.ResearchWorkflow, err error, start time.Time) {
	stage := "unknown"
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	w.Status = domain.WorkflowStatusFailed
	w.Error = err.Error()
	e.commit(w)

	if e.metrics != nil {
		e.metrics.RecordWorkflowFailed(time.Since(start).Seconds())
	}
	e.publish(domain.EventTypeWorkflowFailed, w.ID, domain.WorkflowFailedPayload{
		WorkflowID: w.ID,
		Topic:      w.Topic,
		Stage:      stage,
		Error:      err.Error(),
	})
	logger.Error().Err(err).Str("stage", stage).Msg("workflow failed")
}

// commit writes the current record state to the progress store.
func (e *Engine) commit(w *domain.ResearchWorkflow) {
	w.UpdatedAt = time.Now()
	e.store.Put(w)
}

// stage returns the configuration for the named stage, falling back to
// the package defaults when the engine config omits it.
func (e *Engine) stage(name string) StageConfig {
	if cfg, ok := e.cfg.Stages[name]; ok {
		return cfg
	}
	return DefaultStageConfigs()[name]
}

// complete calls the completion provider and returns the trimmed content.
func (e *Engine) complete(ctx context.Context, operation string, req llm.CompletionRequest) (string, error) {
	start := time.Now()
	res, err := e.provider.Complete(ctx, req)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordLLMRequestFailed(operation, e.provider.Model(), domain.Classify(err).String())
		}
		return "", err
	}
	if e.metrics != nil {
		e.metrics.RecordLLMRequest(operation, res.Model, time.Since(start).Seconds(), res.InputTokens, res.OutputTokens)
	}

	content := strings.TrimSpace(res.Content)
	if content == "" {
		return "", errors.New("completion returned empty content")
	}
	return content, nil
}

// publish sends a lifecycle event when a publisher is configured.
func (e *Engine) publish(eventType, workflowID string, payload interface{}) {
	if e.publisher == nil {
		return
	}

	event, err := domain.NewEvent(eventType, workflowID, "workflow", payload)
	if err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
