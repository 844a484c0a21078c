package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/llm"
)

type fakeSearcher struct {
	searchFn func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error)
}

func (f *fakeSearcher) Search(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
	return f.searchFn(ctx, topic, maxPapers)
}

type fakeProvider struct {
	completeFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error)
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
	return f.completeFn(ctx, req)
}

func (f *fakeProvider) Provider() string { return "fake" }
func (f *fakeProvider) Model() string    { return "fake-model" }

func testPapers(n int) []domain.Paper {
	papers := make([]domain.Paper, n)
	for i := range papers {
		papers[i] = domain.Paper{
			Identifier: fmt.Sprintf("id-%d", i),
			Source:     domain.SourceTypeArXiv,
			Title:      fmt.Sprintf("Paper %d", i),
			Abstract:   "An abstract.",
		}
	}
	return papers
}

const extensionsCompletion = `1. Title: First direction
   Description: Do the first thing.
   Difficulty: Easy
2. Title: Second direction
   Description: Do the second thing.
   Difficulty: Hard`

// happyProvider answers both completion branches by inspecting the
// system prompt, the same way the engine routes them.
func happyProvider() *fakeProvider {
	return &fakeProvider{
		completeFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
			content := extensionsCompletion
			if strings.Contains(req.System, "summarizer") {
				content = "The papers agree on the main finding."
			}
			return &llm.CompletionResult{Content: content, Model: "fake-model"}, nil
		},
	}
}

func newTestEngine(t *testing.T, searcher PaperSearcher, provider llm.CompletionProvider) *Engine {
	t.Helper()

	stages := make(map[string]StageConfig, 3)
	for _, name := range []string{StageSearch, StageSynthesize, StageExtend} {
		stages[name] = fastStage(name, 1)
	}

	engine := NewEngine(
		EngineConfig{Stages: stages},
		NewProgressStore(),
		searcher,
		provider,
		NewStageExecutor(zerolog.Nop(), nil),
		nil,
		zerolog.Nop(),
		nil,
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	})
	return engine
}

// waitTerminal polls until the workflow leaves its active states.
func waitTerminal(t *testing.T, engine *Engine, id string) *domain.ResearchWorkflow {
	t.Helper()

	var w *domain.ResearchWorkflow
	require.Eventually(t, func() bool {
		got, err := engine.GetProgress(id)
		if err != nil {
			return false
		}
		w = got
		return !w.IsActive()
	}, 5*time.Second, 5*time.Millisecond)
	return w
}

func TestEngine_Start_Validation(t *testing.T) {
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		return testPapers(1), nil
	}}
	engine := newTestEngine(t, searcher, happyProvider())

	t.Run("rejects empty topic", func(t *testing.T) {
		_, err := engine.Start("   ", 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("rejects max papers out of range", func(t *testing.T) {
		for _, n := range []int{0, -1, 999} {
			_, err := engine.Start("protein folding", n)
			require.Error(t, err, "maxPapers=%d", n)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		}
	})

	t.Run("rejected requests create no workflow", func(t *testing.T) {
		_, _ = engine.Start("", 3)
		_, _ = engine.Start("protein folding", 999)
		assert.Equal(t, 0, engine.store.Len())
	})
}

func TestEngine_Start_ReturnsImmediatelyVisibleID(t *testing.T) {
	blocked := make(chan struct{})
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
		return testPapers(1), nil
	}}
	engine := newTestEngine(t, searcher, happyProvider())

	id, err := engine.Start("protein folding", 3)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// The id is queryable before any stage has finished.
	w, err := engine.GetProgress(id)
	require.NoError(t, err)
	assert.Equal(t, "protein folding", w.Topic)
	assert.True(t, w.IsActive())

	close(blocked)
}

func TestEngine_HappyPath(t *testing.T) {
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		assert.Equal(t, "protein folding", topic)
		assert.Equal(t, 3, maxPapers)
		return testPapers(3), nil
	}}
	engine := newTestEngine(t, searcher, happyProvider())

	id, err := engine.Start("protein folding", 3)
	require.NoError(t, err)

	w := waitTerminal(t, engine, id)

	assert.Equal(t, domain.WorkflowStatusCompleted, w.Status)
	assert.Equal(t, domain.ProgressCompleted, w.ProgressPercent)
	assert.Equal(t, domain.StepLabelCompleted, w.StepLabel)
	assert.Len(t, w.Papers, 3)
	assert.Equal(t, "The papers agree on the main finding.", w.Synthesis)
	require.Len(t, w.Extensions, 2)
	assert.Equal(t, "First direction", w.Extensions[0].Title)
	assert.Empty(t, w.Error)
}

func TestEngine_SearchFailure(t *testing.T) {
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		return nil, errors.New("unauthorized: invalid api key")
	}}

	completions := 0
	var mu sync.Mutex
	provider := &fakeProvider{completeFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		mu.Lock()
		completions++
		mu.Unlock()
		return &llm.CompletionResult{Content: "unused"}, nil
	}}
	engine := newTestEngine(t, searcher, provider)

	id, err := engine.Start("protein folding", 3)
	require.NoError(t, err)

	w := waitTerminal(t, engine, id)

	assert.Equal(t, domain.WorkflowStatusFailed, w.Status)
	assert.Contains(t, w.Error, "search")
	assert.Empty(t, w.Papers)
	assert.Empty(t, w.Synthesis)
	assert.Empty(t, w.Extensions)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, completions, "no completion runs after a search failure")
}

func TestEngine_SynthesizeFailsExtendSucceeds(t *testing.T) {
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		return testPapers(2), nil
	}}
	provider := &fakeProvider{completeFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		if strings.Contains(req.System, "summarizer") {
			return nil, errors.New("unauthorized: invalid api key")
		}
		return &llm.CompletionResult{Content: extensionsCompletion, Model: "fake-model"}, nil
	}}
	engine := newTestEngine(t, searcher, provider)

	id, err := engine.Start("protein folding", 2)
	require.NoError(t, err)

	w := waitTerminal(t, engine, id)

	// The failed branch terminates the workflow, but the sibling's
	// result is still recorded.
	assert.Equal(t, domain.WorkflowStatusFailed, w.Status)
	assert.Contains(t, w.Error, StageSynthesize)
	assert.Empty(t, w.Synthesis)
	assert.Len(t, w.Extensions, 2)
	assert.Len(t, w.Papers, 2)
}

func TestEngine_ExtendFailsSynthesizeSucceeds(t *testing.T) {
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		return testPapers(2), nil
	}}
	provider := &fakeProvider{completeFn: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		if strings.Contains(req.System, "strategist") {
			return nil, errors.New("unauthorized: invalid api key")
		}
		return &llm.CompletionResult{Content: "The papers agree.", Model: "fake-model"}, nil
	}}
	engine := newTestEngine(t, searcher, provider)

	id, err := engine.Start("protein folding", 2)
	require.NoError(t, err)

	w := waitTerminal(t, engine, id)

	assert.Equal(t, domain.WorkflowStatusFailed, w.Status)
	assert.Contains(t, w.Error, StageExtend)
	assert.Equal(t, "The papers agree.", w.Synthesis)
	assert.Empty(t, w.Extensions)
}

func TestEngine_ProgressIsMonotonic(t *testing.T) {
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		time.Sleep(5 * time.Millisecond)
		return testPapers(1), nil
	}}
	engine := newTestEngine(t, searcher, happyProvider())

	id, err := engine.Start("protein folding", 1)
	require.NoError(t, err)

	last := -1
	require.Eventually(t, func() bool {
		w, err := engine.GetProgress(id)
		if err != nil {
			return false
		}
		require.GreaterOrEqual(t, w.ProgressPercent, last, "progress must never move backwards")
		last = w.ProgressPercent
		return !w.IsActive()
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, domain.ProgressCompleted, last)
}

func TestEngine_TerminalSnapshotsAreStable(t *testing.T) {
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		return testPapers(1), nil
	}}
	engine := newTestEngine(t, searcher, happyProvider())

	id, err := engine.Start("protein folding", 1)
	require.NoError(t, err)
	waitTerminal(t, engine, id)

	first, err := engine.GetProgress(id)
	require.NoError(t, err)
	second, err := engine.GetProgress(id)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngine_Cancel(t *testing.T) {
	t.Run("cancels an active workflow", func(t *testing.T) {
		started := make(chan struct{})
		searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		engine := newTestEngine(t, searcher, happyProvider())

		id, err := engine.Start("protein folding", 3)
		require.NoError(t, err)

		<-started
		require.NoError(t, engine.Cancel(id))

		w := waitTerminal(t, engine, id)
		assert.Equal(t, domain.WorkflowStatusFailed, w.Status)
		assert.NotEmpty(t, w.Error)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		engine := newTestEngine(t, &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
			return testPapers(1), nil
		}}, happyProvider())

		err := engine.Cancel("00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("finished workflow cannot be cancelled", func(t *testing.T) {
		engine := newTestEngine(t, &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
			return testPapers(1), nil
		}}, happyProvider())

		id, err := engine.Start("protein folding", 1)
		require.NoError(t, err)
		waitTerminal(t, engine, id)

		err = engine.Cancel(id)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestEngine_ReleasesWorkflowContextOnCompletion(t *testing.T) {
	var mu sync.Mutex
	var workflowCtx context.Context
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		mu.Lock()
		workflowCtx = ctx
		mu.Unlock()
		return testPapers(1), nil
	}}
	engine := newTestEngine(t, searcher, happyProvider())

	id, err := engine.Start("protein folding", 1)
	require.NoError(t, err)
	w := waitTerminal(t, engine, id)
	require.Equal(t, domain.WorkflowStatusCompleted, w.Status)

	// The per-workflow context must be cancelled once the run goroutine
	// exits, even without an explicit Cancel call; otherwise every
	// finished workflow stays parked on the engine's base context.
	mu.Lock()
	ctx := workflowCtx
	mu.Unlock()
	require.NotNil(t, ctx)
	require.Eventually(t, func() bool {
		return ctx.Err() != nil
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestEngine_Shutdown(t *testing.T) {
	started := make(chan struct{})
	searcher := &fakeSearcher{searchFn: func(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	engine := newTestEngine(t, searcher, happyProvider())

	id, err := engine.Start("protein folding", 3)
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, engine.Shutdown(ctx))

	// Shutdown waited for the run goroutine, so the terminal state is
	// already committed.
	w, err := engine.GetProgress(id)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusFailed, w.Status)
}
