package httpserver

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// progressSequence serves successive snapshots to GetProgress calls,
// repeating the last one once the sequence is exhausted.
type progressSequence struct {
	mu        sync.Mutex
	snapshots []*domain.ResearchWorkflow
	calls     int
}

func (p *progressSequence) get(id string) (*domain.ResearchWorkflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	if idx >= len(p.snapshots) {
		idx = len(p.snapshots) - 1
	}
	p.calls++
	return p.snapshots[idx], nil
}

func newStreamTestServer(engine WorkflowEngine) *Server {
	s := newTestServer(engine, nil, nil, nil)
	s.streamInterval = 5 * time.Millisecond
	s.streamMaxTime = time.Second
	return s
}

func streamEvents(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestStreamWorkflowEvents(t *testing.T) {
	path := "/api/v1/research/workflows/" + testWorkflowID() + "/events"

	t.Run("terminal workflow sends one event and closes", func(t *testing.T) {
		engine := &mockEngine{getProgressFn: func(id string) (*domain.ResearchWorkflow, error) {
			return completedWorkflow(id), nil
		}}
		s := newStreamTestServer(engine)

		rec := streamEvents(s, path)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.Contains(t, body, "event: completed")
		assert.NotContains(t, body, "event: stream_started")
	})

	t.Run("streams progress until terminal", func(t *testing.T) {
		seq := &progressSequence{snapshots: []*domain.ResearchWorkflow{
			activeWorkflow(testWorkflowID()),
			{
				ID:              testWorkflowID(),
				Topic:           "protein folding",
				Status:          domain.WorkflowStatusSynthesizing,
				ProgressPercent: domain.ProgressSynthesizing,
				StepLabel:       domain.StepLabelSynthesizing,
			},
			completedWorkflow(testWorkflowID()),
		}}
		s := newStreamTestServer(&mockEngine{getProgressFn: seq.get})

		rec := streamEvents(s, path)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "event: stream_started")
		assert.Contains(t, body, "event: progress_update")
		assert.Contains(t, body, "event: completed")
		assert.Contains(t, body, `"progress_percent":50`)
	})

	t.Run("failed workflow ends with a failed event", func(t *testing.T) {
		failed := activeWorkflow(testWorkflowID())
		failed.Status = domain.WorkflowStatusFailed
		failed.Error = "stage search failed (permanent): bad request"

		seq := &progressSequence{snapshots: []*domain.ResearchWorkflow{
			activeWorkflow(testWorkflowID()),
			failed,
		}}
		s := newStreamTestServer(&mockEngine{getProgressFn: seq.get})

		rec := streamEvents(s, path)

		body := rec.Body.String()
		assert.Contains(t, body, "event: failed")
		assert.Contains(t, body, "stage search failed")
	})

	t.Run("emits a timeout event when the stream outlives its deadline", func(t *testing.T) {
		engine := &mockEngine{getProgressFn: func(id string) (*domain.ResearchWorkflow, error) {
			return activeWorkflow(id), nil
		}}
		s := newStreamTestServer(engine)
		s.streamMaxTime = 20 * time.Millisecond

		rec := streamEvents(s, path)

		assert.Contains(t, rec.Body.String(), "event: timeout")
	})

	t.Run("unknown workflow returns 404 before streaming", func(t *testing.T) {
		s := newStreamTestServer(&mockEngine{})

		rec := streamEvents(s, path)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
