package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// sseEvent represents an event sent via SSE.
type sseEvent struct {
	EventType  string            `json:"event_type"`
	WorkflowID string            `json:"workflow_id"`
	Status     string            `json:"status,omitempty"`
	Workflow   *workflowResponse `json:"workflow,omitempty"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
}

// streamWorkflowEvents handles GET /research/workflows/{workflowID}/events
// (SSE). The stream polls the progress store on a ticker and emits an event
// whenever the snapshot advances, ending with a terminal event.
func (s *Server) streamWorkflowEvents(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUID(w, chi.URLParam(r, "workflowID"), "workflow_id")
	if !ok {
		return
	}
	id := workflowID.String()

	snapshot, err := s.engine.GetProgress(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// If already terminal, send one event and close.
	if snapshot.Status.IsTerminal() {
		sendSSEEvent(w, flusher, terminalEvent(snapshot))
		return
	}

	sendSSEEvent(w, flusher, snapshotEvent("stream_started", snapshot, "progress stream started"))

	lastPercent := snapshot.ProgressPercent
	lastStatus := snapshot.Status

	deadlineTimer := time.NewTimer(s.streamMaxTime)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-deadlineTimer.C:
			sendSSEEvent(w, flusher, sseEvent{
				EventType:  "timeout",
				WorkflowID: id,
				Message:    "stream max duration exceeded",
				Timestamp:  time.Now(),
			})
			return

		case <-ticker.C:
			current, pollErr := s.engine.GetProgress(id)
			if pollErr != nil {
				s.logger.Error().Err(pollErr).Str("workflow_id", id).Msg("failed to poll workflow progress")
				continue
			}

			if current.Status.IsTerminal() {
				sendSSEEvent(w, flusher, terminalEvent(current))
				return
			}

			if current.ProgressPercent != lastPercent || current.Status != lastStatus {
				sendSSEEvent(w, flusher, snapshotEvent("progress_update", current,
					"status: "+string(current.Status)))
				lastPercent = current.ProgressPercent
				lastStatus = current.Status
			}
		}
	}
}

// snapshotEvent builds an SSE event carrying the full workflow snapshot.
func snapshotEvent(eventType string, w *domain.ResearchWorkflow, message string) sseEvent {
	resp := workflowToResponse(w)
	return sseEvent{
		EventType:  eventType,
		WorkflowID: w.ID,
		Status:     string(w.Status),
		Workflow:   &resp,
		Message:    message,
		Timestamp:  time.Now(),
	}
}

// terminalEvent builds the final event of a stream. The event type mirrors
// the terminal status so clients can dispatch without parsing the snapshot.
func terminalEvent(w *domain.ResearchWorkflow) sseEvent {
	return snapshotEvent(string(w.Status), w, "workflow finished with status: "+string(w.Status))
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
	flusher.Flush()
}
