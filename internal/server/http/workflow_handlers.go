package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// startWorkflowRequest is the JSON request body for starting a research workflow.
type startWorkflowRequest struct {
	Topic     string `json:"topic" validate:"required"`
	MaxPapers int    `json:"max_papers" validate:"required,min=1"`
}

// startWorkflow handles POST /research/workflows.
// The workflow runs in the background; the id is returned immediately.
func (s *Server) startWorkflow(w http.ResponseWriter, r *http.Request) {
	var req startWorkflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	workflowID, err := s.engine.Start(req.Topic, req.MaxPapers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info().
		Str("workflow_id", workflowID).
		Str("topic", req.Topic).
		Msg("workflow accepted")

	writeJSON(w, http.StatusAccepted, startWorkflowResponse{
		WorkflowID: workflowID,
		Status:     "pending",
		Message:    "research workflow started",
	})
}

// getWorkflow handles GET /research/workflows/{workflowID}.
// It returns the latest progress snapshot.
func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUID(w, chi.URLParam(r, "workflowID"), "workflow_id")
	if !ok {
		return
	}

	workflow, err := s.engine.GetProgress(workflowID.String())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workflowToResponse(workflow))
}

// cancelWorkflow handles DELETE /research/workflows/{workflowID}.
// Cancellation is asynchronous: the in-flight stage observes the cancelled
// context and the workflow finalizes as failed.
func (s *Server) cancelWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUID(w, chi.URLParam(r, "workflowID"), "workflow_id")
	if !ok {
		return
	}

	if err := s.engine.Cancel(workflowID.String()); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, cancelWorkflowResponse{
		WorkflowID: workflowID.String(),
		Message:    "cancellation requested",
	})
}
