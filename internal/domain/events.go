package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published lifecycle events.
const (
	EventTypeWorkflowStarted         = "workflow.started"
	EventTypeWorkflowCompleted       = "workflow.completed"
	EventTypeWorkflowFailed          = "workflow.failed"
	EventTypeSubmissionCreated       = "submission.created"
	EventTypeSubmissionStatusChanged = "submission.status_changed"
)

// Event represents a lifecycle event published to the message broker.
type Event struct {
	EventID       string
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now(),
	}, nil
}

// WorkflowStartedPayload is the payload for workflow.started events.
type WorkflowStartedPayload struct {
	WorkflowID string `json:"workflow_id"`
	Topic      string `json:"topic"`
	MaxPapers  int    `json:"max_papers"`
}

// WorkflowCompletedPayload is the payload for workflow.completed events.
type WorkflowCompletedPayload struct {
	WorkflowID     string        `json:"workflow_id"`
	Topic          string        `json:"topic"`
	PapersFound    int           `json:"papers_found"`
	ExtensionCount int           `json:"extension_count"`
	Duration       time.Duration `json:"duration_ns"`
}

// WorkflowFailedPayload is the payload for workflow.failed events.
type WorkflowFailedPayload struct {
	WorkflowID string `json:"workflow_id"`
	Topic      string `json:"topic"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

// SubmissionCreatedPayload is the payload for submission.created events.
type SubmissionCreatedPayload struct {
	SubmissionID   string `json:"submission_id"`
	Title          string `json:"title"`
	ProfessorEmail string `json:"professor_email"`
}

// SubmissionStatusChangedPayload is the payload for submission.status_changed events.
type SubmissionStatusChangedPayload struct {
	SubmissionID string           `json:"submission_id"`
	From         SubmissionStatus `json:"from"`
	To           SubmissionStatus `json:"to"`
	Feedback     string           `json:"feedback,omitempty"`
}
