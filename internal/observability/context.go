package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	workflowIDKey   contextKey = "workflow_id"
	submissionIDKey contextKey = "submission_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithWorkflowID adds a workflow ID to the context.
func WithWorkflowID(ctx context.Context, workflowID string) context.Context {
	return context.WithValue(ctx, workflowIDKey, workflowID)
}

// WorkflowIDFromContext retrieves the workflow ID from context.
// Returns empty string if not present.
func WorkflowIDFromContext(ctx context.Context) string {
	if v := ctx.Value(workflowIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithSubmissionID adds a submission ID to the context.
func WithSubmissionID(ctx context.Context, submissionID string) context.Context {
	return context.WithValue(ctx, submissionIDKey, submissionID)
}

// SubmissionIDFromContext retrieves the submission ID from context.
// Returns empty string if not present.
func SubmissionIDFromContext(ctx context.Context) string {
	if v := ctx.Value(submissionIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
