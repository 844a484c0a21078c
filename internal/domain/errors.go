package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the service error taxonomy.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates bad caller input. Surfaced
	// synchronously, never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransient indicates a temporary failure (timeout, network,
	// rate limit) that is eligible for retry.
	ErrTransient = errors.New("transient failure")

	// ErrPermanent indicates a non-recoverable failure (auth, quota,
	// malformed response) that must not be retried.
	ErrPermanent = errors.New("permanent failure")

	// ErrCancelled indicates that an operation was cancelled.
	ErrCancelled = errors.New("cancelled")

	// ErrInvalidTransition indicates a disallowed submission status
	// transition.
	ErrInvalidTransition = errors.New("invalid transition")
)

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// TransitionError provides details about a rejected submission status
// transition.
type TransitionError struct {
	ID   string
	From SubmissionStatus
	To   SubmissionStatus
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("submission %s: invalid transition from %s to %s", e.ID, e.From, e.To)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// SourceAPIError represents a non-OK response from a literature source API.
type SourceAPIError struct {
	Source     string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *SourceAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// IsTransient reports whether the failure is worth retrying.
// Network failures (status 0), rate limits and server errors are transient.
func (e *SourceAPIError) IsTransient() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// StageError records the classified failure of one pipeline stage.
type StageError struct {
	Stage    string
	Category ErrorCategory
	Cause    error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Category, e.Cause)
}

// Unwrap returns the sentinel matching the classified category so
// errors.Is works against the taxonomy.
func (e *StageError) Unwrap() error {
	switch e.Category {
	case CategoryCancelled:
		return ErrCancelled
	case CategoryPermanent:
		return ErrPermanent
	default:
		return ErrTransient
	}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(id string, from, to SubmissionStatus) *TransitionError {
	return &TransitionError{
		ID:   id,
		From: from,
		To:   to,
	}
}

// NewSourceAPIError creates a new SourceAPIError.
func NewSourceAPIError(source string, statusCode int, message string) *SourceAPIError {
	return &SourceAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewStageError wraps a collaborator error with its stage name and
// classified category.
func NewStageError(stage string, cause error) *StageError {
	return &StageError{
		Stage:    stage,
		Category: Classify(cause),
		Cause:    cause,
	}
}

// ErrorCategory classifies collaborator errors into categories that
// determine retry behaviour.
type ErrorCategory int

const (
	// CategoryTransient errors are temporary failures retried with
	// exponential backoff.
	CategoryTransient ErrorCategory = iota

	// CategoryPermanent errors are non-recoverable and never retried.
	CategoryPermanent

	// CategoryCancelled errors come from context cancellation and are
	// never retried.
	CategoryCancelled
)

// String returns a human-readable name for the category.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// transientClassifier is implemented by structured provider errors that
// know their own retryability (e.g. llm.APIError).
type transientClassifier interface {
	IsTransient() bool
}

// transientSubstrings are error message substrings that indicate a transient failure
// when the error is not already classified by a structured error type.
var transientSubstrings = []string{
	"timeout",
	"network",
	"connection refused",
	"connection reset",
	"rate limit",
	"rate_limit",
	"server_error",
	"service unavailable",
	"temporary",
	"deadline exceeded",
	"i/o timeout",
}

// permanentSubstrings indicate a permanent failure.
// Substrings are chosen to avoid false positives: "unauthorized" instead of
// "auth" (which would match "author"), "invalid_input"/"invalid request"/
// "invalid parameter" instead of bare "invalid".
var permanentSubstrings = []string{
	"unauthorized",
	"authentication failed",
	"authorization failed",
	"forbidden",
	"bad_request",
	"bad request",
	"not_found",
	"not found",
	"invalid_input",
	"invalid request",
	"invalid parameter",
	"validation",
	"content_filter",
	"quota",
}

// Classify inspects err and returns its ErrorCategory.
//
// Classification priority:
//  1. Context cancellation: Cancelled
//  2. Domain sentinel errors
//  3. Structured provider errors via IsTransient()
//  4. Error message substring matching (transient checked first for fail-safe bias)
//  5. Default: Transient (safer to retry than to fail)
func Classify(err error) ErrorCategory {
	if err == nil {
		return CategoryPermanent
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled) {
		return CategoryCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	if errors.Is(err, ErrTransient) {
		return CategoryTransient
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
		return CategoryPermanent
	}

	var tc transientClassifier
	if errors.As(err, &tc) {
		if tc.IsTransient() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	msg := strings.ToLower(err.Error())

	// Transient substrings checked before permanent for fail-safe bias:
	// if in doubt, retry is safer than giving up.
	for _, sub := range transientSubstrings {
		if strings.Contains(msg, sub) {
			return CategoryTransient
		}
	}

	for _, sub := range permanentSubstrings {
		if strings.Contains(msg, sub) {
			return CategoryPermanent
		}
	}

	return CategoryTransient
}
