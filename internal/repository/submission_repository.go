package repository

import (
	"context"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// SubmissionRepository manages paper submission persistence.
type SubmissionRepository interface {
	// Create inserts a new submission.
	Create(ctx context.Context, submission *domain.Submission) error

	// Get retrieves a submission by id. Returns domain.ErrNotFound when
	// no submission exists.
	Get(ctx context.Context, id string) (*domain.Submission, error)

	// List retrieves submissions matching the filter, newest first,
	// together with the total match count before pagination.
	List(ctx context.Context, filter SubmissionFilter) ([]*domain.Submission, int64, error)

	// UpdateStatus moves the submission to the target status and records
	// the optional feedback. Returns domain.TransitionError when the
	// current status does not allow the transition.
	UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, feedback string) (*domain.Submission, error)
}

// SubmissionFilter narrows List results.
type SubmissionFilter struct {
	// Status restricts results to the given statuses. Empty means all.
	Status []domain.SubmissionStatus
	// ProfessorEmail restricts results to one reviewer. Empty means all.
	ProfessorEmail string

	Limit  int
	Offset int
}
