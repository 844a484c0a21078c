// Package submission implements the paper submission tracker: creating
// submissions addressed to a reviewer and driving their review status
// lifecycle.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/observability"
	"github.com/scholarpipe/research-assistant/internal/repository"
)

// contentPreviewLimit caps the stored submission content. Full PDF text
// can run to hundreds of pages; the tracker keeps a preview, not the
// document of record.
const contentPreviewLimit = 20000

// EventPublisher publishes submission lifecycle events. Publishing is
// best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// CreateRequest carries the fields for a new submission.
type CreateRequest struct {
	Title          string
	Authors        []string
	Content        string
	ProfessorEmail string
}

// Tracker manages the submission lifecycle on top of the repository.
type Tracker struct {
	repo      repository.SubmissionRepository
	publisher EventPublisher
	logger    zerolog.Logger
	metrics   *observability.Metrics
	validate  *validator.Validate
}

// NewTracker creates a tracker. publisher and metrics may be nil.
func NewTracker(repo repository.SubmissionRepository, publisher EventPublisher, logger zerolog.Logger, metrics *observability.Metrics) *Tracker {
	return &Tracker{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		validate:  validator.New(),
	}
}

// Create validates the request and stores a new submission in the
// submitted state.
func (t *Tracker) Create(ctx context.Context, req CreateRequest) (*domain.Submission, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}
	req.ProfessorEmail = strings.TrimSpace(req.ProfessorEmail)
	if err := t.validate.Var(req.ProfessorEmail, "required,email"); err != nil {
		return nil, domain.NewValidationError("professor_email", "must be a valid email address")
	}

	authors := make([]string, 0, len(req.Authors))
	for _, a := range req.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	if len(authors) == 0 {
		return nil, domain.NewValidationError("authors", "at least one author is required")
	}

	content := req.Content
	if len(content) > contentPreviewLimit {
		content = truncateRunes(content, contentPreviewLimit)
	}

	now := time.Now().UTC()
	submission := &domain.Submission{
		ID:             uuid.New().String(),
		Title:          req.Title,
		Authors:        authors,
		Content:        content,
		ProfessorEmail: req.ProfessorEmail,
		Status:         domain.SubmissionStatusSubmitted,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}

	if err := t.repo.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	if t.metrics != nil {
		t.metrics.RecordSubmissionCreated()
	}
	t.publish(ctx, domain.EventTypeSubmissionCreated, submission.ID, domain.SubmissionCreatedPayload{
		SubmissionID:   submission.ID,
		Title:          submission.Title,
		ProfessorEmail: submission.ProfessorEmail,
	})
	t.logger.Info().
		Str("submission_id", submission.ID).
		Str("professor_email", submission.ProfessorEmail).
		Msg("submission created")

	return submission, nil
}

// Get returns the submission with the given id.
func (t *Tracker) Get(ctx context.Context, id string) (*domain.Submission, error) {
	return t.repo.Get(ctx, id)
}

// List returns submissions matching the filter, newest first, plus the
// total match count.
func (t *Tracker) List(ctx context.Context, filter repository.SubmissionFilter) ([]*domain.Submission, int64, error) {
	return t.repo.List(ctx, filter)
}

// UpdateStatus transitions the submission to the target status with
// optional reviewer feedback. Transitions out of accepted or rejected are
// refused with a domain.TransitionError.
func (t *Tracker) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, feedback string) (*domain.Submission, error) {
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	before, err := t.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := t.repo.UpdateStatus(ctx, id, status, feedback)
	if err != nil {
		if t.metrics != nil {
			var transitionErr *domain.TransitionError
			if errors.As(err, &transitionErr) {
				t.metrics.RecordSubmissionTransitionRejected()
			}
		}
		return nil, err
	}

	if t.metrics != nil {
		t.metrics.RecordSubmissionTransition(string(status))
	}
	t.publish(ctx, domain.EventTypeSubmissionStatusChanged, id, domain.SubmissionStatusChangedPayload{
		SubmissionID: id,
		From:         before.Status,
		To:           updated.Status,
		Feedback:     feedback,
	})
	t.logger.Info().
		Str("submission_id", id).
		Str("from", string(before.Status)).
		Str("to", string(updated.Status)).
		Msg("submission status changed")

	return updated, nil
}

// publish sends a lifecycle event when a publisher is configured.
func (t *Tracker) publish(ctx context.Context, eventType, submissionID string, payload interface{}) {
	if t.publisher == nil {
		return
	}

	event, err := domain.NewEvent(eventType, submissionID, "submission", payload)
	if err != nil {
		t.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}

	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
