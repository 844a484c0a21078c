package domain

import (
	"time"
)

// Submission represents a paper submitted for professor review.
type Submission struct {
	// ID is the opaque submission identifier.
	ID string `json:"id"`

	Title   string   `json:"title"`
	Authors []string `json:"authors"`

	// Content is the submitted paper text. For PDF submissions this is
	// the extracted text, truncated to a preview length.
	Content string `json:"content,omitempty"`

	// ProfessorEmail is the reviewer the submission is addressed to.
	ProfessorEmail string `json:"professor_email"`

	// Status is the current review state. Transitions are caller-driven.
	Status SubmissionStatus `json:"status"`

	// Feedback is optional reviewer text set on a status transition.
	Feedback string `json:"feedback,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CanTransitionTo reports whether the submission may move from its
// current status to the target status. Any transition is allowed except
// out of the terminal states accepted and rejected.
func (s *Submission) CanTransitionTo(target SubmissionStatus) bool {
	if s.Status.IsTerminal() {
		return false
	}
	return target.IsValid()
}

// Clone returns a deep copy of the submission.
func (s *Submission) Clone() *Submission {
	cp := *s

	if s.Authors != nil {
		cp.Authors = make([]string, len(s.Authors))
		copy(cp.Authors, s.Authors)
	}

	return &cp
}
