// Package domain provides domain models and business logic for the Research Assistant Service.
package domain

// WorkflowStatus represents the lifecycle states of a research workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending      WorkflowStatus = "pending"
	WorkflowStatusSearching    WorkflowStatus = "searching"
	WorkflowStatusSynthesizing WorkflowStatus = "synthesizing"
	WorkflowStatusCompleted    WorkflowStatus = "completed"
	WorkflowStatusFailed       WorkflowStatus = "failed"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed:
		return true
	default:
		return false
	}
}

// SubmissionStatus represents the review lifecycle states of a paper submission.
// These values must match the database check constraint on submissions.status.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted         SubmissionStatus = "submitted"
	SubmissionStatusUnderReview       SubmissionStatus = "under_review"
	SubmissionStatusRevisionRequested SubmissionStatus = "revision_requested"
	SubmissionStatusAccepted          SubmissionStatus = "accepted"
	SubmissionStatusRejected          SubmissionStatus = "rejected"
)

// IsTerminal returns true if the status represents a final review decision.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusAccepted, SubmissionStatusRejected:
		return true
	default:
		return false
	}
}

// IsValid returns true if the status is one of the known submission statuses.
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusSubmitted, SubmissionStatusUnderReview,
		SubmissionStatusRevisionRequested, SubmissionStatusAccepted,
		SubmissionStatusRejected:
		return true
	default:
		return false
	}
}

// SourceType represents the literature source API that provided paper data.
type SourceType string

const (
	SourceTypePubMed SourceType = "pubmed"
	SourceTypeArXiv  SourceType = "arxiv"
)

// Difficulty grades a proposed research extension.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid returns true if the difficulty is one of the known grades.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}
