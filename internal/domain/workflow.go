package domain

import (
	"time"
)

// Progress checkpoints reported while a workflow advances through its stages.
const (
	ProgressPending      = 0
	ProgressSearching    = 20
	ProgressRetrieved    = 40
	ProgressSynthesizing = 50
	ProgressCompleted    = 100
)

// Step labels shown to pollers alongside the progress percentage.
// Advisory only; clients must not branch on them.
const (
	StepLabelPending      = "Initializing workflow"
	StepLabelSearching    = "Searching for papers"
	StepLabelRetrieved    = "Papers retrieved"
	StepLabelSynthesizing = "Synthesizing findings and proposing extensions"
	StepLabelCompleted    = "Research workflow completed"
)

// Extension represents a proposed future research direction derived from a
// set of retrieved papers.
type Extension struct {
	// Title is a short name for the proposed direction.
	Title string `json:"title"`

	// Description explains the direction in one or two sentences.
	Description string `json:"description"`

	// Approach sketches how the direction could be pursued.
	Approach string `json:"approach"`

	// Difficulty grades the effort required (easy, medium, hard).
	Difficulty Difficulty `json:"difficulty"`
}

// ResearchWorkflow is the progress/result snapshot of one run of the
// search -> synthesize/extend pipeline. It is created by the workflow
// engine, mutated only by the single background execution driving that
// run, and becomes immutable once Status is terminal.
type ResearchWorkflow struct {
	// ID is the opaque workflow identifier returned to the caller.
	ID string `json:"id"`

	// Topic is the research topic being investigated.
	Topic string `json:"topic"`

	// MaxPapers is the requested maximum number of papers to retrieve.
	MaxPapers int `json:"max_papers"`

	// Status is the current lifecycle state. Forward-only; terminal
	// states never change.
	Status WorkflowStatus `json:"status"`

	// ProgressPercent is 0-100 and non-decreasing while non-terminal.
	ProgressPercent int `json:"progress_percent"`

	// StepLabel is a human-readable description of the current stage.
	StepLabel string `json:"step_label"`

	// Papers holds the retrieved papers once the search stage completes.
	Papers []Paper `json:"papers,omitempty"`

	// Synthesis is the condensed summary produced by the synthesis stage.
	Synthesis string `json:"synthesis,omitempty"`

	// Extensions holds the proposed research directions once the
	// extension stage completes.
	Extensions []Extension `json:"extensions,omitempty"`

	// Error holds the classified failure reason when Status is failed.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive returns true if the workflow is still in progress.
func (w *ResearchWorkflow) IsActive() bool {
	return !w.Status.IsTerminal()
}

// Clone returns a deep copy of the workflow. Readers of the progress
// store always receive clones so an in-flight execution can never be
// observed mid-write.
func (w *ResearchWorkflow) Clone() *ResearchWorkflow {
	if w == nil {
		return nil
	}

	cp := *w

	if w.Papers != nil {
		cp.Papers = make([]Paper, len(w.Papers))
		for i, p := range w.Papers {
			cp.Papers[i] = *p.Clone()
		}
	}

	if w.Extensions != nil {
		cp.Extensions = make([]Extension, len(w.Extensions))
		copy(cp.Extensions, w.Extensions)
	}

	return &cp
}
