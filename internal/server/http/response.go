package httpserver

import (
	"time"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/papersources"
)

// workflowResponse is the JSON representation of a workflow snapshot.
type workflowResponse struct {
	ID              string              `json:"id"`
	Topic           string              `json:"topic"`
	MaxPapers       int                 `json:"max_papers"`
	Status          string              `json:"status"`
	ProgressPercent int                 `json:"progress_percent"`
	StepLabel       string              `json:"step_label"`
	Papers          []paperResponse     `json:"papers,omitempty"`
	Synthesis       string              `json:"synthesis,omitempty"`
	Extensions      []extensionResponse `json:"extensions,omitempty"`
	Error           string              `json:"error,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// paperResponse is the JSON representation of a retrieved paper.
type paperResponse struct {
	Identifier  string     `json:"identifier"`
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	Authors     []string   `json:"authors"`
	Abstract    string     `json:"abstract,omitempty"`
	Journal     string     `json:"journal,omitempty"`
	Link        string     `json:"link,omitempty"`
	DOI         string     `json:"doi,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// extensionResponse is the JSON representation of a proposed research direction.
type extensionResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Approach    string `json:"approach"`
	Difficulty  string `json:"difficulty"`
}

// submissionResponse is the JSON representation of a paper submission.
type submissionResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Authors        []string  `json:"authors"`
	Content        string    `json:"content,omitempty"`
	ProfessorEmail string    `json:"professor_email"`
	Status         string    `json:"status"`
	Feedback       string    `json:"feedback,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type startWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

type cancelWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	Message    string `json:"message"`
}

type explanationResponse struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

type paperCheckResponse struct {
	Title    string `json:"title"`
	Feedback string `json:"feedback"`
}

// sourceSearchResponse holds one source's results in the fan-out search reply.
type sourceSearchResponse struct {
	Source       string          `json:"source"`
	Papers       []paperResponse `json:"papers"`
	TotalResults int             `json:"total_results"`
	Error        string          `json:"error,omitempty"`
}

type searchResponse struct {
	Results []sourceSearchResponse `json:"results"`
}

type createSubmissionResponse struct {
	SubmissionID string    `json:"submission_id"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Message      string    `json:"message"`
}

type listSubmissionsResponse struct {
	Submissions   []submissionResponse `json:"submissions"`
	NextPageToken string               `json:"next_page_token,omitempty"`
	TotalCount    int                  `json:"total_count"`
}

// workflowToResponse converts a workflow snapshot to its response form.
func workflowToResponse(w *domain.ResearchWorkflow) workflowResponse {
	resp := workflowResponse{
		ID:              w.ID,
		Topic:           w.Topic,
		MaxPapers:       w.MaxPapers,
		Status:          string(w.Status),
		ProgressPercent: w.ProgressPercent,
		StepLabel:       w.StepLabel,
		Synthesis:       w.Synthesis,
		Error:           w.Error,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}

	if len(w.Papers) > 0 {
		resp.Papers = make([]paperResponse, len(w.Papers))
		for i := range w.Papers {
			resp.Papers[i] = paperToResponse(&w.Papers[i])
		}
	}

	if len(w.Extensions) > 0 {
		resp.Extensions = make([]extensionResponse, len(w.Extensions))
		for i, ext := range w.Extensions {
			resp.Extensions[i] = extensionResponse{
				Title:       ext.Title,
				Description: ext.Description,
				Approach:    ext.Approach,
				Difficulty:  string(ext.Difficulty),
			}
		}
	}

	return resp
}

// paperToResponse converts a domain paper to its response form.
func paperToResponse(p *domain.Paper) paperResponse {
	return paperResponse{
		Identifier:  p.Identifier,
		Source:      string(p.Source),
		Title:       p.Title,
		Authors:     p.Authors,
		Abstract:    p.Abstract,
		Journal:     p.Journal,
		Link:        p.Link,
		DOI:         p.DOI,
		PublishedAt: p.PublishedAt,
	}
}

// submissionToResponse converts a domain submission to its response form.
func submissionToResponse(s *domain.Submission) submissionResponse {
	return submissionResponse{
		ID:             s.ID,
		Title:          s.Title,
		Authors:        s.Authors,
		Content:        s.Content,
		ProfessorEmail: s.ProfessorEmail,
		Status:         string(s.Status),
		Feedback:       s.Feedback,
		SubmittedAt:    s.SubmittedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// sourceResultToResponse converts one fan-out search result. Failed sources
// report the error message alongside an empty paper list.
func sourceResultToResponse(res papersources.SourceResult) sourceSearchResponse {
	out := sourceSearchResponse{
		Source: string(res.Source),
		Papers: []paperResponse{},
	}

	if res.Error != nil {
		out.Error = res.Error.Error()
		return out
	}

	if res.Result != nil {
		out.TotalResults = res.Result.TotalResults
		for _, p := range res.Result.Papers {
			out.Papers = append(out.Papers, paperToResponse(p))
		}
	}

	return out
}
