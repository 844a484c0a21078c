package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/scholarpipe/research-assistant/internal/database"
	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/papersources"
	"github.com/scholarpipe/research-assistant/internal/repository"
	"github.com/scholarpipe/research-assistant/internal/submission"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockEngine implements WorkflowEngine for HTTP handler tests.
type mockEngine struct {
	startFn       func(topic string, maxPapers int) (string, error)
	getProgressFn func(id string) (*domain.ResearchWorkflow, error)
	cancelFn      func(id string) error
}

func (m *mockEngine) Start(topic string, maxPapers int) (string, error) {
	if m.startFn != nil {
		return m.startFn(topic, maxPapers)
	}
	return uuid.New().String(), nil
}

func (m *mockEngine) GetProgress(id string) (*domain.ResearchWorkflow, error) {
	if m.getProgressFn != nil {
		return m.getProgressFn(id)
	}
	return nil, domain.NewNotFoundError("workflow", id)
}

func (m *mockEngine) Cancel(id string) error {
	if m.cancelFn != nil {
		return m.cancelFn(id)
	}
	return nil
}

// mockAssistant implements AssistantService for HTTP handler tests.
type mockAssistant struct {
	explainFn func(ctx context.Context, concept, extraContext string) (string, error)
	checkFn   func(ctx context.Context, title, content string) (string, error)
}

func (m *mockAssistant) ExplainConcept(ctx context.Context, concept, extraContext string) (string, error) {
	if m.explainFn != nil {
		return m.explainFn(ctx, concept, extraContext)
	}
	return "an explanation", nil
}

func (m *mockAssistant) CheckPaper(ctx context.Context, title, content string) (string, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, title, content)
	}
	return "looks complete", nil
}

// mockSubmissions implements SubmissionService for HTTP handler tests.
type mockSubmissions struct {
	createFn       func(ctx context.Context, req submission.CreateRequest) (*domain.Submission, error)
	getFn          func(ctx context.Context, id string) (*domain.Submission, error)
	listFn         func(ctx context.Context, filter repository.SubmissionFilter) ([]*domain.Submission, int64, error)
	updateStatusFn func(ctx context.Context, id string, status domain.SubmissionStatus, feedback string) (*domain.Submission, error)
}

func (m *mockSubmissions) Create(ctx context.Context, req submission.CreateRequest) (*domain.Submission, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, domain.ErrInvalidArgument
}

func (m *mockSubmissions) Get(ctx context.Context, id string) (*domain.Submission, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("submission", id)
}

func (m *mockSubmissions) List(ctx context.Context, filter repository.SubmissionFilter) ([]*domain.Submission, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockSubmissions) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, feedback string) (*domain.Submission, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, feedback)
	}
	return nil, domain.NewNotFoundError("submission", id)
}

// mockSearcher implements SourceSearcher for HTTP handler tests.
type mockSearcher struct {
	searchFn func(ctx context.Context, params papersources.SearchParams, sourceTypes []domain.SourceType) []papersources.SourceResult
}

func (m *mockSearcher) SearchSources(ctx context.Context, params papersources.SearchParams, sourceTypes []domain.SourceType) []papersources.SourceResult {
	if m.searchFn != nil {
		return m.searchFn(ctx, params, sourceTypes)
	}
	return nil
}

// fakeHealth implements HealthChecker for HTTP handler tests.
type fakeHealth struct {
	status database.HealthStatus
}

func (f *fakeHealth) Health(ctx context.Context) database.HealthStatus {
	if f.status.Status == "" {
		return database.HealthStatus{Status: "healthy"}
	}
	return f.status
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestServer(engine WorkflowEngine, assistant AssistantService, subs SubmissionService, searcher SourceSearcher) *Server {
	return NewServer(Config{Address: "127.0.0.1:0"}, engine, assistant, subs, searcher, &fakeHealth{}, zerolog.Nop(), nil)
}

// doJSON serves a JSON request through the router and returns the recorder.
func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// doRaw serves a request with a raw body through the router.
func doRaw(s *Server, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the recorder body into dst.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// errorMessage extracts the error field from a JSON error response.
func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rec, &body)
	return body["error"]
}

func testWorkflowID() string {
	return "7b2f8a44-3c1d-4a9e-8f2b-1d6c9e0a5b3f"
}

func testSubmissionID() string {
	return "4e8d2c6a-9f1b-4d7e-a3c5-2b8f0e6d4a1c"
}

func activeWorkflow(id string) *domain.ResearchWorkflow {
	return &domain.ResearchWorkflow{
		ID:              id,
		Topic:           "protein folding",
		MaxPapers:       3,
		Status:          domain.WorkflowStatusSearching,
		ProgressPercent: domain.ProgressSearching,
		StepLabel:       domain.StepLabelSearching,
	}
}

func completedWorkflow(id string) *domain.ResearchWorkflow {
	return &domain.ResearchWorkflow{
		ID:              id,
		Topic:           "protein folding",
		MaxPapers:       3,
		Status:          domain.WorkflowStatusCompleted,
		ProgressPercent: domain.ProgressCompleted,
		StepLabel:       domain.StepLabelCompleted,
		Papers: []domain.Paper{
			{Identifier: "12345", Source: domain.SourceTypePubMed, Title: "Paper One", Authors: []string{"Ada Lovelace"}},
		},
		Synthesis: "The papers agree on the main finding.",
		Extensions: []domain.Extension{
			{Title: "Cross-validation study", Description: "Validate on new cohorts.", Difficulty: domain.DifficultyMedium},
		},
	}
}

func testSubmission(id string) *domain.Submission {
	return &domain.Submission{
		ID:             id,
		Title:          "Attention Is Not All You Need",
		Authors:        []string{"Ada Lovelace"},
		Content:        "Abstract. Introduction.",
		ProfessorEmail: "prof@example.edu",
		Status:         domain.SubmissionStatusSubmitted,
	}
}
