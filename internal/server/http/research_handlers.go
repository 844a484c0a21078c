package httpserver

import (
	"net/http"
	"strings"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/papersources"
)

// searchRequest is the JSON request body for the fan-out paper search.
type searchRequest struct {
	Query      string   `json:"query" validate:"required,min=3"`
	MaxResults int      `json:"max_results" validate:"omitempty,min=1,max=50"`
	Sources    []string `json:"sources" validate:"omitempty,dive,oneof=pubmed arxiv"`
}

// explainRequest is the JSON request body for a concept explanation.
type explainRequest struct {
	Concept string `json:"concept" validate:"required"`
	Level   string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Context string `json:"context" validate:"omitempty,max=500"`
}

// paperCheckRequest is the JSON request body for a paper formatting check.
type paperCheckRequest struct {
	Title    string `json:"title" validate:"required"`
	Abstract string `json:"abstract" validate:"required"`
}

// searchPapers handles POST /research/search.
// It fans the query out to the requested sources (all enabled sources when
// none are named) and reports per-source results, including failures.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	var sourceTypes []domain.SourceType
	for _, src := range req.Sources {
		sourceTypes = append(sourceTypes, domain.SourceType(src))
	}

	results := s.searcher.SearchSources(r.Context(), papersources.SearchParams{
		Query:      strings.TrimSpace(req.Query),
		MaxResults: req.MaxResults,
	}, sourceTypes)

	resp := searchResponse{Results: make([]sourceSearchResponse, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, sourceResultToResponse(res))
	}

	writeJSON(w, http.StatusOK, resp)
}

// explainConcept handles POST /research/explanations.
func (s *Server) explainConcept(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	extra := strings.TrimSpace(req.Context)
	if req.Level != "" {
		audience := "audience level: " + req.Level
		if extra != "" {
			extra = audience + ". " + extra
		} else {
			extra = audience
		}
	}

	explanation, err := s.assistant.ExplainConcept(r.Context(), req.Concept, extra)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, explanationResponse{
		Concept:     strings.TrimSpace(req.Concept),
		Explanation: explanation,
	})
}

// checkPaper handles POST /research/paper-checks. It accepts either a
// JSON title+abstract body or a multipart form with a PDF file whose
// extracted text is checked directly.
func (s *Server) checkPaper(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.checkPaperFromPDF(w, r)
		return
	}

	var req paperCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	s.finishCheckPaper(w, r, strings.TrimSpace(req.Title), req.Abstract)
}

// checkPaperFromPDF handles the multipart variant of POST /research/paper-checks.
func (s *Server) checkPaperFromPDF(w http.ResponseWriter, r *http.Request) {
	text, ok := s.extractPDFFormText(w, r)
	if !ok {
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "title form field is required")
		return
	}

	s.finishCheckPaper(w, r, title, text)
}

// finishCheckPaper runs the assistant check and writes the response.
func (s *Server) finishCheckPaper(w http.ResponseWriter, r *http.Request, title, content string) {
	feedback, err := s.assistant.CheckPaper(r.Context(), title, content)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paperCheckResponse{
		Title:    title,
		Feedback: feedback,
	})
}
