package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/pdf"
	"github.com/scholarpipe/research-assistant/internal/repository"
	"github.com/scholarpipe/research-assistant/internal/submission"
)

// pdfFormField is the multipart form field carrying the uploaded paper.
const pdfFormField = "pdf"

// createSubmissionRequest is the JSON request body for a paper submission.
type createSubmissionRequest struct {
	Title          string   `json:"title" validate:"required"`
	Authors        []string `json:"authors" validate:"required,min=1"`
	Content        string   `json:"content"`
	ProfessorEmail string   `json:"professor_email" validate:"required,email"`
}

// updateSubmissionStatusRequest is the JSON request body for a status transition.
type updateSubmissionStatusRequest struct {
	Status   string `json:"status" validate:"required"`
	Feedback string `json:"feedback"`
}

// createSubmission handles POST /submissions. It accepts either a JSON body
// or a multipart form with a PDF file whose extracted text becomes the
// submission content.
func (s *Server) createSubmission(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.createSubmissionFromPDF(w, r)
		return
	}

	var req createSubmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	s.finishCreateSubmission(w, r, submission.CreateRequest{
		Title:          req.Title,
		Authors:        req.Authors,
		Content:        req.Content,
		ProfessorEmail: req.ProfessorEmail,
	})
}

// createSubmissionFromPDF handles the multipart variant of POST /submissions.
func (s *Server) createSubmissionFromPDF(w http.ResponseWriter, r *http.Request) {
	text, ok := s.extractPDFFormText(w, r)
	if !ok {
		return
	}

	s.finishCreateSubmission(w, r, submission.CreateRequest{
		Title:          strings.TrimSpace(r.FormValue("title")),
		Authors:        parseAuthorsField(r.MultipartForm.Value["authors"]),
		Content:        text,
		ProfessorEmail: strings.TrimSpace(r.FormValue("professor_email")),
	})
}

// extractPDFFormText parses the multipart form, reads the uploaded PDF,
// and returns its extracted text. On failure it writes the error response
// and returns false.
func (s *Server) extractPDFFormText(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return "", false
	}

	file, _, err := r.FormFile(pdfFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "pdf file field is required")
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read pdf upload")
		return "", false
	}

	text, err := pdf.ExtractText(data)
	if err != nil {
		if errors.Is(err, pdf.ErrNoText) {
			writeError(w, http.StatusUnprocessableEntity, "pdf contains no extractable text")
			return "", false
		}
		writeError(w, http.StatusUnprocessableEntity, "could not extract text from pdf")
		return "", false
	}

	return text, true
}

// finishCreateSubmission runs the tracker create and writes the response.
func (s *Server) finishCreateSubmission(w http.ResponseWriter, r *http.Request, req submission.CreateRequest) {
	sub, err := s.submissions.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info().
		Str("submission_id", sub.ID).
		Str("professor_email", sub.ProfessorEmail).
		Msg("submission created")

	writeJSON(w, http.StatusCreated, createSubmissionResponse{
		SubmissionID: sub.ID,
		Status:       string(sub.Status),
		SubmittedAt:  sub.SubmittedAt,
		Message:      "submission received",
	})
}

// getSubmission handles GET /submissions/{submissionID}.
func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := parseUUID(w, chi.URLParam(r, "submissionID"), "submission_id")
	if !ok {
		return
	}

	sub, err := s.submissions.Get(r.Context(), submissionID.String())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submissionToResponse(sub))
}

// listSubmissions handles GET /submissions with optional status and
// professor_email filters plus pagination.
func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.SubmissionFilter{
		ProfessorEmail: strings.TrimSpace(r.URL.Query().Get("professor_email")),
		Limit:          limit,
		Offset:         offset,
	}

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.SubmissionStatus(statusParam)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "unknown submission status")
			return
		}
		filter.Status = []domain.SubmissionStatus{status}
	}

	submissions, totalCount, err := s.submissions.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]submissionResponse, len(submissions))
	for i, sub := range submissions {
		out[i] = submissionToResponse(sub)
	}

	writeJSON(w, http.StatusOK, listSubmissionsResponse{
		Submissions:   out,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// updateSubmissionStatus handles POST /submissions/{submissionID}/status.
// A transition out of a terminal state is rejected with 409.
func (s *Server) updateSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := parseUUID(w, chi.URLParam(r, "submissionID"), "submission_id")
	if !ok {
		return
	}

	var req updateSubmissionStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	sub, err := s.submissions.UpdateStatus(r.Context(), submissionID.String(),
		domain.SubmissionStatus(req.Status), req.Feedback)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submissionToResponse(sub))
}

// parseAuthorsField splits repeated or comma-separated author form values.
func parseAuthorsField(values []string) []string {
	var authors []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				authors = append(authors, p)
			}
		}
	}
	return authors
}
