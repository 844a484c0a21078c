package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/llm"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for JSON request bodies
)

// validate checks request struct tags. Shared across handlers; the
// validator is safe for concurrent use.
var validate = validator.New()

// decodeJSON reads and unmarshals a size-limited JSON request body into dst.
// On failure it writes a 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// validateRequest runs struct tag validation on req, writing a 400 response
// naming the first failed field when validation fails.
func validateRequest(w http.ResponseWriter, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		writeError(w, http.StatusBadRequest, fmt.Sprintf("field %s failed validation (%s)", f.Field(), f.Tag()))
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request")
	return false
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var apiErr *llm.APIError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		var te *domain.TransitionError
		if errors.As(err, &te) {
			writeError(w, http.StatusConflict, te.Error())
		} else {
			writeError(w, http.StatusConflict, "invalid status transition")
		}
	case errors.Is(err, domain.ErrInvalidArgument):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid argument")
		}
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream timeout")
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, "completion provider error")
	case errors.Is(err, domain.ErrTransient):
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	case errors.Is(err, domain.ErrPermanent):
		writeError(w, http.StatusBadGateway, "upstream provider rejected the request")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, applying default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodeHTTPPageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodeHTTPPageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
