package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpipe/research-assistant/internal/database"
)

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthz is always ok", func(t *testing.T) {
		s := newTestServer(nil, nil, nil, nil)

		rec := doJSON(t, s, http.MethodGet, "/healthz", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("readyz reports ready when the database is healthy", func(t *testing.T) {
		s := newTestServer(nil, nil, nil, nil)

		rec := doJSON(t, s, http.MethodGet, "/readyz", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("readyz reports not ready when the database is down", func(t *testing.T) {
		health := &fakeHealth{status: database.HealthStatus{
			Status: "unhealthy",
			Error:  "connection refused",
		}}
		s := NewServer(Config{Address: "127.0.0.1:0"}, nil, nil, nil, nil, health, zerolog.Nop(), nil)

		rec := doJSON(t, s, http.MethodGet, "/readyz", nil)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, "connection refused", body["error"])
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("echoes a provided correlation id", func(t *testing.T) {
		s := newTestServer(nil, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Correlation-ID", "corr-42")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, "corr-42", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("generates a correlation id when absent", func(t *testing.T) {
		s := newTestServer(nil, nil, nil, nil)

		rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("responses default to JSON content type", func(t *testing.T) {
		s := newTestServer(nil, nil, nil, nil)

		rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("not mounted when disabled", func(t *testing.T) {
		s := newTestServer(nil, nil, nil, nil)

		rec := doJSON(t, s, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mounted when enabled", func(t *testing.T) {
		s := NewServer(Config{Address: "127.0.0.1:0", MetricsEnabled: true}, nil, nil, nil, nil, &fakeHealth{}, zerolog.Nop(), nil)

		rec := doJSON(t, s, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
