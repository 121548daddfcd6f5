package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func TestHealthzReportsChecks(t *testing.T) {
	router := NewRouter(RouterParams{
		Metrics: observability.NewMetrics(),
		Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return nil },
		},
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"postgres": "up", "redis": "up"}, body.Checks)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Frame-Options"))
}

func TestHealthzDegraded(t *testing.T) {
	router := NewRouter(RouterParams{
		Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
		},
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "down", body.Checks["redis"])
	assert.NotContains(t, rr.Body.String(), "refused")
}

func TestMetricsEndpointRecordsRoutes(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{Metrics: metrics})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `odyssey_ledger_http_requests_total{code="200",method="GET",route="/healthz"} 1`)
}

func TestRequestMetadataMiddleware(t *testing.T) {
	var got shared.RequestMetadata
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{}) {
		r.Use(mw)
	}
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		got, _ = shared.RequestMetadataFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set("User-Agent", "ledger-test")
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "req-42", got.RequestID)
	assert.Equal(t, "ledger-test", got.UserAgent)
	assert.Equal(t, "http", got.Source)
	assert.NotEmpty(t, got.IPAddress)
}
