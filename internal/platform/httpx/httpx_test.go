package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorUsesClass(t *testing.T) {
	base := errors.New("reports: invalid query")
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"validation", Classify(fmt.Errorf("%w: company id required", base), ErrValidation), http.StatusBadRequest, "reports: invalid query: company id required"},
		{"not found", Classify(errors.New("voucher 9 not found"), ErrNotFound), http.StatusNotFound, "voucher 9 not found"},
		{"duplicate", Classify(errors.New("already reversed"), ErrDuplicate), http.StatusConflict, "already reversed"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/companies/1/reports/trial-balance", nil)
			RespondError(rr, req, tc.err)
			require.Equal(t, tc.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
			assert.Equal(t, tc.status, problem.Status)
			assert.Equal(t, tc.detail, problem.Detail)
			assert.Equal(t, "/companies/1/reports/trial-balance", problem.Instance)
		})
	}
}

func TestClassifyKeepsChain(t *testing.T) {
	base := errors.New("root")
	err := Classify(fmt.Errorf("wrap: %w", base), ErrNotFound)
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Nil(t, Classify(nil, ErrNotFound))
}

func TestProblemCarriesRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/companies/1/audit", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
	Problem(rr, req, http.StatusBadRequest, "Validation Failed", "bad range")

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "req-42", problem.RequestID)
	assert.Equal(t, "about:blank", problem.Type)
	assert.Equal(t, "bad range", problem.Detail)
}

func TestRateLimitAnswersWithProblem(t *testing.T) {
	handler := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/companies/1/audit", nil))
	require.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/companies/1/audit", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &problem))
	assert.Equal(t, "Too Many Requests", problem.Title)
}
