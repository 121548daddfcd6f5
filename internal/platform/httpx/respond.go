// Package httpx writes JSON bodies and RFC7807 problem documents.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ProblemDetail is an RFC7807 problem document.
type ProblemDetail struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Warn("httpx: encode response", slog.Int("status", status), slog.Any("error", err))
	}
}

// Problem writes a problem document naming the request path and the chi
// request id so a client report can be matched against the logs.
func Problem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Type:      "about:blank",
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
