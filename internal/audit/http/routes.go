package audithttp

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

const (
	rateLimit  = 10
	rateWindow = time.Minute
)

// MountRoutes registers the audit history endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil || h.service == nil {
		return
	}
	r.With(httpx.RateLimit(rateLimit, rateWindow)).Get("/companies/{companyID}/audit", h.handleHistory)
}
