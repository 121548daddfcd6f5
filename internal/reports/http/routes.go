package reportshttp

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

const (
	rateLimit  = 30
	rateWindow = time.Minute
)

// MountRoutes registers the statement endpoints of one company.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil || h.service == nil {
		return
	}
	r.Route("/companies/{companyID}/reports", func(r chi.Router) {
		r.Use(httpx.RateLimit(rateLimit, rateWindow))
		r.Get("/trial-balance", h.handleTrialBalance)
		r.Get("/balance-sheet", h.handleBalanceSheet)
		r.Get("/profit-loss", h.handleProfitAndLoss)
		r.Get("/projects", h.handleProjects)
		r.Get("/accounts/{accountID}/ledger", h.handleAccountLedger)
		r.Get("/books/{kind}", h.handleBook)
	})
}
