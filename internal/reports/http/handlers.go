package reportshttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/reports"
)

const dateLayout = "2006-01-02"

// StatementService is the read contract the handlers render.
type StatementService interface {
	AccountLedger(ctx context.Context, q reports.LedgerQuery) (reports.AccountLedger, error)
	TrialBalance(ctx context.Context, q reports.Query) (reports.TrialBalance, error)
	BalanceSheet(ctx context.Context, q reports.AsOfQuery) (reports.BalanceSheet, error)
	ProfitAndLoss(ctx context.Context, q reports.Query) (reports.ProfitAndLoss, error)
	ProjectProfitability(ctx context.Context, q reports.Query) (reports.ProjectProfitability, error)
	CashBook(ctx context.Context, q reports.BookQuery) (reports.CashBook, error)
}

// Handler serves ledger statements as JSON.
type Handler struct {
	logger  *slog.Logger
	service StatementService
	now     func() time.Time
}

// NewHandler builds the statements handler.
func NewHandler(logger *slog.Logger, service StatementService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

type paramError struct {
	field string
}

func (e paramError) Error() string {
	return fmt.Sprintf("invalid %s parameter", e.field)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	q, err := parsePeriodQuery(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), q)
	h.respond(w, r, tb, err)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyParam(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	asOf, err := dateParam(r, "as_of")
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	if asOf.IsZero() {
		now := h.now().UTC()
		asOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	bs, err := h.service.BalanceSheet(r.Context(), reports.AsOfQuery{CompanyID: companyID, AsOf: asOf})
	h.respond(w, r, bs, err)
}

func (h *Handler) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	q, err := parsePeriodQuery(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("project_id")); raw != "" {
		projectID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || projectID <= 0 {
			h.respond(w, r, nil, paramError{field: "project_id"})
			return
		}
		q.ProjectID = &projectID
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), q)
	h.respond(w, r, pl, err)
}

func (h *Handler) handleProjects(w http.ResponseWriter, r *http.Request) {
	q, err := parsePeriodQuery(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	pp, err := h.service.ProjectProfitability(r.Context(), q)
	h.respond(w, r, pp, err)
}

func (h *Handler) handleAccountLedger(w http.ResponseWriter, r *http.Request) {
	q, err := parsePeriodQuery(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || accountID <= 0 {
		h.respond(w, r, nil, paramError{field: "account"})
		return
	}
	ledger, err := h.service.AccountLedger(r.Context(), reports.LedgerQuery{
		CompanyID: q.CompanyID,
		AccountID: accountID,
		From:      q.From,
		To:        q.To,
	})
	h.respond(w, r, ledger, err)
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	q, err := parsePeriodQuery(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}
	kind, ok := reports.ParseBookKind(chi.URLParam(r, "kind"))
	if !ok {
		h.respond(w, r, nil, paramError{field: "kind"})
		return
	}
	book, err := h.service.CashBook(r.Context(), reports.BookQuery{CompanyID: q.CompanyID, Kind: kind, From: q.From, To: q.To})
	h.respond(w, r, book, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err == nil {
		httpx.JSON(w, http.StatusOK, body)
		return
	}
	var perr paramError
	switch {
	case errors.As(err, &perr), errors.Is(err, reports.ErrInvalidQuery):
		httpx.RespondError(w, r, httpx.Classify(err, httpx.ErrValidation))
	case errors.Is(err, reports.ErrAccountNotFound):
		httpx.RespondError(w, r, httpx.Classify(err, httpx.ErrNotFound))
	default:
		h.logger.ErrorContext(r.Context(), "build statement", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, r, err)
	}
}

func parsePeriodQuery(r *http.Request) (reports.Query, error) {
	companyID, err := companyParam(r)
	if err != nil {
		return reports.Query{}, err
	}
	from, err := dateParam(r, "from")
	if err != nil {
		return reports.Query{}, err
	}
	to, err := dateParam(r, "to")
	if err != nil {
		return reports.Query{}, err
	}
	return reports.Query{CompanyID: companyID, From: from, To: to}, nil
}

func companyParam(r *http.Request) (int64, error) {
	companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		return 0, paramError{field: "company"}
	}
	return companyID, nil
}

func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, paramError{field: name}
	}
	return t, nil
}
