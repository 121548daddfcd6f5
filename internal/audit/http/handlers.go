package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

const (
	defaultPageSize   = 20
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
)

// HistoryService defines the read contract for audit history.
type HistoryService interface {
	History(ctx context.Context, filters audit.HistoryFilters) (audit.Result, error)
}

// Handler serves the audit history of a company as JSON.
type Handler struct {
	logger  *slog.Logger
	service HistoryService
	now     func() time.Time
}

// NewHandler builds the audit history handler.
func NewHandler(logger *slog.Logger, service HistoryService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

type validationError struct {
	field string
}

func (e validationError) Error() string {
	return "invalid " + e.field
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, httpx.Classify(err, httpx.ErrValidation))
		return
	}
	result, err := h.service.History(r.Context(), filters)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load audit history", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	if result.Rows == nil {
		result.Rows = []audit.LogEntry{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) parseFilters(r *http.Request) (audit.HistoryFilters, error) {
	companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		return audit.HistoryFilters{}, validationError{field: "company"}
	}
	query := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(query.Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return audit.HistoryFilters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(query.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return audit.HistoryFilters{}, validationError{field: "from"}
	}
	if fromTime.After(toTime) || toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.HistoryFilters{}, validationError{field: "range"}
	}
	filters := audit.HistoryFilters{
		CompanyID:  companyID,
		EntityType: strings.TrimSpace(query.Get("entity_type")),
		EntityID:   strings.TrimSpace(query.Get("entity_id")),
		Action:     strings.TrimSpace(query.Get("action")),
		From:       fromTime,
		To:         toTime.Add(24*time.Hour - time.Nanosecond),
		Page:       1,
		PageSize:   defaultPageSize,
	}
	if raw := strings.TrimSpace(query.Get("actor")); raw != "" {
		actor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || actor <= 0 {
			return audit.HistoryFilters{}, validationError{field: "actor"}
		}
		filters.ActorUserID = actor
	}
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page <= 0 {
			return audit.HistoryFilters{}, validationError{field: "page"}
		}
		filters.Page = page
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return audit.HistoryFilters{}, validationError{field: "page_size"}
		}
		filters.PageSize = size
	}
	return filters, nil
}
