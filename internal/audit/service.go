package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ListParams is the repository query for one page of audit history.
type ListParams struct {
	CompanyID   int64
	EntityType  string
	EntityID    string
	Action      string
	ActorUserID int64
	From        *time.Time
	To          *time.Time
	OffsetRows  int32
	LimitRows   int32
}

// Repository reads persisted audit rows.
type Repository interface {
	ListAuditLogs(ctx context.Context, arg ListParams) ([]LogRow, error)
}

// Result wraps history rows with paging information.
type Result struct {
	Rows   []LogEntry `json:"rows"`
	Paging PagingInfo `json:"paging"`
}

// Service serves audit history for ledger entities.
type Service struct {
	repo Repository
}

// NewService builds the audit history service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// History returns one page of audit entries, newest first.
func (s *Service) History(ctx context.Context, filters HistoryFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if filters.CompanyID <= 0 {
		return Result{}, fmt.Errorf("audit: company required")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	params := ListParams{
		CompanyID:   filters.CompanyID,
		EntityType:  strings.TrimSpace(filters.EntityType),
		EntityID:    strings.TrimSpace(filters.EntityID),
		Action:      strings.ToUpper(strings.TrimSpace(filters.Action)),
		ActorUserID: filters.ActorUserID,
		From:        optionalTime(filters.From),
		To:          optionalTime(filters.To),
		OffsetRows:  int32(offset),
		LimitRows:   int32(pageSize + 1),
	}
	rows, err := s.repo.ListAuditLogs(ctx, params)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	entries := make([]LogEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := decodeRow(row)
		if err != nil {
			return Result{}, fmt.Errorf("audit: decode row %d: %w", row.ID, err)
		}
		entries = append(entries, entry)
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: entries, Paging: paging}, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
