package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistoryRepo struct {
	rows     []LogRow
	lastCall ListParams
}

func (s *stubHistoryRepo) ListAuditLogs(ctx context.Context, arg ListParams) ([]LogRow, error) {
	s.lastCall = arg
	return s.rows, nil
}

func TestServiceHistoryPaging(t *testing.T) {
	repo := &stubHistoryRepo{
		rows: []LogRow{
			mockRow(3, "VOUCHER_POST", "2024-03-10T10:00:00Z"),
			mockRow(2, "VOUCHER_APPROVE", "2024-03-09T09:00:00Z"),
			mockRow(1, "VOUCHER_SUBMIT", "2024-03-08T08:00:00Z"),
		},
	}
	svc := NewService(repo)
	result, err := svc.History(context.Background(), HistoryFilters{
		CompanyID:  7,
		EntityType: "Voucher",
		EntityID:   "42",
		Action:     "voucher_post ",
		From:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Page:       1,
		PageSize:   2,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Equal(t, int32(3), repo.lastCall.LimitRows)
	assert.Equal(t, int32(0), repo.lastCall.OffsetRows)
	assert.Equal(t, "VOUCHER_POST", repo.lastCall.Action)
	require.NotNil(t, repo.lastCall.From)
	assert.Nil(t, repo.lastCall.To)

	first := result.Rows[0]
	assert.Equal(t, "VOUCHER_POST", first.Action)
	assert.Equal(t, "req-1", first.RequestMetadata.RequestID)
	assert.Equal(t, Change{From: "APPROVED", To: "POSTED"}, first.Diff["status"])
	assert.Equal(t, "POSTED", first.After["status"])
}

func TestServiceHistoryClampsPageSize(t *testing.T) {
	repo := &stubHistoryRepo{}
	svc := NewService(repo)
	result, err := svc.History(context.Background(), HistoryFilters{CompanyID: 1, Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Paging.PageSize)
	assert.Equal(t, 2, result.Paging.PrevPage)
	assert.Equal(t, int32(100), repo.lastCall.OffsetRows)
	assert.Equal(t, int32(51), repo.lastCall.LimitRows)
}

func TestServiceHistoryRequiresCompany(t *testing.T) {
	svc := NewService(&stubHistoryRepo{})
	_, err := svc.History(context.Background(), HistoryFilters{})
	require.Error(t, err)
}

func mockRow(id int64, action, ts string) LogRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return LogRow{
		ID:              id,
		CompanyID:       7,
		ActorUserID:     11,
		EntityType:      "Voucher",
		EntityID:        "42",
		Action:          action,
		Before:          []byte(`{"status":"APPROVED"}`),
		After:           []byte(`{"status":"POSTED"}`),
		Diff:            []byte(`{"status":{"from":"APPROVED","to":"POSTED"}}`),
		RequestMetadata: []byte(`{"request_id":"req-1"}`),
		At:              at,
	}
}
