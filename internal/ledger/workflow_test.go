package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatusTable(t *testing.T) {
	statuses := []VoucherStatus{StatusDraft, StatusSubmitted, StatusApproved, StatusPosted, StatusReversed}
	actions := []Action{ActionSubmit, ActionApprove, ActionReject, ActionPost, ActionReverse}
	legal := map[VoucherStatus]map[Action]VoucherStatus{
		StatusDraft:     {ActionSubmit: StatusSubmitted},
		StatusSubmitted: {ActionApprove: StatusApproved, ActionReject: StatusDraft},
		StatusApproved:  {ActionPost: StatusPosted},
		StatusPosted:    {ActionReverse: StatusReversed},
	}
	for _, from := range statuses {
		for _, action := range actions {
			to, ok := NextStatus(from, action)
			want, wantOK := legal[from][action]
			assert.Equalf(t, wantOK, ok, "%s via %s", from, action)
			assert.Equalf(t, want, to, "%s via %s", from, action)
		}
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusSubmitted, StatusDraft))
	assert.True(t, CanTransition(StatusApproved, StatusPosted))
	assert.False(t, CanTransition(StatusDraft, StatusPosted))
	assert.False(t, CanTransition(StatusReversed, StatusPosted))
	assert.False(t, CanTransition(StatusPosted, StatusDraft))
}

func TestCheckTransitionReportsStatuses(t *testing.T) {
	_, err := checkTransition(StatusDraft, ActionPost)
	require.NotNil(t, err)
	assert.Equal(t, StatusDraft, err.From)
	assert.Equal(t, StatusPosted, err.To)
	assert.True(t, errors.Is(err, ErrTransition))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestCapabilities(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleUser, ActionCreate, true},
		{RoleUser, ActionSubmit, true},
		{RoleUser, ActionApprove, false},
		{RoleUser, ActionPost, false},
		{RoleUser, ActionReverse, false},
		{RoleAccountant, ActionApprove, true},
		{RoleAccountant, ActionReject, true},
		{RoleAccountant, ActionPost, true},
		{RoleAdmin, ActionReverse, true},
		{Role("GUEST"), ActionSubmit, false},
		{Role(""), ActionCreate, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, Can(tc.role, tc.action), "%s %s", tc.role, tc.action)
	}
	assert.Equal(t, RoleAccountant, ParseRole(" accountant "))
}

func TestFormatVoucherNo(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "JV-20240305-0001", FormatVoucherNo(VoucherTypeJournal, date, 1))
	assert.Equal(t, "PV-20240305-0042", FormatVoucherNo(VoucherTypePayment, date, 42))
	assert.Equal(t, "PU-20240305-12345", FormatVoucherNo(VoucherTypePurchase, date, 12345))
}

func TestVoucherSeq(t *testing.T) {
	seq, ok := VoucherSeq("SV-20240305-0042")
	require.True(t, ok)
	assert.Equal(t, int64(42), seq)

	seq, ok = VoucherSeq("JV-20240305-10000")
	require.True(t, ok)
	assert.Equal(t, int64(10000), seq)

	for _, bad := range []string{"", "JV", "JV-20240305-", "JV-20240305-00a1"} {
		_, ok := VoucherSeq(bad)
		assert.False(t, ok, bad)
	}
}
