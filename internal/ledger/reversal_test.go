package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reverseCmd(id int64) ReverseCommand {
	return ReverseCommand{TransitionCommand: TransitionCommand{VoucherID: id, ActorID: accountant, CompanyID: company, Role: RoleAccountant}}
}

func TestReversePostedVoucher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := int64(77)
	vendor := int64(5)
	v := f.posted(t,
		LineInput{AccountID: 1, Debit: dec("1000"), ProjectID: &project, VendorID: &vendor, Description: "cash in"},
		LineInput{AccountID: 2, Credit: dec("1000"), ProjectID: &project, Description: "sale"},
	)

	res, err := f.svc.Reverse(ctx, reverseCmd(v.ID))
	require.NoError(t, err)
	require.Truef(t, res.Success, "reverse: %v", res.Err)

	original := res.Voucher
	require.NotNil(t, original)
	assert.Equal(t, StatusReversed, original.Status)
	require.NotNil(t, original.ReversedBy)
	assert.Equal(t, accountant, *original.ReversedBy)
	require.Len(t, original.ReversalVouchers, 1)

	reversal := res.Reversal
	require.NotNil(t, reversal)
	assert.Equal(t, original.ReversalVouchers[0].ID, reversal.ID)
	assert.Equal(t, StatusPosted, reversal.Status)
	require.NotNil(t, reversal.ReversalOfID)
	assert.Equal(t, v.ID, *reversal.ReversalOfID)
	assert.Equal(t, "JV-20240315-0002", reversal.VoucherNo)
	assert.Equal(t, "Reversal of JV-20240315-0001", reversal.Narration)
	require.NotNil(t, reversal.PostedBy)
	assert.Equal(t, accountant, *reversal.PostedBy)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), reversal.Date)

	require.Len(t, reversal.Lines, 2)
	assert.Equal(t, int64(1), reversal.Lines[0].AccountID)
	assert.True(t, reversal.Lines[0].Debit.IsZero())
	assert.True(t, dec("1000").Equal(reversal.Lines[0].Credit))
	assert.Equal(t, &project, reversal.Lines[0].ProjectID)
	assert.Equal(t, &vendor, reversal.Lines[0].VendorID)
	assert.Equal(t, "cash in", reversal.Lines[0].Description)
	assert.True(t, dec("1000").Equal(reversal.Lines[1].Debit))
	assert.True(t, reversal.Lines[1].Credit.IsZero())

	assert.True(t, ValidateBalance(reversal.BalanceLines(), DefaultEpsilon).Valid)
	actions := f.repo.auditActions()
	assert.Equal(t, []string{"VOUCHER_REVERSAL_CREATE", "VOUCHER_REVERSE"}, actions[len(actions)-2:])
}

func TestSecondReversalIsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.posted(t, cashSale("1000")...)

	res, err := f.svc.Reverse(ctx, reverseCmd(v.ID))
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = f.svc.Reverse(ctx, reverseCmd(v.ID))
	require.NoError(t, err)
	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrDuplicateReversal))
	assert.Equal(t, "voucher JV-20240315-0001 has already been reversed", res.Err.Message)

	reloaded, err := f.svc.Get(ctx, company, v.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.ReversalVouchers, 1)
}

func TestReverseDetectsExistingReversalOfPostedVoucher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.posted(t, cashSale("40")...)

	// A reversal row exists while the original still reads POSTED.
	err := f.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id := v.ID
		_, err := tx.InsertVoucher(ctx, Voucher{CompanyID: company, VoucherNo: "JV-X", Status: StatusPosted, ReversalOfID: &id})
		return err
	})
	require.NoError(t, err)

	res, err := f.svc.Reverse(ctx, reverseCmd(v.ID))
	require.NoError(t, err)
	assert.Equal(t, KindDuplicateReversal, res.Err.Kind)
	assert.Equal(t, StatusPosted, f.repo.voucher(v.ID).Status)
}

func TestConcurrentReversalsCreateOneMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.posted(t, cashSale("400")...)

	const workers = 8
	results := make([]Result, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.svc.Reverse(ctx, reverseCmd(v.ID))
		}()
	}
	close(start)
	wg.Wait()

	wins := 0
	for i, res := range results {
		require.NoError(t, errs[i])
		if res.Success {
			wins++
			continue
		}
		require.NotNil(t, res.Err)
		assert.True(t, errors.Is(res.Err, ErrDuplicateReversal) || errors.Is(res.Err, ErrTransition),
			"unexpected failure: %v", res.Err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, StatusReversed, f.repo.voucher(v.ID).Status)
	assert.Equal(t, 1, f.repo.reversalsOf(v.ID))
	actions := f.repo.auditActions()
	assert.Equal(t, 1, countAction(actions, "VOUCHER_REVERSE"))
	assert.Equal(t, 1, countAction(actions, "VOUCHER_REVERSAL_CREATE"))
}

func TestReverseRequiresPosted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.draft(t, cashSale("40")...)

	res, err := f.svc.Reverse(ctx, reverseCmd(v.ID))
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Err, ErrTransition))
	assert.Equal(t, StatusDraft, res.Err.From)
	assert.Equal(t, StatusReversed, res.Err.To)
}

func TestReverseRequiresElevatedRole(t *testing.T) {
	f := newFixture(t)
	v := f.posted(t, cashSale("40")...)
	cmd := reverseCmd(v.ID)
	cmd.Role = RoleUser

	res, err := f.svc.Reverse(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Err, ErrPermission))
	assert.Equal(t, StatusPosted, f.repo.voucher(v.ID).Status)
}

func TestReverseWithDateAndNarration(t *testing.T) {
	f := newFixture(t)
	v := f.posted(t, cashSale("40")...)
	date := time.Date(2024, 4, 1, 18, 0, 0, 0, time.UTC)
	cmd := reverseCmd(v.ID)
	cmd.Date = &date
	cmd.Narration = "Customer refund"

	res, err := f.svc.Reverse(context.Background(), cmd)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "JV-20240401-0001", res.Reversal.VoucherNo)
	assert.Equal(t, "Customer refund", res.Reversal.Narration)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), res.Reversal.Date)
}

func TestReversalVoucherCanItselfBeReversed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.posted(t, cashSale("40")...)
	res, err := f.svc.Reverse(ctx, reverseCmd(v.ID))
	require.NoError(t, err)
	require.True(t, res.Success)

	again, err := f.svc.Reverse(ctx, reverseCmd(res.Reversal.ID))
	require.NoError(t, err)
	require.True(t, again.Success)
	assert.Equal(t, StatusReversed, again.Voucher.Status)
	assert.True(t, dec("40").Equal(again.Reversal.Lines[0].Debit))
}

func TestReverseLinesSwapsSides(t *testing.T) {
	method := int64(3)
	lines := ReverseLines([]VoucherLine{
		{AccountID: 1, Debit: dec("12.34"), PaymentMethodID: &method},
		{AccountID: 2, Credit: dec("12.34")},
	})
	require.Len(t, lines, 2)
	assert.True(t, dec("12.34").Equal(lines[0].Credit))
	assert.True(t, lines[0].Debit.IsZero())
	assert.Equal(t, &method, lines[0].PaymentMethodID)
	assert.True(t, dec("12.34").Equal(lines[1].Debit))
}
