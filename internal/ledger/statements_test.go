package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/reports"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

var (
	cashAccount  = ledger.Account{ID: 1, CompanyID: 1, Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, IsActive: true}
	salesAccount = ledger.Account{ID: 2, CompanyID: 1, Code: "4000", Name: "Sales", Type: ledger.AccountTypeIncome, IsActive: true}
)

func postAndReverseSale(t *testing.T, amount string) (original, reversal ledger.Voucher) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := ledger.NewMemService(now, cashAccount, salesAccount)
	value := decimal.RequireFromString(amount)

	res, err := svc.CreateDraft(ctx, ledger.CreateVoucherInput{
		CompanyID: 1,
		ActorID:   10,
		Role:      ledger.RoleUser,
		Date:      now,
		Type:      ledger.VoucherTypeSales,
		Narration: "Cash sale",
		Lines: []ledger.LineInput{
			{AccountID: cashAccount.ID, Debit: value},
			{AccountID: salesAccount.ID, Credit: value},
		},
	})
	require.NoError(t, err)
	require.Truef(t, res.Success, "create draft: %v", res.Err)
	cmd := ledger.TransitionCommand{VoucherID: res.Voucher.ID, ActorID: 20, CompanyID: 1, Role: ledger.RoleAccountant}
	for _, step := range []func(context.Context, ledger.TransitionCommand) (ledger.Result, error){svc.Submit, svc.Approve, svc.Post} {
		res, err := step(ctx, cmd)
		require.NoError(t, err)
		require.Truef(t, res.Success, "workflow step: %v", res.Err)
	}

	res, err = svc.Reverse(ctx, ledger.ReverseCommand{TransitionCommand: cmd})
	require.NoError(t, err)
	require.Truef(t, res.Success, "reverse: %v", res.Err)

	original, err = svc.Get(ctx, 1, cmd.VoucherID)
	require.NoError(t, err)
	reversal, err = svc.Get(ctx, 1, res.Reversal.ID)
	require.NoError(t, err)
	return original, reversal
}

// balancesOf folds the lines of counted vouchers into per-account totals.
func balancesOf(accounts []ledger.Account, vouchers ...ledger.Voucher) []reports.AccountBalance {
	out := make([]reports.AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		row := reports.AccountBalance{AccountID: acc.ID, Code: acc.Code, Name: acc.Name, Type: acc.Type}
		for _, v := range vouchers {
			if !v.Status.Counted() {
				continue
			}
			for _, line := range v.Lines {
				if line.AccountID == acc.ID {
					row.Debit = row.Debit.Add(line.Debit)
					row.Credit = row.Credit.Add(line.Credit)
				}
			}
		}
		out = append(out, row)
	}
	return out
}

func ledgerLinesOf(accountID int64, vouchers ...ledger.Voucher) []reports.LedgerLine {
	var out []reports.LedgerLine
	for _, v := range vouchers {
		if !v.Status.Counted() {
			continue
		}
		for _, line := range v.Lines {
			if line.AccountID != accountID {
				continue
			}
			out = append(out, reports.LedgerLine{
				VoucherID:     v.ID,
				VoucherNo:     v.VoucherNo,
				VoucherDate:   v.Date,
				VoucherType:   v.Type,
				VoucherStatus: v.Status,
				LineID:        line.ID,
				Debit:         line.Debit,
				Credit:        line.Credit,
			})
		}
	}
	return out
}

func TestReversedSaleNetsToZeroInStatements(t *testing.T) {
	original, reversal := postAndReverseSale(t, "1000")
	require.Equal(t, ledger.StatusReversed, original.Status)
	require.Equal(t, ledger.StatusPosted, reversal.Status)

	accounts := []ledger.Account{cashAccount, salesAccount}
	tb := reports.BuildTrialBalance(balancesOf(accounts, original, reversal))
	require.True(t, tb.Balanced, "warnings: %v", tb.Warnings)
	assert.True(t, decimal.RequireFromString("2000").Equal(tb.TotalDebit))
	for _, grp := range tb.Groups {
		for _, row := range grp.Accounts {
			assert.True(t, row.Balance.IsZero(), "%s nets to %v", row.Code, row.Balance)
			assert.True(t, decimal.RequireFromString("1000").Equal(row.Debit), "%s debit %v", row.Code, row.Debit)
			assert.True(t, decimal.RequireFromString("1000").Equal(row.Credit), "%s credit %v", row.Code, row.Credit)
		}
	}

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	lines := ledgerLinesOf(cashAccount.ID, original, reversal)
	first := reports.BuildAccountLedger(cashAccount, from, to, decimal.Zero, lines)
	second := reports.BuildAccountLedger(cashAccount, from, to, decimal.Zero, lines)
	assert.Equal(t, first, second)

	require.Len(t, first.Entries, 2)
	assert.Equal(t, original.VoucherNo, first.Entries[0].VoucherNo)
	assert.Equal(t, ledger.StatusReversed, first.Entries[0].VoucherStatus)
	assert.True(t, decimal.RequireFromString("1000").Equal(first.Entries[0].Balance))
	assert.Equal(t, reversal.VoucherNo, first.Entries[1].VoucherNo)
	assert.True(t, first.Closing.IsZero())

	sales := reports.BuildAccountLedger(salesAccount, from, to, decimal.Zero, ledgerLinesOf(salesAccount.ID, original, reversal))
	assert.True(t, sales.Closing.IsZero())
}
