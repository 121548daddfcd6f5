package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// LedgerEntry is a ledger line with the running balance after it.
type LedgerEntry struct {
	LedgerLine
	Balance decimal.Decimal `json:"balance"`
}

// AccountLedger is the chronological activity of one account.
type AccountLedger struct {
	Account     ledger.Account  `json:"account"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Opening     decimal.Decimal `json:"opening"`
	Entries     []LedgerEntry   `json:"entries"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Closing     decimal.Decimal `json:"closing"`
}

// BuildAccountLedger orders lines by voucher date, voucher sequence, line
// creation time and line id, then accumulates the running balance from opening.
// Same-day vouchers of different types interleave by sequence.
func BuildAccountLedger(account ledger.Account, from, to time.Time, opening decimal.Decimal, lines []LedgerLine) AccountLedger {
	sorted := append([]LedgerLine(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.VoucherDate.Equal(b.VoucherDate) {
			return a.VoucherDate.Before(b.VoucherDate)
		}
		if a.VoucherNo != b.VoucherNo {
			seqA, okA := ledger.VoucherSeq(a.VoucherNo)
			seqB, okB := ledger.VoucherSeq(b.VoucherNo)
			if okA && okB && seqA != seqB {
				return seqA < seqB
			}
			return a.VoucherNo < b.VoucherNo
		}
		if !a.LineCreatedAt.Equal(b.LineCreatedAt) {
			return a.LineCreatedAt.Before(b.LineCreatedAt)
		}
		return a.LineID < b.LineID
	})

	out := AccountLedger{
		Account: account,
		From:    from,
		To:      to,
		Opening: opening,
		Entries: make([]LedgerEntry, 0, len(sorted)),
	}
	running := opening
	for _, line := range sorted {
		running = running.Add(account.Type.Impact(line.Debit, line.Credit))
		out.TotalDebit = out.TotalDebit.Add(line.Debit)
		out.TotalCredit = out.TotalCredit.Add(line.Credit)
		out.Entries = append(out.Entries, LedgerEntry{LedgerLine: line, Balance: running})
	}
	out.Closing = running
	return out
}
