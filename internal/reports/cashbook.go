package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CashBook combines the ledgers of every cash or bank account.
type CashBook struct {
	Kind     BookKind        `json:"kind"`
	Accounts []AccountLedger `json:"accounts"`
	Opening  decimal.Decimal `json:"opening"`
	Receipts decimal.Decimal `json:"receipts"`
	Payments decimal.Decimal `json:"payments"`
	Closing  decimal.Decimal `json:"closing"`
}

// BuildCashBook totals the account ledgers of a book. Receipts are debits to
// the cash or bank accounts and payments are credits.
func BuildCashBook(kind BookKind, ledgers []AccountLedger) CashBook {
	book := CashBook{Kind: kind, Accounts: append([]AccountLedger(nil), ledgers...)}
	sort.Slice(book.Accounts, func(i, j int) bool { return book.Accounts[i].Account.Code < book.Accounts[j].Account.Code })
	for _, l := range book.Accounts {
		book.Opening = book.Opening.Add(l.Opening)
		book.Receipts = book.Receipts.Add(l.TotalDebit)
		book.Payments = book.Payments.Add(l.TotalCredit)
		book.Closing = book.Closing.Add(l.Closing)
	}
	return book
}
