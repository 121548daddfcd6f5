package reports

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// Difference is Assets - (Liabilities + Equity). CurrentEarnings is the
// income less expense not yet closed to equity and usually explains it.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	CurrentEarnings           decimal.Decimal     `json:"current_earnings"`
	Difference                decimal.Decimal     `json:"difference"`
	Balanced                  bool                `json:"balanced"`
	Warnings                  []string            `json:"warnings,omitempty"`
}

// BuildBalanceSheet aggregates balances into assets, liabilities, and equity sections.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}
	var earnings decimal.Decimal

	for _, acc := range accounts {
		row := BalanceSheetAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Balance: acc.Balance()}
		switch acc.Type {
		case ledger.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case ledger.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case ledger.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case ledger.AccountTypeIncome:
			earnings = earnings.Add(row.Balance)
		case ledger.AccountTypeExpense:
			earnings = earnings.Sub(row.Balance)
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })

	sheet := BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total),
		CurrentEarnings:           earnings,
	}
	sheet.Difference = assets.Total.Sub(sheet.TotalLiabilitiesAndEquity)
	sheet.Balanced = sheet.Difference.IsZero()
	if !sheet.Balanced {
		sheet.Warnings = append(sheet.Warnings, fmt.Sprintf(
			"Balance sheet is out of balance: assets %s, liabilities and equity %s, difference %s",
			assets.Total.StringFixed(2), sheet.TotalLiabilitiesAndEquity.StringFixed(2), sheet.Difference.StringFixed(2)))
		if !earnings.IsZero() {
			sheet.Warnings = append(sheet.Warnings, fmt.Sprintf(
				"Current earnings of %s have not been closed to equity", earnings.StringFixed(2)))
		}
	}
	return sheet
}
