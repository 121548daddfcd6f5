package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// ProfitAndLossAccount represents an income or expense account summary.
type ProfitAndLossAccount struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Income    ProfitAndLossSection `json:"income"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetProfit decimal.Decimal      `json:"net_profit"`
}

// BuildProfitAndLoss aggregates accounts into income and expense sections.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	income := ProfitAndLossSection{Label: "Income"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range accounts {
		row := ProfitAndLossAccount{AccountID: acc.AccountID, Code: acc.Code, Name: acc.Name, Amount: acc.Balance()}
		switch acc.Type {
		case ledger.AccountTypeIncome:
			income.Accounts = append(income.Accounts, row)
			income.Total = income.Total.Add(row.Amount)
		case ledger.AccountTypeExpense:
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(income.Accounts, func(i, j int) bool { return income.Accounts[i].Code < income.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return ProfitAndLoss{
		Income:    income,
		Expense:   expense,
		NetProfit: income.Total.Sub(expense.Total),
	}
}
