package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

// ProjectProfit summarises income and expense tagged to one project.
type ProjectProfit struct {
	ProjectID int64           `json:"project_id"`
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
	Profit    decimal.Decimal `json:"profit"`
	// Margin is profit as a percentage of income, zero without income.
	Margin decimal.Decimal `json:"margin"`
}

// ProjectProfitability lists per-project results ordered by project id.
type ProjectProfitability struct {
	Projects     []ProjectProfit `json:"projects"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
}

// BuildProjectProfitability folds project amounts into per-project results.
func BuildProjectProfitability(amounts []ProjectAmount) ProjectProfitability {
	byProject := make(map[int64]*ProjectProfit)
	for _, amt := range amounts {
		if amt.Type != ledger.AccountTypeIncome && amt.Type != ledger.AccountTypeExpense {
			continue
		}
		p, ok := byProject[amt.ProjectID]
		if !ok {
			p = &ProjectProfit{ProjectID: amt.ProjectID}
			byProject[amt.ProjectID] = p
		}
		impact := amt.Type.Impact(amt.Debit, amt.Credit)
		if amt.Type == ledger.AccountTypeIncome {
			p.Income = p.Income.Add(impact)
		} else {
			p.Expense = p.Expense.Add(impact)
		}
	}

	out := ProjectProfitability{Projects: make([]ProjectProfit, 0, len(byProject))}
	for _, p := range byProject {
		p.Profit = p.Income.Sub(p.Expense)
		if !p.Income.IsZero() {
			p.Margin = p.Profit.Div(p.Income).Mul(hundred).Round(2)
		}
		out.Projects = append(out.Projects, *p)
		out.TotalIncome = out.TotalIncome.Add(p.Income)
		out.TotalExpense = out.TotalExpense.Add(p.Expense)
	}
	sort.Slice(out.Projects, func(i, j int) bool { return out.Projects[i].ProjectID < out.Projects[j].ProjectID })
	out.TotalProfit = out.TotalIncome.Sub(out.TotalExpense)
	return out
}
