package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// bookConcurrency bounds the account ledgers loaded in parallel for a book.
const bookConcurrency = 4

// Service assembles statements from qualifying voucher lines. It is
// stateless; every call re-aggregates from the repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the statement service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// AccountLedger returns the activity of one account with opening, running
// and closing balances.
func (s *Service) AccountLedger(ctx context.Context, q LedgerQuery) (AccountLedger, error) {
	if err := checkPeriod(q.CompanyID, q.From, q.To); err != nil {
		return AccountLedger{}, err
	}
	if q.AccountID <= 0 {
		return AccountLedger{}, fmt.Errorf("%w: account id required", ErrInvalidQuery)
	}
	var (
		account    ledger.Account
		openDebit  decimal.Decimal
		openCredit decimal.Decimal
		lines      []LedgerLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = s.repo.Account(gctx, q.CompanyID, q.AccountID)
		return err
	})
	if !q.From.IsZero() {
		g.Go(func() error {
			var err error
			openDebit, openCredit, err = s.repo.OpeningTotals(gctx, q.CompanyID, q.AccountID, q.From)
			return err
		})
	}
	g.Go(func() error {
		var err error
		lines, err = s.repo.LedgerLines(gctx, q.CompanyID, q.AccountID, bound(q.From), bound(q.To))
		return err
	})
	if err := g.Wait(); err != nil {
		return AccountLedger{}, err
	}
	opening := account.Type.Impact(openDebit, openCredit)
	return BuildAccountLedger(account, q.From, q.To, opening, lines), nil
}

// TrialBalance returns raw debit and credit totals per account for the period.
func (s *Service) TrialBalance(ctx context.Context, q Query) (TrialBalance, error) {
	if err := checkPeriod(q.CompanyID, q.From, q.To); err != nil {
		return TrialBalance{}, err
	}
	balances, err := s.repo.AccountBalances(ctx, BalanceFilter{CompanyID: q.CompanyID, From: bound(q.From), To: bound(q.To)})
	if err != nil {
		return TrialBalance{}, fmt.Errorf("reports: trial balance: %w", err)
	}
	tb := BuildTrialBalance(balances)
	if !tb.Balanced {
		s.logger.WarnContext(ctx, "trial balance out of balance",
			slog.Int64("company_id", q.CompanyID),
			slog.String("difference", tb.Difference.StringFixed(2)))
	}
	return tb, nil
}

// BalanceSheet returns asset, liability and equity balances as of a date.
func (s *Service) BalanceSheet(ctx context.Context, q AsOfQuery) (BalanceSheet, error) {
	if err := checkPeriod(q.CompanyID, time.Time{}, q.AsOf); err != nil {
		return BalanceSheet{}, err
	}
	balances, err := s.repo.AccountBalances(ctx, BalanceFilter{CompanyID: q.CompanyID, To: bound(q.AsOf)})
	if err != nil {
		return BalanceSheet{}, fmt.Errorf("reports: balance sheet: %w", err)
	}
	return BuildBalanceSheet(balances), nil
}

// ProfitAndLoss returns income, expense and net profit, optionally for one project.
func (s *Service) ProfitAndLoss(ctx context.Context, q Query) (ProfitAndLoss, error) {
	if err := checkPeriod(q.CompanyID, q.From, q.To); err != nil {
		return ProfitAndLoss{}, err
	}
	balances, err := s.repo.AccountBalances(ctx, BalanceFilter{CompanyID: q.CompanyID, From: bound(q.From), To: bound(q.To), ProjectID: q.ProjectID})
	if err != nil {
		return ProfitAndLoss{}, fmt.Errorf("reports: profit and loss: %w", err)
	}
	return BuildProfitAndLoss(balances), nil
}

// ProjectProfitability returns income, expense, profit and margin per project.
func (s *Service) ProjectProfitability(ctx context.Context, q Query) (ProjectProfitability, error) {
	if err := checkPeriod(q.CompanyID, q.From, q.To); err != nil {
		return ProjectProfitability{}, err
	}
	amounts, err := s.repo.ProjectAmounts(ctx, q.CompanyID, bound(q.From), bound(q.To))
	if err != nil {
		return ProjectProfitability{}, fmt.Errorf("reports: project profitability: %w", err)
	}
	return BuildProjectProfitability(amounts), nil
}

// CashBook returns the ledgers of every active cash or bank leaf account.
func (s *Service) CashBook(ctx context.Context, q BookQuery) (CashBook, error) {
	if err := checkPeriod(q.CompanyID, q.From, q.To); err != nil {
		return CashBook{}, err
	}
	kind, ok := ParseBookKind(string(q.Kind))
	if !ok {
		return CashBook{}, fmt.Errorf("%w: unknown book %q", ErrInvalidQuery, q.Kind)
	}
	accounts, err := s.repo.BookAccounts(ctx, q.CompanyID, kind)
	if err != nil {
		return CashBook{}, fmt.Errorf("reports: %s book accounts: %w", kind, err)
	}
	ledgers := make([]AccountLedger, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bookConcurrency)
	for i, account := range accounts {
		g.Go(func() error {
			l, err := s.AccountLedger(gctx, LedgerQuery{CompanyID: q.CompanyID, AccountID: account.ID, From: q.From, To: q.To})
			if err != nil {
				return fmt.Errorf("reports: ledger of account %s: %w", account.Code, err)
			}
			ledgers[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CashBook{}, err
	}
	return BuildCashBook(kind, ledgers), nil
}

func checkPeriod(companyID int64, from, to time.Time) error {
	if companyID <= 0 {
		return fmt.Errorf("%w: company id required", ErrInvalidQuery)
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return fmt.Errorf("%w: period start %s is after end %s", ErrInvalidQuery, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return nil
}

func bound(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
