package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// BalanceFilter narrows AccountBalances. Nil bounds are open.
type BalanceFilter struct {
	CompanyID int64
	From      *time.Time
	To        *time.Time
	ProjectID *int64
}

// Repository reads qualifying voucher lines for statements.
type Repository interface {
	Account(ctx context.Context, companyID, accountID int64) (ledger.Account, error)
	OpeningTotals(ctx context.Context, companyID, accountID int64, before time.Time) (debit, credit decimal.Decimal, err error)
	LedgerLines(ctx context.Context, companyID, accountID int64, from, to *time.Time) ([]LedgerLine, error)
	AccountBalances(ctx context.Context, filter BalanceFilter) ([]AccountBalance, error)
	ProjectAmounts(ctx context.Context, companyID int64, from, to *time.Time) ([]ProjectAmount, error)
	BookAccounts(ctx context.Context, companyID int64, kind BookKind) ([]ledger.Account, error)
}

// qualifying restricts statement queries to counted voucher statuses.
var qualifying = statusClause(ledger.CountedStatuses())

func statusClause(statuses []ledger.VoucherStatus) string {
	quoted := make([]string, 0, len(statuses))
	for _, st := range statuses {
		quoted = append(quoted, "'"+string(st)+"'")
	}
	return "v.status IN (" + strings.Join(quoted, ", ") + ")"
}

const accountColumns = `a.id, a.company_id, a.code, a.name, a.type, a.parent_id, a.sub_type, a.is_active, a.is_system,
       NOT EXISTS (SELECT 1 FROM accounts c WHERE c.parent_id = a.id) AS is_leaf`

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the statement repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.SubType, &a.IsActive, &a.IsSystem, &a.IsLeaf)
	return a, err
}

func (r *PgRepository) Account(ctx context.Context, companyID, accountID int64) (ledger.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.company_id = $1 AND a.id = $2`, companyID, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *PgRepository) OpeningTotals(ctx context.Context, companyID, accountID int64, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM voucher_lines l
JOIN vouchers v ON v.id = l.voucher_id
WHERE v.company_id = $1 AND l.account_id = $2 AND `+qualifying+` AND v.date < $3`, companyID, accountID, before).Scan(&debit, &credit)
	return debit, credit, err
}

func (r *PgRepository) LedgerLines(ctx context.Context, companyID, accountID int64, from, to *time.Time) ([]LedgerLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT v.id, v.voucher_no, v.date, v.type, v.status, v.narration,
       l.id, l.created_at, l.debit, l.credit, l.description, COALESCE(l.project_id, v.project_id)
FROM voucher_lines l
JOIN vouchers v ON v.id = l.voucher_id
WHERE v.company_id = $1 AND l.account_id = $2 AND `+qualifying+`
  AND ($3::date IS NULL OR v.date >= $3)
  AND ($4::date IS NULL OR v.date <= $4)
ORDER BY v.date, substring(v.voucher_no FROM '([0-9]+)$')::bigint, v.voucher_no, l.created_at, l.id`, companyID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerLine
	for rows.Next() {
		var line LedgerLine
		if err := rows.Scan(&line.VoucherID, &line.VoucherNo, &line.VoucherDate, &line.VoucherType, &line.VoucherStatus, &line.Narration,
			&line.LineID, &line.LineCreatedAt, &line.Debit, &line.Credit, &line.Description, &line.ProjectID); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *PgRepository) AccountBalances(ctx context.Context, filter BalanceFilter) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.type, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM voucher_lines l
JOIN vouchers v ON v.id = l.voucher_id
JOIN accounts a ON a.id = l.account_id
WHERE v.company_id = $1 AND `+qualifying+`
  AND ($2::date IS NULL OR v.date >= $2)
  AND ($3::date IS NULL OR v.date <= $3)
  AND ($4::bigint IS NULL OR COALESCE(l.project_id, v.project_id) = $4)
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code`, filter.CompanyID, filter.From, filter.To, filter.ProjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var bal AccountBalance
		if err := rows.Scan(&bal.AccountID, &bal.Code, &bal.Name, &bal.Type, &bal.Debit, &bal.Credit); err != nil {
			return nil, err
		}
		out = append(out, bal)
	}
	return out, rows.Err()
}

func (r *PgRepository) ProjectAmounts(ctx context.Context, companyID int64, from, to *time.Time) ([]ProjectAmount, error) {
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(l.project_id, v.project_id) AS project_id, a.type, SUM(l.debit), SUM(l.credit)
FROM voucher_lines l
JOIN vouchers v ON v.id = l.voucher_id
JOIN accounts a ON a.id = l.account_id
WHERE v.company_id = $1 AND `+qualifying+`
  AND a.type IN ('INCOME', 'EXPENSE')
  AND COALESCE(l.project_id, v.project_id) IS NOT NULL
  AND ($2::date IS NULL OR v.date >= $2)
  AND ($3::date IS NULL OR v.date <= $3)
GROUP BY 1, 2
ORDER BY 1, 2`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProjectAmount
	for rows.Next() {
		var amt ProjectAmount
		if err := rows.Scan(&amt.ProjectID, &amt.Type, &amt.Debit, &amt.Credit); err != nil {
			return nil, err
		}
		out = append(out, amt)
	}
	return out, rows.Err()
}

func (r *PgRepository) BookAccounts(ctx context.Context, companyID int64, kind BookKind) ([]ledger.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+`
FROM accounts a
WHERE a.company_id = $1 AND a.type = 'ASSET' AND a.sub_type = $2 AND a.is_active
  AND NOT EXISTS (SELECT 1 FROM accounts c WHERE c.parent_id = a.id)
ORDER BY a.code`, companyID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ Repository = (*PgRepository)(nil)
