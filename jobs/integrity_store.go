package jobs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// PgIntegrityStore reads integrity scan inputs from PostgreSQL.
type PgIntegrityStore struct {
	pool *pgxpool.Pool
}

// NewIntegrityStore constructs the PostgreSQL integrity store.
func NewIntegrityStore(pool *pgxpool.Pool) *PgIntegrityStore {
	return &PgIntegrityStore{pool: pool}
}

// Companies lists every company owning accounts.
func (s *PgIntegrityStore) Companies(ctx context.Context) ([]int64, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("integrity store: pool not configured")
	}
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT company_id FROM accounts ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CountedVoucherLines returns the lines of every POSTED or REVERSED voucher.
func (s *PgIntegrityStore) CountedVoucherLines(ctx context.Context, companyID int64) ([]VoucherLines, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("integrity store: pool not configured")
	}
	rows, err := s.pool.Query(ctx, `SELECT v.id, v.voucher_no, v.status, l.debit, l.credit
FROM vouchers v
LEFT JOIN voucher_lines l ON l.voucher_id = v.id
WHERE v.company_id = $1 AND v.status IN ('POSTED', 'REVERSED')
ORDER BY v.id, l.id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VoucherLines
	for rows.Next() {
		var (
			id            int64
			no            string
			status        ledger.VoucherStatus
			debit, credit decimal.NullDecimal
		)
		if err := rows.Scan(&id, &no, &status, &debit, &credit); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].VoucherID != id {
			out = append(out, VoucherLines{VoucherID: id, VoucherNo: no, Status: status})
		}
		if debit.Valid || credit.Valid {
			cur := &out[len(out)-1]
			cur.Lines = append(cur.Lines, ledger.BalanceLine{Debit: debit.Decimal, Credit: credit.Decimal})
		}
	}
	return out, rows.Err()
}

// ReversalGaps lists vouchers whose reversal link disagrees with their status.
func (s *PgIntegrityStore) ReversalGaps(ctx context.Context, companyID int64) ([]ReversalGap, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("integrity store: pool not configured")
	}
	rows, err := s.pool.Query(ctx, `SELECT v.id, v.voucher_no, 'REVERSED voucher has no reversal voucher'
FROM vouchers v
WHERE v.company_id = $1 AND v.status = 'REVERSED'
  AND NOT EXISTS (SELECT 1 FROM vouchers r WHERE r.reversal_of_id = v.id)
UNION ALL
SELECT r.id, r.voucher_no, 'reversal of ' || o.voucher_no || ' but original is ' || o.status
FROM vouchers r
JOIN vouchers o ON o.id = r.reversal_of_id
WHERE r.company_id = $1 AND o.status <> 'REVERSED'
UNION ALL
SELECT r.id, r.voucher_no, 'reversal voucher belongs to a different company than ' || o.voucher_no
FROM vouchers r
JOIN vouchers o ON o.id = r.reversal_of_id
WHERE r.company_id = $1 AND o.company_id <> r.company_id
ORDER BY 1`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReversalGap
	for rows.Next() {
		var gap ReversalGap
		if err := rows.Scan(&gap.VoucherID, &gap.VoucherNo, &gap.Detail); err != nil {
			return nil, err
		}
		out = append(out, gap)
	}
	return out, rows.Err()
}

var _ IntegrityStore = (*PgIntegrityStore)(nil)
