package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

const uniqueViolation = "23505"

// Repository persists vouchers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a read-committed transaction. Workflow steps lock
// the voucher row with SELECT ... FOR UPDATE, so concurrent transitions of the
// same voucher serialize and the later one observes the earlier one's status.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const voucherColumns = `v.id, v.company_id, v.voucher_no, v.date, v.type, v.expense_type, v.status, v.project_id, v.narration,
       v.created_by, v.created_at, v.updated_at, v.submitted_by, v.submitted_at, v.approved_by, v.approved_at,
       v.posted_by, v.posted_at, v.reversed_by, v.reversed_at, v.reversal_of_id`

const accountColumns = `a.id, a.company_id, a.code, a.name, a.type, a.parent_id, a.sub_type, a.is_active, a.is_system,
       NOT EXISTS (SELECT 1 FROM accounts c WHERE c.parent_id = a.id) AS is_leaf`

type scanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row scanner) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.CompanyID, &v.VoucherNo, &v.Date, &v.Type, &v.ExpenseType, &v.Status, &v.ProjectID, &v.Narration,
		&v.CreatedBy, &v.CreatedAt, &v.UpdatedAt, &v.SubmittedBy, &v.SubmittedAt, &v.ApprovedBy, &v.ApprovedAt,
		&v.PostedBy, &v.PostedAt, &v.ReversedBy, &v.ReversedAt, &v.ReversalOfID)
	return v, err
}

func scanAccount(row scanner, a *Account) error {
	return row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.SubType, &a.IsActive, &a.IsSystem, &a.IsLeaf)
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, voucherID int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.id = $1 FOR UPDATE`, voucherID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrVoucherNotFound
	}
	if err != nil {
		return Voucher{}, err
	}
	if v.Lines, err = r.voucherLines(ctx, v.ID); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) GetVoucher(ctx context.Context, voucherID int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.id = $1`, voucherID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrVoucherNotFound
	}
	if err != nil {
		return Voucher{}, err
	}
	if v.Lines, err = r.voucherLines(ctx, v.ID); err != nil {
		return Voucher{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.reversal_of_id = $1 ORDER BY v.id`, v.ID)
	if err != nil {
		return Voucher{}, err
	}
	defer rows.Close()
	for rows.Next() {
		rev, err := scanVoucher(rows)
		if err != nil {
			return Voucher{}, err
		}
		v.ReversalVouchers = append(v.ReversalVouchers, rev)
	}
	return v, rows.Err()
}

func (r *txRepository) voucherLines(ctx context.Context, voucherID int64) ([]VoucherLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT l.id, l.voucher_id, l.company_id, l.account_id, l.debit, l.credit,
       l.project_id, l.vendor_id, l.payment_method_id, l.description, l.created_at, `+accountColumns+`
FROM voucher_lines l
JOIN accounts a ON a.id = l.account_id
WHERE l.voucher_id = $1
ORDER BY l.id`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []VoucherLine
	for rows.Next() {
		var (
			line VoucherLine
			acc  Account
		)
		if err := rows.Scan(&line.ID, &line.VoucherID, &line.CompanyID, &line.AccountID, &line.Debit, &line.Credit,
			&line.ProjectID, &line.VendorID, &line.PaymentMethodID, &line.Description, &line.CreatedAt,
			&acc.ID, &acc.CompanyID, &acc.Code, &acc.Name, &acc.Type, &acc.ParentID, &acc.SubType, &acc.IsActive, &acc.IsSystem, &acc.IsLeaf); err != nil {
			return nil, err
		}
		line.Account = &acc
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) FindReversalOf(ctx context.Context, originalID int64) (Voucher, bool, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.reversal_of_id = $1`, originalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, false, nil
	}
	if err != nil {
		return Voucher{}, false, err
	}
	return v, true, nil
}

func (r *txRepository) AccountsByID(ctx context.Context, companyID int64, ids []int64) (map[int64]Account, error) {
	out := make(map[int64]Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.company_id = $1 AND a.id = ANY($2)`, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *txRepository) NextVoucherNumber(ctx context.Context, companyID int64, date time.Time, voucherType VoucherType) (string, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_sequences (company_id, seq_date, last_value)
VALUES ($1, $2, 1)
ON CONFLICT (company_id, seq_date) DO UPDATE SET last_value = voucher_sequences.last_value + 1
RETURNING last_value`, companyID, date).Scan(&seq)
	if err != nil {
		return "", err
	}
	return FormatVoucherNo(voucherType, date, seq), nil
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO vouchers (company_id, voucher_no, date, type, expense_type, status, project_id, narration,
    created_by, created_at, updated_at, posted_by, posted_at, reversal_of_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id, created_at, updated_at`,
		v.CompanyID, v.VoucherNo, v.Date, v.Type, v.ExpenseType, v.Status, v.ProjectID, v.Narration,
		v.CreatedBy, v.CreatedAt, v.UpdatedAt, v.PostedBy, v.PostedAt, v.ReversalOfID).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "uq_vouchers_reversal_of" {
			return Voucher{}, ErrReversalConflict
		}
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) InsertVoucherLines(ctx context.Context, voucherID, companyID int64, lines []LineInput) error {
	for idx, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_lines (voucher_id, company_id, account_id, debit, credit, project_id, vendor_id, payment_method_id, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, voucherID, companyID, line.AccountID, line.Debit, line.Credit,
			line.ProjectID, line.VendorID, line.PaymentMethodID, line.Description); err != nil {
			return fmt.Errorf("line %d: %w", idx+1, err)
		}
	}
	return nil
}

func (r *txRepository) DeleteVoucherLines(ctx context.Context, voucherID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM voucher_lines WHERE voucher_id = $1`, voucherID)
	return err
}

func (r *txRepository) UpdateVoucherWorkflow(ctx context.Context, v Voucher) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vouchers
SET status = $2, updated_at = $3,
    submitted_by = $4, submitted_at = $5,
    approved_by = $6, approved_at = $7,
    posted_by = $8, posted_at = $9,
    reversed_by = $10, reversed_at = $11
WHERE id = $1`, v.ID, v.Status, v.UpdatedAt,
		v.SubmittedBy, v.SubmittedAt, v.ApprovedBy, v.ApprovedAt,
		v.PostedBy, v.PostedAt, v.ReversedBy, v.ReversedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

func (r *txRepository) InsertAuditLog(ctx context.Context, rec audit.Record) error {
	return audit.InsertRecord(ctx, r.tx, rec)
}

func (r *txRepository) EnqueueOutbox(ctx context.Context, msg OutboxMessage) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO status_outbox (event_id, company_id, voucher_id, channel, payload)
VALUES ($1::uuid, $2, $3, $4, $5)
ON CONFLICT (event_id) DO NOTHING`, msg.EventID, msg.CompanyID, msg.VoucherID, msg.Channel, msg.Payload)
	return err
}

func (r *txRepository) MirrorLinkedStatus(ctx context.Context, voucherID int64, status VoucherStatus) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE linked_records SET voucher_status = $2, updated_at = NOW() WHERE voucher_id = $1`, voucherID, status)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
