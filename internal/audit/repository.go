package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is satisfied by pgx.Tx and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// InsertRecord writes rec into audit_logs using q, typically the transaction
// of the mutation being documented.
func InsertRecord(ctx context.Context, q Execer, rec Record) error {
	if q == nil {
		return errors.New("audit: executor required")
	}
	_, err := q.Exec(ctx, `INSERT INTO audit_logs (company_id, actor_user_id, entity_type, entity_id, action, before, after, diff, request_metadata, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10, NOW()))`,
		rec.CompanyID, nullActor(rec.ActorUserID), rec.EntityType, rec.EntityID, rec.Action,
		nullJSON(rec.Before), nullJSON(rec.After), nullJSON(rec.Diff), nullJSON(rec.RequestMetadata), nullTime(rec.At))
	return err
}

// PgRepository reads audit_logs from PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL audit reader.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// ListAuditLogs returns audit rows matching arg, newest first.
func (r *PgRepository) ListAuditLogs(ctx context.Context, arg ListParams) ([]LogRow, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("audit repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, COALESCE(actor_user_id, 0), entity_type, entity_id, action,
       before, after, diff, request_metadata, occurred_at
FROM audit_logs
WHERE company_id = $1
  AND ($2 = '' OR entity_type = $2)
  AND ($3 = '' OR entity_id = $3)
  AND ($4 = '' OR action = $4)
  AND ($5 = 0 OR actor_user_id = $5)
  AND ($6::timestamptz IS NULL OR occurred_at >= $6)
  AND ($7::timestamptz IS NULL OR occurred_at <= $7)
ORDER BY occurred_at DESC, id DESC
OFFSET $8 LIMIT $9`,
		arg.CompanyID, arg.EntityType, arg.EntityID, arg.Action, arg.ActorUserID, arg.From, arg.To, arg.OffsetRows, arg.LimitRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogRow
	for rows.Next() {
		var row LogRow
		if err := rows.Scan(&row.ID, &row.CompanyID, &row.ActorUserID, &row.EntityType, &row.EntityID, &row.Action,
			&row.Before, &row.After, &row.Diff, &row.RequestMetadata, &row.At); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullActor(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
