package integration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgOutboxStore implements OutboxStore on the status_outbox table.
type PgOutboxStore struct {
	pool *pgxpool.Pool
}

// NewOutboxStore constructs the PostgreSQL outbox store.
func NewOutboxStore(pool *pgxpool.Pool) *PgOutboxStore {
	return &PgOutboxStore{pool: pool}
}

func (s *PgOutboxStore) ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]OutboxEntry, error) {
	rows, err := s.pool.Query(ctx, `UPDATE status_outbox o
SET attempts = o.attempts + 1, next_attempt_at = $2
WHERE o.id IN (
    SELECT id FROM status_outbox
    WHERE published_at IS NULL AND next_attempt_at <= $1
    ORDER BY id
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING o.id, o.event_id::text, o.channel, o.payload, o.attempts`, now, now.Add(lease), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OutboxEntry
	for rows.Next() {
		var (
			entry   OutboxEntry
			eventID string
		)
		if err := rows.Scan(&entry.ID, &eventID, &entry.Channel, &entry.Payload, &entry.Attempts); err != nil {
			return nil, err
		}
		if entry.EventID, err = uuid.Parse(eventID); err != nil {
			return nil, fmt.Errorf("integration: outbox %d event id: %w", entry.ID, err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *PgOutboxStore) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE status_outbox SET published_at = $2, last_error = NULL WHERE id = $1`, id, at)
	return err
}

func (s *PgOutboxStore) MarkFailed(ctx context.Context, id int64, reason string, retryAt time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE status_outbox SET last_error = $2, next_attempt_at = $3 WHERE id = $1`, id, reason, retryAt)
	return err
}

var _ OutboxStore = (*PgOutboxStore)(nil)
