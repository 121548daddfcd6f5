package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is a queued status notification awaiting delivery.
type OutboxEntry struct {
	ID       int64
	EventID  uuid.UUID
	Channel  string
	Payload  []byte
	Attempts int
}

// OutboxStore claims queued notifications and records their delivery.
// ClaimPending leases the returned entries until now+lease and counts the
// attempt, so concurrent relays never publish the same entry twice at once.
type OutboxStore interface {
	ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string, retryAt time.Time) error
}

// RelayConfig tunes outbox delivery. Zero fields take the defaults.
type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Lease        time.Duration
	Backoff      time.Duration
	MaxBackoff   time.Duration
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Lease <= 0 {
		c.Lease = 30 * time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = 5 * time.Second
	}
	if c.MaxBackoff < c.Backoff {
		c.MaxBackoff = 5 * time.Minute
	}
	return c
}

// Relay publishes committed status notifications from the outbox to Redis.
// Delivery is at least once; consumers drop repeats by event_id.
type Relay struct {
	store     OutboxStore
	publisher Publisher
	cfg       RelayConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewRelay constructs an outbox relay.
func NewRelay(store OutboxStore, publisher Publisher, cfg RelayConfig, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{store: store, publisher: publisher, cfg: cfg.withDefaults(), logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (r *Relay) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Flush delivers one batch and reports how many entries were published.
// A failed publish schedules a retry and does not stop the batch.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	if r == nil || r.store == nil || r.publisher == nil {
		return 0, errors.New("integration: relay requires a store and a publisher")
	}
	now := r.now()
	entries, err := r.store.ClaimPending(ctx, r.cfg.BatchSize, now, r.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("integration: claim outbox: %w", err)
	}
	published := 0
	for _, entry := range entries {
		if err := r.publisher.Publish(ctx, entry.Channel, entry.Payload).Err(); err != nil {
			retryAt := now.Add(r.backoff(entry.Attempts))
			r.logger.WarnContext(ctx, "status event publish failed",
				slog.Int64("outbox_id", entry.ID),
				slog.String("event_id", entry.EventID.String()),
				slog.Int("attempts", entry.Attempts),
				slog.Time("retry_at", retryAt),
				slog.Any("error", err))
			if merr := r.store.MarkFailed(ctx, entry.ID, err.Error(), retryAt); merr != nil {
				return published, fmt.Errorf("integration: mark outbox %d failed: %w", entry.ID, merr)
			}
			continue
		}
		if err := r.store.MarkPublished(ctx, entry.ID, r.now()); err != nil {
			return published, fmt.Errorf("integration: mark outbox %d published: %w", entry.ID, err)
		}
		published++
	}
	if published > 0 {
		r.logger.DebugContext(ctx, "status events published", slog.Int("count", published))
	}
	return published, nil
}

// backoff doubles the base delay per previous attempt, capped at MaxBackoff.
func (r *Relay) backoff(attempts int) time.Duration {
	delay := r.cfg.Backoff
	for i := 1; i < attempts && delay < r.cfg.MaxBackoff; i++ {
		delay *= 2
	}
	if delay > r.cfg.MaxBackoff {
		delay = r.cfg.MaxBackoff
	}
	return delay
}

// Run flushes the outbox every poll interval until ctx is done. A full batch
// is followed by another flush without waiting.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		n, err := r.Flush(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.ErrorContext(ctx, "outbox flush", slog.Any("error", err))
		}
		if err == nil && n == r.cfg.BatchSize && ctx.Err() == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
