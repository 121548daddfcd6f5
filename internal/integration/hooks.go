package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

// DefaultChannel is the Redis channel carrying voucher status notifications.
const DefaultChannel = "ledger.voucher.status"

// Publisher is the subset of the Redis client used for notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// StatusEvent is the notification published after a voucher status change commits.
type StatusEvent struct {
	EventID       uuid.UUID            `json:"event_id"`
	VoucherID     int64                `json:"voucher_id"`
	CompanyID     int64                `json:"company_id"`
	VoucherNo     string               `json:"voucher_no"`
	From          ledger.VoucherStatus `json:"from"`
	To            ledger.VoucherStatus `json:"to"`
	ActorID       int64                `json:"actor_id"`
	At            time.Time            `json:"at"`
	LinkedRecords int64                `json:"linked_records"`
}

// Hooks keeps records owned by other modules, such as purchases, in step with
// the status of the voucher they reference.
type Hooks struct {
	channel string
	logger  *slog.Logger
}

// NewHooks constructs integration hooks queuing notifications on channel.
func NewHooks(channel string, logger *slog.Logger) *Hooks {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{channel: channel, logger: logger}
}

// OnStatusChanged mirrors the new status into linked records and queues the
// notification, both through the workflow transaction. A Relay publishes the
// notification after commit. Either failure aborts the transition.
func (h *Hooks) OnStatusChanged(ctx context.Context, w ledger.SyncWriter, change ledger.StatusChange) error {
	if h == nil {
		return nil
	}
	if w == nil {
		return errors.New("integration: linked record writer required")
	}
	affected, err := w.MirrorLinkedStatus(ctx, change.VoucherID, change.To)
	if err != nil {
		return fmt.Errorf("integration: mirror voucher %d status: %w", change.VoucherID, err)
	}
	event := NewStatusEvent(change, affected)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("integration: encode status event: %w", err)
	}
	err = w.EnqueueOutbox(ctx, ledger.OutboxMessage{
		EventID:   event.EventID.String(),
		CompanyID: change.CompanyID,
		VoucherID: change.VoucherID,
		Channel:   h.channel,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("integration: queue status event: %w", err)
	}
	h.logger.DebugContext(ctx, "voucher status queued",
		slog.Int64("voucher_id", change.VoucherID),
		slog.String("to", string(change.To)),
		slog.Int64("linked_records", affected))
	return nil
}

// NewStatusEvent builds the notification for change. The event ID is derived
// from the voucher and transition so consumers can drop redeliveries.
func NewStatusEvent(change ledger.StatusChange, linked int64) StatusEvent {
	key := fmt.Sprintf("VOUCHER:%d:%s:%s:%d", change.VoucherID, change.From, change.To, change.At.UnixNano())
	return StatusEvent{
		EventID:       uuid.NewSHA1(uuid.Nil, []byte(key)),
		VoucherID:     change.VoucherID,
		CompanyID:     change.CompanyID,
		VoucherNo:     change.VoucherNo,
		From:          change.From,
		To:            change.To,
		ActorID:       change.ActorID,
		At:            change.At,
		LinkedRecords: linked,
	}
}

var _ ledger.LinkedRecordSync = (*Hooks)(nil)
