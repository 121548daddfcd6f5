package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

type stubWriter struct {
	calls    []ledger.VoucherStatus
	queued   []ledger.OutboxMessage
	affected int64
	err      error
	queueErr error
}

func (w *stubWriter) MirrorLinkedStatus(ctx context.Context, voucherID int64, status ledger.VoucherStatus) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.calls = append(w.calls, status)
	return w.affected, nil
}

func (w *stubWriter) EnqueueOutbox(ctx context.Context, msg ledger.OutboxMessage) error {
	if w.queueErr != nil {
		return w.queueErr
	}
	w.queued = append(w.queued, msg)
	return nil
}

func sampleChange() ledger.StatusChange {
	return ledger.StatusChange{
		VoucherID: 42,
		CompanyID: 1,
		VoucherNo: "PU-20240315-0003",
		From:      ledger.StatusApproved,
		To:        ledger.StatusPosted,
		ActorID:   7,
		At:        time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestOnStatusChangedMirrorsAndQueues(t *testing.T) {
	hooks := NewHooks("", nil)
	writer := &stubWriter{affected: 2}
	require.NoError(t, hooks.OnStatusChanged(context.Background(), writer, sampleChange()))
	assert.Equal(t, []ledger.VoucherStatus{ledger.StatusPosted}, writer.calls)

	require.Len(t, writer.queued, 1)
	msg := writer.queued[0]
	assert.Equal(t, DefaultChannel, msg.Channel)
	assert.Equal(t, int64(42), msg.VoucherID)
	assert.Equal(t, int64(1), msg.CompanyID)
	assert.Equal(t, NewStatusEvent(sampleChange(), 2).EventID.String(), msg.EventID)

	var evt StatusEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &evt))
	assert.Equal(t, ledger.StatusPosted, evt.To)
	assert.Equal(t, int64(2), evt.LinkedRecords)
}

func TestOnStatusChangedCustomChannel(t *testing.T) {
	writer := &stubWriter{}
	require.NoError(t, NewHooks("erp.voucher", nil).OnStatusChanged(context.Background(), writer, sampleChange()))
	require.Len(t, writer.queued, 1)
	assert.Equal(t, "erp.voucher", writer.queued[0].Channel)
}

func TestOnStatusChangedWriterFailure(t *testing.T) {
	hooks := NewHooks("", nil)
	boom := errors.New("linked_records locked")
	writer := &stubWriter{err: boom}
	err := hooks.OnStatusChanged(context.Background(), writer, sampleChange())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, writer.queued)
}

func TestOnStatusChangedQueueFailure(t *testing.T) {
	boom := errors.New("outbox insert failed")
	writer := &stubWriter{queueErr: boom}
	err := NewHooks("", nil).OnStatusChanged(context.Background(), writer, sampleChange())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "queue status event")
}

func TestStatusEventIDIsDeterministic(t *testing.T) {
	a := NewStatusEvent(sampleChange(), 0)
	b := NewStatusEvent(sampleChange(), 5)
	assert.Equal(t, a.EventID, b.EventID)

	other := sampleChange()
	other.To = ledger.StatusReversed
	assert.NotEqual(t, a.EventID, NewStatusEvent(other, 0).EventID)
}
