package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// DefaultRelationKeys are stripped from snapshots so an entry only documents
// the entity itself, never the related rows embedded in it.
var DefaultRelationKeys = []string{"account", "reversal_vouchers", "reversal_of"}

// Record is one row of audit_logs.
type Record struct {
	CompanyID       int64
	ActorUserID     int64
	EntityType      string
	EntityID        string
	Action          string
	Before          json.RawMessage
	After           json.RawMessage
	Diff            json.RawMessage
	RequestMetadata json.RawMessage
	At              time.Time
}

// Writer persists audit rows. Implementations write through the transaction
// of the mutation being documented.
type Writer interface {
	InsertAuditLog(ctx context.Context, rec Record) error
}

// Entry describes a mutation to document.
type Entry struct {
	CompanyID   int64
	ActorUserID int64
	EntityType  string
	EntityID    int64
	Action      string
	Before      any
	After       any
}

// Change is the before/after value of one field.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Recorder snapshots entities, diffs them and writes the audit row.
type Recorder struct {
	strip map[string]struct{}
	now   func() time.Time
}

// NewRecorder builds a Recorder stripping the given relation keys, or
// DefaultRelationKeys when none are supplied.
func NewRecorder(relationKeys ...string) *Recorder {
	if len(relationKeys) == 0 {
		relationKeys = DefaultRelationKeys
	}
	strip := make(map[string]struct{}, len(relationKeys))
	for _, key := range relationKeys {
		strip[key] = struct{}{}
	}
	return &Recorder{strip: strip, now: time.Now}
}

// WithNow overrides the clock for testing.
func (r *Recorder) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Record snapshots before/after, computes the diff and writes the row through w.
// Any failure must abort the caller's transaction.
func (r *Recorder) Record(ctx context.Context, w Writer, e Entry) error {
	if r == nil {
		return errors.New("audit: recorder not initialised")
	}
	if w == nil {
		return errors.New("audit: writer required")
	}
	if e.EntityType == "" || e.Action == "" || e.EntityID == 0 {
		return errors.New("audit: entry requires entity type, entity id and action")
	}
	before, err := Snapshot(e.Before, r.strip)
	if err != nil {
		return fmt.Errorf("audit: snapshot before: %w", err)
	}
	after, err := Snapshot(e.After, r.strip)
	if err != nil {
		return fmt.Errorf("audit: snapshot after: %w", err)
	}
	rec := Record{
		CompanyID:   e.CompanyID,
		ActorUserID: e.ActorUserID,
		EntityType:  e.EntityType,
		EntityID:    fmt.Sprintf("%d", e.EntityID),
		Action:      e.Action,
		At:          r.now(),
	}
	if rec.Before, err = marshalNullable(before); err != nil {
		return err
	}
	if rec.After, err = marshalNullable(after); err != nil {
		return err
	}
	if rec.Diff, err = json.Marshal(Diff(before, after)); err != nil {
		return fmt.Errorf("audit: marshal diff: %w", err)
	}
	meta, _ := shared.RequestMetadataFromContext(ctx)
	if rec.RequestMetadata, err = json.Marshal(meta); err != nil {
		return fmt.Errorf("audit: marshal metadata: %w", err)
	}
	return w.InsertAuditLog(ctx, rec)
}

// Snapshot returns a deep copy of v as a JSON object with the relation keys
// removed at every depth. A nil value yields a nil snapshot.
func Snapshot(v any, strip map[string]struct{}) (map[string]any, error) {
	if isNil(v) {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		obj = map[string]any{"value": decoded}
	}
	stripRelations(obj, strip)
	return obj, nil
}

func stripRelations(node any, strip map[string]struct{}) {
	switch val := node.(type) {
	case map[string]any:
		for key, child := range val {
			if _, drop := strip[key]; drop {
				delete(val, key)
				continue
			}
			stripRelations(child, strip)
		}
	case []any:
		for _, child := range val {
			stripRelations(child, strip)
		}
	}
}

// Diff compares two snapshots field by field. Nested values are compared as a
// whole, so a changed line list is reported once under "lines".
func Diff(before, after map[string]any) map[string]Change {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	out := make(map[string]Change)
	for k := range keys {
		from, to := before[k], after[k]
		if reflect.DeepEqual(from, to) {
			continue
		}
		out[k] = Change{From: from, To: to}
	}
	return out
}

func marshalNullable(snapshot map[string]any) (json.RawMessage, error) {
	if snapshot == nil {
		return nil, nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal snapshot: %w", err)
	}
	return raw, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
