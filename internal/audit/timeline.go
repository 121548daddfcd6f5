package audit

import (
	"encoding/json"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// HistoryFilters narrows the audit history of a company.
type HistoryFilters struct {
	CompanyID   int64
	EntityType  string
	EntityID    string
	Action      string
	ActorUserID int64
	From        time.Time
	To          time.Time
	Page        int
	PageSize    int
}

// LogEntry is one decoded audit_logs row.
type LogEntry struct {
	ID              int64                  `json:"id"`
	CompanyID       int64                  `json:"company_id"`
	ActorUserID     int64                  `json:"actor_user_id,omitempty"`
	EntityType      string                 `json:"entity_type"`
	EntityID        string                 `json:"entity_id"`
	Action          string                 `json:"action"`
	Before          map[string]any         `json:"before"`
	After           map[string]any         `json:"after"`
	Diff            map[string]Change      `json:"diff"`
	RequestMetadata shared.RequestMetadata `json:"request_metadata"`
	At              time.Time              `json:"at"`
}

// PagingInfo holds simple pagination metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"has_next"`
	PageSize int  `json:"page_size"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// LogRow is the raw row shape returned by the repository.
type LogRow struct {
	ID              int64
	CompanyID       int64
	ActorUserID     int64
	EntityType      string
	EntityID        string
	Action          string
	Before          []byte
	After           []byte
	Diff            []byte
	RequestMetadata []byte
	At              time.Time
}

func decodeRow(row LogRow) (LogEntry, error) {
	entry := LogEntry{
		ID:          row.ID,
		CompanyID:   row.CompanyID,
		ActorUserID: row.ActorUserID,
		EntityType:  row.EntityType,
		EntityID:    row.EntityID,
		Action:      row.Action,
		At:          row.At,
	}
	if len(row.Before) > 0 {
		if err := json.Unmarshal(row.Before, &entry.Before); err != nil {
			return LogEntry{}, err
		}
	}
	if len(row.After) > 0 {
		if err := json.Unmarshal(row.After, &entry.After); err != nil {
			return LogEntry{}, err
		}
	}
	if len(row.Diff) > 0 {
		if err := json.Unmarshal(row.Diff, &entry.Diff); err != nil {
			return LogEntry{}, err
		}
	}
	if len(row.RequestMetadata) > 0 {
		if err := json.Unmarshal(row.RequestMetadata, &entry.RequestMetadata); err != nil {
			return LogEntry{}, err
		}
	}
	return entry, nil
}
