package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the ledger integrity scan.
	TaskLedgerIntegrity = "ledger:integrity"
)

// IntegrityPayload scopes an integrity scan. A zero CompanyID scans every
// company that has accounts.
type IntegrityPayload struct {
	CompanyID int64 `json:"company_id,omitempty"`
}

// NewIntegrityTask constructs an Asynq task for the integrity scan.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data, asynq.Queue(QueueDefault)), nil
}
