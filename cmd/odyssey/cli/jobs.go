package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// QueueClient is the queue surface used by the jobs command.
type QueueClient interface {
	IntegrityEnqueuer
	InspectQueue(ctx context.Context) (jobs.QueueStats, error)
	ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error)
}

// AsynqQueue talks to the Asynq queue in Redis.
type AsynqQueue struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewAsynqQueue connects a client and an inspector to redisAddr.
func NewAsynqQueue(redisAddr string) *AsynqQueue {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &AsynqQueue{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases both connections.
func (q *AsynqQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}

// EnqueueIntegrity implements IntegrityEnqueuer.
func (q *AsynqQueue) EnqueueIntegrity(ctx context.Context, payload jobs.IntegrityPayload) (*asynq.TaskInfo, error) {
	return q.client.EnqueueIntegrity(ctx, payload)
}

// InspectQueue reports the default queue counters.
func (q *AsynqQueue) InspectQueue(ctx context.Context) (jobs.QueueStats, error) {
	return jobs.InspectQueue(q.inspector)
}

// ListScheduled returns the first size scheduled tasks.
func (q *AsynqQueue) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	return q.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// JobsOptions defines the flags of the jobs command.
type JobsOptions struct {
	Action     string
	Task       string
	CompanyID  int64
	Limit      int
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

type scheduledTask struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	NextProcessAt time.Time `json:"next_process_at"`
}

// JobsCommand runs one of stats, scheduled or trigger against the queue.
func JobsCommand(ctx context.Context, queue QueueClient, opts JobsOptions) int {
	stdout, stderr := outputs(opts.Stdout, opts.Stderr)
	if queue == nil {
		_, _ = fmt.Fprintln(stderr, "jobs: queue client not configured")
		return 1
	}
	switch opts.Action {
	case "stats":
		stats, err := queue.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			return encodeJSON(stdout, stderr, "jobs", stats)
		}
		_, _ = fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
	case "scheduled":
		limit := opts.Limit
		if limit <= 0 {
			limit = 20
		}
		infos, err := queue.ListScheduled(ctx, limit)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs: %v\n", err)
			return 1
		}
		tasks := make([]scheduledTask, 0, len(infos))
		for _, info := range infos {
			tasks = append(tasks, scheduledTask{ID: info.ID, Type: info.Type, NextProcessAt: info.NextProcessAt})
		}
		if opts.JSONOutput {
			return encodeJSON(stdout, stderr, "jobs", tasks)
		}
		if len(tasks) == 0 {
			_, _ = fmt.Fprintln(stdout, "no scheduled tasks")
		}
		for _, task := range tasks {
			_, _ = fmt.Fprintf(stdout, "%s %s at %s\n", task.ID, task.Type, task.NextProcessAt.Format(time.RFC3339))
		}
	case "trigger":
		if opts.Task != jobs.TaskLedgerIntegrity {
			_, _ = fmt.Fprintf(stderr, "jobs: unsupported task %q (supported: %s)\n", opts.Task, jobs.TaskLedgerIntegrity)
			return 2
		}
		if opts.CompanyID < 0 {
			_, _ = fmt.Fprintln(stderr, "jobs: --company must not be negative")
			return 2
		}
		info, err := queue.EnqueueIntegrity(ctx, jobs.IntegrityPayload{CompanyID: opts.CompanyID})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs: enqueue: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s as %s\n", opts.Task, info.ID)
	default:
		_, _ = fmt.Fprintf(stderr, "jobs: unknown action %q (expected stats, scheduled or trigger)\n", opts.Action)
		return 2
	}
	return 0
}

func encodeJSON(stdout, stderr io.Writer, command string, v any) int {
	if err := json.NewEncoder(stdout).Encode(v); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: encode json: %v\n", command, err)
		return 1
	}
	return 0
}

var _ QueueClient = (*AsynqQueue)(nil)
