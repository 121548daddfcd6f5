package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/reports"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// ExitFindings is returned when a command completes but reports problems.
const ExitFindings = 10

// TrialBalancer builds trial balances.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, q reports.Query) (reports.TrialBalance, error)
}

// IntegrityRunner runs the integrity scan inline.
type IntegrityRunner interface {
	Run(ctx context.Context, payload jobs.IntegrityPayload) (jobs.IntegrityReport, error)
}

// IntegrityEnqueuer hands the integrity scan to the worker.
type IntegrityEnqueuer interface {
	EnqueueIntegrity(ctx context.Context, payload jobs.IntegrityPayload) (*asynq.TaskInfo, error)
}

// LedgerOpsCLI offers operational commands over the ledger.
type LedgerOpsCLI struct {
	balancer TrialBalancer
	runner   IntegrityRunner
	enqueuer IntegrityEnqueuer
}

// NewLedgerOpsCLI constructs the ledger commands. Any dependency may be nil
// when the command using it is not needed.
func NewLedgerOpsCLI(balancer TrialBalancer, runner IntegrityRunner, enqueuer IntegrityEnqueuer) *LedgerOpsCLI {
	return &LedgerOpsCLI{balancer: balancer, runner: runner, enqueuer: enqueuer}
}

// TrialBalanceOptions defines the flags of the trial-balance command.
type TrialBalanceOptions struct {
	CompanyID  int64
	From       string
	To         string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// TrialBalanceCommand prints the trial balance of a company. It exits with
// ExitFindings when the trial balance does not balance.
func (c *LedgerOpsCLI) TrialBalanceCommand(ctx context.Context, opts TrialBalanceOptions) int {
	stdout, stderr := outputs(opts.Stdout, opts.Stderr)
	if c == nil || c.balancer == nil {
		_, _ = fmt.Fprintln(stderr, "trial-balance: statements not configured")
		return 1
	}
	if opts.CompanyID <= 0 {
		_, _ = fmt.Fprintln(stderr, "trial-balance: --company is required and must be positive")
		return 1
	}
	from, err := parseDate(opts.From)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "trial-balance: invalid --from %q (expected YYYY-MM-DD)\n", opts.From)
		return 1
	}
	to, err := parseDate(opts.To)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "trial-balance: invalid --to %q (expected YYYY-MM-DD)\n", opts.To)
		return 1
	}
	tb, err := c.balancer.TrialBalance(ctx, reports.Query{CompanyID: opts.CompanyID, From: from, To: to})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "trial-balance: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(stdout).Encode(tb); err != nil {
			_, _ = fmt.Fprintf(stderr, "trial-balance: encode json: %v\n", err)
			return 1
		}
	} else {
		renderTrialBalanceHuman(stdout, opts.CompanyID, tb)
	}
	if !tb.Balanced {
		return ExitFindings
	}
	return 0
}

func renderTrialBalanceHuman(out io.Writer, companyID int64, tb reports.TrialBalance) {
	_, _ = fmt.Fprintf(out, "Trial balance for company %d\n", companyID)
	for _, group := range tb.Groups {
		_, _ = fmt.Fprintf(out, "[%s]\n", group.Key)
		for _, acc := range group.Accounts {
			_, _ = fmt.Fprintf(out, "  %-10s %-30s %15s %15s\n", acc.Code, acc.Name, acc.Debit.StringFixed(2), acc.Credit.StringFixed(2))
		}
	}
	_, _ = fmt.Fprintf(out, "  %-10s %-30s %15s %15s\n", "", "Total", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))
	if tb.Balanced {
		_, _ = fmt.Fprintln(out, "Balanced.")
		return
	}
	for _, warning := range tb.Warnings {
		_, _ = fmt.Fprintf(out, "WARNING: %s\n", warning)
	}
}

// IntegrityOptions defines the flags of the integrity command.
type IntegrityOptions struct {
	CompanyID  int64
	Enqueue    bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// IntegrityCommand runs the integrity scan inline, or enqueues it for the
// worker. An inline scan with findings exits with ExitFindings.
func (c *LedgerOpsCLI) IntegrityCommand(ctx context.Context, opts IntegrityOptions) int {
	stdout, stderr := outputs(opts.Stdout, opts.Stderr)
	if opts.CompanyID < 0 {
		_, _ = fmt.Fprintln(stderr, "integrity: --company must not be negative")
		return 1
	}
	payload := jobs.IntegrityPayload{CompanyID: opts.CompanyID}
	if opts.Enqueue {
		if c == nil || c.enqueuer == nil {
			_, _ = fmt.Fprintln(stderr, "integrity: queue client not configured")
			return 1
		}
		info, err := c.enqueuer.EnqueueIntegrity(ctx, payload)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "integrity: enqueue: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s as %s on queue %s\n", jobs.TaskLedgerIntegrity, info.ID, info.Queue)
		return 0
	}
	if c == nil || c.runner == nil {
		_, _ = fmt.Fprintln(stderr, "integrity: scan not configured")
		return 1
	}
	report, err := c.runner.Run(ctx, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "integrity: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(stdout).Encode(report); err != nil {
			_, _ = fmt.Fprintf(stderr, "integrity: encode json: %v\n", err)
			return 1
		}
	} else {
		renderIntegrityHuman(stdout, report)
	}
	if !report.OK() {
		return ExitFindings
	}
	return 0
}

func renderIntegrityHuman(out io.Writer, report jobs.IntegrityReport) {
	_, _ = fmt.Fprintf(out, "Scanned %d company(ies), %d counted voucher(s)\n", report.Companies, report.Vouchers)
	if report.OK() {
		_, _ = fmt.Fprintln(out, "No integrity problems found.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d finding(s):\n", len(report.Findings))
	for _, f := range report.Findings {
		subject := fmt.Sprintf("company %d", f.CompanyID)
		if f.VoucherNo != "" {
			subject += " voucher " + f.VoucherNo
		}
		_, _ = fmt.Fprintf(out, " - [%s] %s: %s\n", f.Kind, subject, f.Detail)
	}
}

func outputs(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("invalid date")
	}
	return t, nil
}
