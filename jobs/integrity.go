package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/reports"
)

// Finding kinds reported by the integrity scan.
const (
	FindingUnbalancedVoucher = "unbalanced_voucher"
	FindingReversalGap       = "reversal_gap"
	FindingTrialBalance      = "trial_balance"
)

// VoucherLines is a counted voucher with the amounts of its lines.
type VoucherLines struct {
	VoucherID int64
	VoucherNo string
	Status    ledger.VoucherStatus
	Lines     []ledger.BalanceLine
}

// ReversalGap is a voucher whose reversal link is inconsistent.
type ReversalGap struct {
	VoucherID int64
	VoucherNo string
	Detail    string
}

// IntegrityStore reads the data the integrity scan inspects.
type IntegrityStore interface {
	Companies(ctx context.Context) ([]int64, error)
	CountedVoucherLines(ctx context.Context, companyID int64) ([]VoucherLines, error)
	ReversalGaps(ctx context.Context, companyID int64) ([]ReversalGap, error)
}

// TrialBalancer builds the trial balance of a company.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, q reports.Query) (reports.TrialBalance, error)
}

// Finding is one problem detected by the scan.
type Finding struct {
	Kind      string `json:"kind"`
	CompanyID int64  `json:"company_id"`
	VoucherID int64  `json:"voucher_id,omitempty"`
	VoucherNo string `json:"voucher_no,omitempty"`
	Detail    string `json:"detail"`
}

// IntegrityReport summarises one scan.
type IntegrityReport struct {
	Companies int       `json:"companies"`
	Vouchers  int       `json:"vouchers"`
	Findings  []Finding `json:"findings"`
}

// OK reports whether the scan found nothing.
func (r IntegrityReport) OK() bool {
	return len(r.Findings) == 0
}

// IntegrityJob re-validates counted vouchers and statements. It never writes
// ledger data.
type IntegrityJob struct {
	Store    IntegrityStore
	Balancer TrialBalancer
	Epsilon  decimal.Decimal
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewIntegrityJob initialises the integrity scan handler.
func NewIntegrityJob(store IntegrityStore, balancer TrialBalancer, epsilon decimal.Decimal, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{
		Store:    store,
		Balancer: balancer,
		Epsilon:  epsilon,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan for an Asynq task.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("integrity scan: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run scans the requested companies and reports every finding.
func (j *IntegrityJob) Run(ctx context.Context, payload IntegrityPayload) (report IntegrityReport, resultErr error) {
	if j == nil || j.Store == nil {
		return IntegrityReport{}, errors.New("integrity scan: store not configured")
	}
	start := j.now()
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("company_id", payload.CompanyID))
	logger.Info("starting ledger integrity scan")

	companies := []int64{payload.CompanyID}
	if payload.CompanyID <= 0 {
		var err error
		if companies, err = j.Store.Companies(ctx); err != nil {
			logger.Error("list companies", slog.Any("error", err))
			return IntegrityReport{}, fmt.Errorf("integrity scan: companies: %w", err)
		}
	}

	report.Findings = []Finding{}
	for _, companyID := range companies {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		vouchers, findings, err := j.scanCompany(ctx, companyID)
		if err != nil {
			logger.Error("scan company failed", slog.Int64("scan_company_id", companyID), slog.Any("error", err))
			return report, err
		}
		report.Companies++
		report.Vouchers += vouchers
		report.Findings = append(report.Findings, findings...)
	}

	counts := make(map[string]map[int64]int)
	for _, f := range report.Findings {
		logger.Warn("ledger integrity finding",
			slog.String("kind", f.Kind),
			slog.Int64("finding_company_id", f.CompanyID),
			slog.Int64("voucher_id", f.VoucherID),
			slog.String("detail", f.Detail),
		)
		if counts[f.Kind] == nil {
			counts[f.Kind] = make(map[int64]int)
		}
		counts[f.Kind][f.CompanyID]++
	}
	for kind, perCompany := range counts {
		for companyID, n := range perCompany {
			j.Metrics.AddIntegrityFindings(kind, companyID, n)
		}
	}

	logger.Info("completed ledger integrity scan",
		slog.Int("companies", report.Companies),
		slog.Int("vouchers", report.Vouchers),
		slog.Int("findings", len(report.Findings)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return report, nil
}

func (j *IntegrityJob) scanCompany(ctx context.Context, companyID int64) (int, []Finding, error) {
	var findings []Finding
	vouchers, err := j.Store.CountedVoucherLines(ctx, companyID)
	if err != nil {
		return 0, nil, fmt.Errorf("integrity scan: voucher lines of company %d: %w", companyID, err)
	}
	for _, v := range vouchers {
		if res := ledger.ValidateBalance(v.Lines, j.Epsilon); !res.Valid {
			findings = append(findings, Finding{
				Kind:      FindingUnbalancedVoucher,
				CompanyID: companyID,
				VoucherID: v.VoucherID,
				VoucherNo: v.VoucherNo,
				Detail:    fmt.Sprintf("%s voucher: %s", v.Status, res.Error),
			})
		}
	}

	gaps, err := j.Store.ReversalGaps(ctx, companyID)
	if err != nil {
		return 0, nil, fmt.Errorf("integrity scan: reversal links of company %d: %w", companyID, err)
	}
	for _, gap := range gaps {
		findings = append(findings, Finding{
			Kind:      FindingReversalGap,
			CompanyID: companyID,
			VoucherID: gap.VoucherID,
			VoucherNo: gap.VoucherNo,
			Detail:    gap.Detail,
		})
	}

	if j.Balancer != nil {
		tb, err := j.Balancer.TrialBalance(ctx, reports.Query{CompanyID: companyID})
		if err != nil {
			return 0, nil, fmt.Errorf("integrity scan: trial balance of company %d: %w", companyID, err)
		}
		for _, warning := range tb.Warnings {
			findings = append(findings, Finding{Kind: FindingTrialBalance, CompanyID: companyID, Detail: warning})
		}
	}
	return len(vouchers), findings, nil
}

func (j *IntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
