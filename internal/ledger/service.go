package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

// AuditPort records voucher mutations through the transaction that performs them.
type AuditPort interface {
	Record(ctx context.Context, w audit.Writer, e audit.Entry) error
}

// LinkedRecordSync propagates status changes to records owned by other
// modules. It runs inside the transition transaction; an error aborts it.
type LinkedRecordSync interface {
	OnStatusChanged(ctx context.Context, w SyncWriter, change StatusChange) error
}

// Observer receives the outcome of every workflow operation.
type Observer interface {
	ObserveTransition(action, outcome string, elapsed time.Duration)
}

// ServiceConfig carries the optional collaborators of Service.
type ServiceConfig struct {
	Epsilon  decimal.Decimal
	Sync     LinkedRecordSync
	Observer Observer
	Logger   *slog.Logger
}

// Service runs the voucher workflow: drafts, submission, approval, posting
// and reversal.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	sync     LinkedRecordSync
	observer Observer
	logger   *slog.Logger
	epsilon  decimal.Decimal
	now      func() time.Time
}

// NewService constructs the voucher workflow service.
func NewService(repo RepositoryPort, auditor AuditPort, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	epsilon := cfg.Epsilon
	if epsilon.IsZero() {
		epsilon = DefaultEpsilon
	}
	return &Service{
		repo:     repo,
		audit:    auditor,
		sync:     cfg.Sync,
		observer: cfg.Observer,
		logger:   logger,
		epsilon:  epsilon,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Epsilon returns the balance tolerance applied by the service.
func (s *Service) Epsilon() decimal.Decimal {
	return s.epsilon
}

// step describes one status transition.
type step struct {
	action      Action
	auditAction string
	// check runs after status and role checks and may reject the transition.
	check func(ctx context.Context, tx TxRepository, v Voucher) error
	// stamp records the actor on the voucher.
	stamp func(v *Voucher, actorID int64, at time.Time)
}

// Submit moves a DRAFT voucher to SUBMITTED once its lines balance.
func (s *Service) Submit(ctx context.Context, cmd TransitionCommand) (Result, error) {
	return s.transition(ctx, cmd, step{
		action:      ActionSubmit,
		auditAction: "VOUCHER_SUBMIT",
		check:       s.checkBalanced,
		stamp: func(v *Voucher, actorID int64, at time.Time) {
			v.SubmittedBy = &actorID
			v.SubmittedAt = &at
		},
	})
}

// Approve moves a SUBMITTED voucher to APPROVED.
func (s *Service) Approve(ctx context.Context, cmd TransitionCommand) (Result, error) {
	return s.transition(ctx, cmd, step{
		action:      ActionApprove,
		auditAction: "VOUCHER_APPROVE",
		stamp: func(v *Voucher, actorID int64, at time.Time) {
			v.ApprovedBy = &actorID
			v.ApprovedAt = &at
		},
	})
}

// Reject returns a SUBMITTED voucher to DRAFT so its lines can be edited again.
func (s *Service) Reject(ctx context.Context, cmd TransitionCommand) (Result, error) {
	return s.transition(ctx, cmd, step{
		action:      ActionReject,
		auditAction: "VOUCHER_REJECT",
		stamp: func(v *Voucher, _ int64, _ time.Time) {
			v.SubmittedBy = nil
			v.SubmittedAt = nil
		},
	})
}

// Post moves an APPROVED voucher to POSTED. The lines must balance and every
// referenced account must be an active leaf.
func (s *Service) Post(ctx context.Context, cmd TransitionCommand) (Result, error) {
	return s.transition(ctx, cmd, step{
		action:      ActionPost,
		auditAction: "VOUCHER_POST",
		check: func(ctx context.Context, tx TxRepository, v Voucher) error {
			if err := s.checkBalanced(ctx, tx, v); err != nil {
				return err
			}
			return s.checkPostable(ctx, tx, v)
		},
		stamp: func(v *Voucher, actorID int64, at time.Time) {
			v.PostedBy = &actorID
			v.PostedAt = &at
		},
	})
}

func (s *Service) transition(ctx context.Context, cmd TransitionCommand, st step) (Result, error) {
	started := s.now()
	if err := checkInput(cmd); err != nil {
		return s.finish(ctx, st.action, started, Voucher{}, err)
	}
	var updated Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := s.loadForUpdate(ctx, tx, cmd.VoucherID, cmd.CompanyID)
		if err != nil {
			return err
		}
		to, terr := checkTransition(current.Status, st.action)
		if terr != nil {
			return terr
		}
		if perr := checkCapability(cmd.Role, st.action); perr != nil {
			return perr
		}
		if st.check != nil {
			if cerr := st.check(ctx, tx, current); cerr != nil {
				return cerr
			}
		}
		at := s.now()
		next := current
		next.Status = to
		next.UpdatedAt = at
		if st.stamp != nil {
			st.stamp(&next, cmd.ActorID, at)
		}
		if err := tx.UpdateVoucherWorkflow(ctx, next); err != nil {
			return fmt.Errorf("ledger: update voucher %d: %w", next.ID, err)
		}
		if err := s.record(ctx, tx, cmd.CompanyID, cmd.ActorID, next.ID, st.auditAction, current, next); err != nil {
			return err
		}
		if err := s.notify(ctx, tx, StatusChange{
			VoucherID: next.ID,
			CompanyID: next.CompanyID,
			VoucherNo: next.VoucherNo,
			From:      current.Status,
			To:        to,
			ActorID:   cmd.ActorID,
			At:        at,
		}); err != nil {
			return err
		}
		updated, err = tx.GetVoucher(ctx, next.ID)
		if err != nil {
			return fmt.Errorf("ledger: reload voucher %d: %w", next.ID, err)
		}
		return nil
	})
	return s.finish(ctx, st.action, started, updated, err)
}

// loadForUpdate locks the voucher and hides vouchers of other companies.
func (s *Service) loadForUpdate(ctx context.Context, tx TxRepository, voucherID, companyID int64) (Voucher, error) {
	current, err := tx.GetVoucherForUpdate(ctx, voucherID)
	if errors.Is(err, ErrVoucherNotFound) {
		return Voucher{}, notFoundError("voucher", voucherID)
	}
	if err != nil {
		return Voucher{}, fmt.Errorf("ledger: load voucher %d: %w", voucherID, err)
	}
	if current.CompanyID != companyID {
		return Voucher{}, notFoundError("voucher", voucherID)
	}
	return current, nil
}

func (s *Service) checkBalanced(_ context.Context, _ TxRepository, v Voucher) error {
	res := ValidateBalance(v.BalanceLines(), s.epsilon)
	if !res.Valid {
		return validationError("%s", res.Error)
	}
	return nil
}

func (s *Service) checkPostable(ctx context.Context, tx TxRepository, v Voucher) error {
	ids := lineAccountIDs(v.Lines)
	accounts, err := tx.AccountsByID(ctx, v.CompanyID, ids)
	if err != nil {
		return fmt.Errorf("ledger: load accounts for voucher %d: %w", v.ID, err)
	}
	for _, id := range ids {
		account, ok := accounts[id]
		if !ok {
			return notFoundError("account", id)
		}
		if !account.IsActive {
			return accountStateError(account.Code, "is inactive")
		}
		if !account.IsLeaf {
			return accountStateError(account.Code, "is a group account and cannot receive postings")
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, tx TxRepository, companyID, actorID, voucherID int64, action string, before, after any) error {
	if s.audit == nil {
		return nil
	}
	err := s.audit.Record(ctx, tx, audit.Entry{
		CompanyID:   companyID,
		ActorUserID: actorID,
		EntityType:  "Voucher",
		EntityID:    voucherID,
		Action:      action,
		Before:      before,
		After:       after,
	})
	if err != nil {
		return fmt.Errorf("ledger: audit %s: %w", action, err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, tx TxRepository, change StatusChange) error {
	if s.sync == nil {
		return nil
	}
	if err := s.sync.OnStatusChanged(ctx, tx, change); err != nil {
		return fmt.Errorf("ledger: sync linked records for voucher %d: %w", change.VoucherID, err)
	}
	return nil
}

// finish converts the transaction outcome into a Result. Business failures
// become unsuccessful results; anything else is an infrastructure fault.
func (s *Service) finish(ctx context.Context, action Action, started time.Time, v Voucher, err error) (Result, error) {
	var (
		res     Result
		outcome string
	)
	switch be, ok := asBusinessError(err); {
	case err == nil:
		res, outcome = succeeded(v), "success"
	case ok:
		res, outcome = failed(be), strings.ToLower(string(be.Kind))
		s.logger.WarnContext(ctx, "ledger: workflow rejected",
			slog.String("action", string(action)),
			slog.String("kind", string(be.Kind)),
			slog.String("reason", be.Message))
	default:
		outcome = "error"
		s.logger.ErrorContext(ctx, "ledger: workflow failed",
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
	if s.observer != nil {
		s.observer.ObserveTransition(string(action), outcome, s.now().Sub(started))
	}
	if outcome == "error" {
		return Result{}, err
	}
	return res, nil
}

func lineAccountIDs(lines []VoucherLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	return ids
}
