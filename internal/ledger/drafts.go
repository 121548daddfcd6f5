package ledger

import (
	"context"
	"errors"
	"fmt"
)

// CreateDraft opens a DRAFT voucher with its lines and a fresh voucher number.
// Drafts may be unbalanced; balance is enforced at submission.
func (s *Service) CreateDraft(ctx context.Context, in CreateVoucherInput) (Result, error) {
	started := s.now()
	if err := s.checkDraft(in); err != nil {
		return s.finish(ctx, ActionCreate, started, Voucher{}, err)
	}
	var created Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.checkAccountsExist(ctx, tx, in.CompanyID, in.Lines); err != nil {
			return err
		}
		date := dateOnly(in.Date)
		number, err := tx.NextVoucherNumber(ctx, in.CompanyID, date, in.Type)
		if err != nil {
			return fmt.Errorf("ledger: allocate voucher number: %w", err)
		}
		at := s.now()
		inserted, err := tx.InsertVoucher(ctx, Voucher{
			CompanyID:   in.CompanyID,
			VoucherNo:   number,
			Date:        date,
			Type:        in.Type,
			ExpenseType: in.ExpenseType,
			Status:      StatusDraft,
			ProjectID:   in.ProjectID,
			Narration:   in.Narration,
			CreatedBy:   in.ActorID,
			CreatedAt:   at,
			UpdatedAt:   at,
		})
		if err != nil {
			return fmt.Errorf("ledger: insert voucher: %w", err)
		}
		if err := tx.InsertVoucherLines(ctx, inserted.ID, in.CompanyID, in.Lines); err != nil {
			return fmt.Errorf("ledger: insert voucher lines: %w", err)
		}
		created, err = tx.GetVoucher(ctx, inserted.ID)
		if err != nil {
			return fmt.Errorf("ledger: reload voucher %d: %w", inserted.ID, err)
		}
		return s.record(ctx, tx, in.CompanyID, in.ActorID, created.ID, "VOUCHER_CREATE", nil, created)
	})
	return s.finish(ctx, ActionCreate, started, created, err)
}

// ReplaceLines swaps every line of a DRAFT voucher in one transaction.
func (s *Service) ReplaceLines(ctx context.Context, in ReplaceLinesInput) (Result, error) {
	started := s.now()
	if err := checkInput(in); err != nil {
		return s.finish(ctx, ActionEdit, started, Voucher{}, err)
	}
	if err := checkCapability(in.Role, ActionEdit); err != nil {
		return s.finish(ctx, ActionEdit, started, Voucher{}, err)
	}
	if err := checkLineShape(in.Lines); err != nil {
		return s.finish(ctx, ActionEdit, started, Voucher{}, err)
	}
	var updated Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := s.loadForUpdate(ctx, tx, in.VoucherID, in.CompanyID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return immutableError(current.Status)
		}
		if err := s.checkAccountsExist(ctx, tx, in.CompanyID, in.Lines); err != nil {
			return err
		}
		if err := tx.DeleteVoucherLines(ctx, current.ID); err != nil {
			return fmt.Errorf("ledger: delete voucher lines: %w", err)
		}
		if err := tx.InsertVoucherLines(ctx, current.ID, current.CompanyID, in.Lines); err != nil {
			return fmt.Errorf("ledger: insert voucher lines: %w", err)
		}
		next := current
		next.UpdatedAt = s.now()
		if err := tx.UpdateVoucherWorkflow(ctx, next); err != nil {
			return fmt.Errorf("ledger: update voucher %d: %w", next.ID, err)
		}
		updated, err = tx.GetVoucher(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("ledger: reload voucher %d: %w", current.ID, err)
		}
		return s.record(ctx, tx, in.CompanyID, in.ActorID, current.ID, "VOUCHER_LINES_REPLACE", current, updated)
	})
	return s.finish(ctx, ActionEdit, started, updated, err)
}

// Get loads a voucher of companyID with its lines and reversal vouchers.
// Vouchers of other companies are reported as not found.
func (s *Service) Get(ctx context.Context, companyID, voucherID int64) (Voucher, error) {
	var v Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		v, err = tx.GetVoucher(ctx, voucherID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrVoucherNotFound) {
			return Voucher{}, notFoundError("voucher", voucherID)
		}
		return Voucher{}, err
	}
	if v.CompanyID != companyID {
		return Voucher{}, notFoundError("voucher", voucherID)
	}
	return v, nil
}

func (s *Service) checkDraft(in CreateVoucherInput) *Error {
	if err := checkInput(in); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return validationError("unknown voucher type %q", in.Type)
	}
	if err := checkCapability(in.Role, ActionCreate); err != nil {
		return err
	}
	return checkLineShape(in.Lines)
}

func (s *Service) checkAccountsExist(ctx context.Context, tx TxRepository, companyID int64, lines []LineInput) error {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.AccountID)
	}
	accounts, err := tx.AccountsByID(ctx, companyID, ids)
	if err != nil {
		return fmt.Errorf("ledger: load accounts: %w", err)
	}
	for _, id := range ids {
		if _, ok := accounts[id]; !ok {
			return notFoundError("account", id)
		}
	}
	return nil
}
