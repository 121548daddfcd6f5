package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reverse cancels a POSTED voucher by creating a POSTED mirror voucher with
// debit and credit swapped and marking the original REVERSED.
func (s *Service) Reverse(ctx context.Context, cmd ReverseCommand) (Result, error) {
	started := s.now()
	if err := checkInput(cmd); err != nil {
		return s.finish(ctx, ActionReverse, started, Voucher{}, err)
	}
	var original, reversal Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := s.loadForUpdate(ctx, tx, cmd.VoucherID, cmd.CompanyID)
		if err != nil {
			return err
		}
		if current.Status == StatusReversed {
			return duplicateReversalError(current.VoucherNo)
		}
		if _, exists, err := tx.FindReversalOf(ctx, current.ID); err != nil {
			return fmt.Errorf("ledger: lookup reversal of %d: %w", current.ID, err)
		} else if exists {
			return duplicateReversalError(current.VoucherNo)
		}
		to, terr := checkTransition(current.Status, ActionReverse)
		if terr != nil {
			return terr
		}
		if perr := checkCapability(cmd.Role, ActionReverse); perr != nil {
			return perr
		}

		at := s.now()
		date := reversalDate(cmd.Date, at)
		number, err := tx.NextVoucherNumber(ctx, current.CompanyID, date, current.Type)
		if err != nil {
			return fmt.Errorf("ledger: allocate voucher number: %w", err)
		}
		actor := cmd.ActorID
		originalID := current.ID
		inserted, err := tx.InsertVoucher(ctx, Voucher{
			CompanyID:    current.CompanyID,
			VoucherNo:    number,
			Date:         date,
			Type:         current.Type,
			ExpenseType:  current.ExpenseType,
			Status:       StatusPosted,
			ProjectID:    current.ProjectID,
			Narration:    reversalNarration(cmd.Narration, current.VoucherNo),
			CreatedBy:    actor,
			CreatedAt:    at,
			UpdatedAt:    at,
			PostedBy:     &actor,
			PostedAt:     &at,
			ReversalOfID: &originalID,
		})
		if errors.Is(err, ErrReversalConflict) {
			return duplicateReversalError(current.VoucherNo)
		}
		if err != nil {
			return fmt.Errorf("ledger: insert reversal voucher: %w", err)
		}
		if err := tx.InsertVoucherLines(ctx, inserted.ID, inserted.CompanyID, ReverseLines(current.Lines)); err != nil {
			return fmt.Errorf("ledger: insert reversal lines: %w", err)
		}
		reversal, err = tx.GetVoucher(ctx, inserted.ID)
		if err != nil {
			return fmt.Errorf("ledger: reload reversal voucher %d: %w", inserted.ID, err)
		}
		if err := s.record(ctx, tx, cmd.CompanyID, actor, reversal.ID, "VOUCHER_REVERSAL_CREATE", nil, reversal); err != nil {
			return err
		}

		next := current
		next.Status = to
		next.UpdatedAt = at
		next.ReversedBy = &actor
		next.ReversedAt = &at
		if err := tx.UpdateVoucherWorkflow(ctx, next); err != nil {
			return fmt.Errorf("ledger: update voucher %d: %w", next.ID, err)
		}
		if err := s.record(ctx, tx, cmd.CompanyID, actor, next.ID, "VOUCHER_REVERSE", current, next); err != nil {
			return err
		}
		if err := s.notify(ctx, tx, StatusChange{
			VoucherID: next.ID,
			CompanyID: next.CompanyID,
			VoucherNo: next.VoucherNo,
			From:      current.Status,
			To:        to,
			ActorID:   actor,
			At:        at,
		}); err != nil {
			return err
		}
		original, err = tx.GetVoucher(ctx, next.ID)
		if err != nil {
			return fmt.Errorf("ledger: reload voucher %d: %w", next.ID, err)
		}
		return nil
	})
	res, ferr := s.finish(ctx, ActionReverse, started, original, err)
	if ferr == nil && res.Success {
		res.Reversal = &reversal
	}
	return res, ferr
}

// ReverseLines mirrors lines with debit and credit swapped. Account and
// analytic tags are preserved.
func ReverseLines(lines []VoucherLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID:       line.AccountID,
			Debit:           line.Credit,
			Credit:          line.Debit,
			ProjectID:       line.ProjectID,
			VendorID:        line.VendorID,
			PaymentMethodID: line.PaymentMethodID,
			Description:     line.Description,
		})
	}
	return out
}

func reversalDate(requested *time.Time, now time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return dateOnly(*requested)
	}
	return dateOnly(now)
}

func reversalNarration(narration, voucherNo string) string {
	if narration != "" {
		return narration
	}
	return fmt.Sprintf("Reversal of %s", voucherNo)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
