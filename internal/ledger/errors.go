package ledger

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business rule failures so callers can map them to
// transport responses.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindTransition        ErrorKind = "TRANSITION"
	KindPermission        ErrorKind = "PERMISSION"
	KindAccountState      ErrorKind = "ACCOUNT_STATE"
	KindDuplicateReversal ErrorKind = "DUPLICATE_REVERSAL"
)

// Error is a structured business rule failure.
type Error struct {
	Kind        ErrorKind     `json:"kind"`
	Message     string        `json:"message"`
	From        VoucherStatus `json:"from,omitempty"`
	To          VoucherStatus `json:"to,omitempty"`
	AccountCode string        `json:"account_code,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is matches errors of the same kind, so errors.Is(err, ErrTransition) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e != nil && other != nil && e.Kind == other.Kind
}

var (
	// ErrValidation matches imbalanced vouchers and malformed lines.
	ErrValidation = &Error{Kind: KindValidation, Message: "ledger: validation failed"}
	// ErrNotFound matches missing or cross-tenant vouchers and accounts.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "ledger: not found"}
	// ErrTransition matches illegal status changes.
	ErrTransition = &Error{Kind: KindTransition, Message: "ledger: invalid status transition"}
	// ErrPermission matches role capability failures.
	ErrPermission = &Error{Kind: KindPermission, Message: "ledger: permission denied"}
	// ErrAccountState matches inactive or group accounts at posting time.
	ErrAccountState = &Error{Kind: KindAccountState, Message: "ledger: account cannot receive postings"}
	// ErrDuplicateReversal matches a second reversal of the same voucher.
	ErrDuplicateReversal = &Error{Kind: KindDuplicateReversal, Message: "ledger: voucher already reversed"}
)

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(entity string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func transitionError(from, to VoucherStatus) *Error {
	return &Error{
		Kind:    KindTransition,
		Message: fmt.Sprintf("cannot move voucher from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

func permissionError(role Role, action Action) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf("role %s is not allowed to %s vouchers", role, action.verb())}
}

func accountStateError(code, reason string) *Error {
	return &Error{
		Kind:        KindAccountState,
		Message:     fmt.Sprintf("account %s %s", code, reason),
		AccountCode: code,
	}
}

func duplicateReversalError(voucherNo string) *Error {
	return &Error{Kind: KindDuplicateReversal, Message: fmt.Sprintf("voucher %s has already been reversed", voucherNo)}
}

// asBusinessError extracts a business rule failure from an error returned by a
// transaction callback.
func asBusinessError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func immutableError(status VoucherStatus) *Error {
	return &Error{
		Kind:    KindTransition,
		Message: fmt.Sprintf("voucher lines cannot be changed in status %s", status),
		From:    status,
	}
}
