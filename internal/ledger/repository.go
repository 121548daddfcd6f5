package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

var (
	// ErrVoucherNotFound is returned by repositories when a voucher row is missing.
	ErrVoucherNotFound = errors.New("ledger: voucher not found")
	// ErrReversalConflict is returned when the reversal uniqueness constraint fires.
	ErrReversalConflict = errors.New("ledger: reversal already exists")
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// LinkedRecordWriter mirrors a voucher status onto dependent external records.
type LinkedRecordWriter interface {
	MirrorLinkedStatus(ctx context.Context, voucherID int64, status VoucherStatus) (int64, error)
}

// OutboxMessage is a notification queued inside the workflow transaction and
// delivered once it commits.
type OutboxMessage struct {
	EventID   string
	CompanyID int64
	VoucherID int64
	Channel   string
	Payload   []byte
}

// OutboxWriter queues notifications through the workflow transaction.
type OutboxWriter interface {
	EnqueueOutbox(ctx context.Context, msg OutboxMessage) error
}

// SyncWriter is the transactional surface handed to LinkedRecordSync.
type SyncWriter interface {
	LinkedRecordWriter
	OutboxWriter
}

// TxRepository exposes the reads and writes a workflow step performs inside
// one database transaction.
type TxRepository interface {
	audit.Writer
	SyncWriter

	// GetVoucherForUpdate locks the voucher row and loads its lines with account details.
	GetVoucherForUpdate(ctx context.Context, voucherID int64) (Voucher, error)
	// GetVoucher loads the voucher with lines and reversal vouchers.
	GetVoucher(ctx context.Context, voucherID int64) (Voucher, error)
	// FindReversalOf returns the voucher reversing originalID, if any.
	FindReversalOf(ctx context.Context, originalID int64) (Voucher, bool, error)
	// AccountsByID acts as the account directory for one company.
	AccountsByID(ctx context.Context, companyID int64, ids []int64) (map[int64]Account, error)
	// NextVoucherNumber allocates the next sequential number for company and date.
	NextVoucherNumber(ctx context.Context, companyID int64, date time.Time, voucherType VoucherType) (string, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	InsertVoucherLines(ctx context.Context, voucherID, companyID int64, lines []LineInput) error
	DeleteVoucherLines(ctx context.Context, voucherID int64) error
	// UpdateVoucherWorkflow persists status, actor stamps and updated_at.
	UpdateVoucherWorkflow(ctx context.Context, v Voucher) error
}

// FormatVoucherNo renders a sequence value as a voucher number. The sequence
// is padded to four digits and grows wider past 9999.
func FormatVoucherNo(voucherType VoucherType, date time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", voucherType.Prefix(), date.Format("20060102"), seq)
}

// VoucherSeq extracts the sequence value from a voucher number.
func VoucherSeq(voucherNo string) (int64, bool) {
	idx := strings.LastIndexByte(voucherNo, '-')
	if idx < 0 || idx == len(voucherNo)-1 {
		return 0, false
	}
	seq, err := strconv.ParseInt(voucherNo[idx+1:], 10, 64)
	return seq, err == nil
}
