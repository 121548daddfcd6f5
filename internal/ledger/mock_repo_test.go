package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

type memState struct {
	vouchers    map[int64]Voucher
	lines       map[int64][]VoucherLine
	accounts    map[int64]Account
	sequences   map[string]int64
	audits      []audit.Record
	linked      map[int64]VoucherStatus
	outbox      []OutboxMessage
	nextVoucher int64
	nextLine    int64
}

func (s memState) clone() memState {
	out := memState{
		vouchers:    make(map[int64]Voucher, len(s.vouchers)),
		lines:       make(map[int64][]VoucherLine, len(s.lines)),
		accounts:    make(map[int64]Account, len(s.accounts)),
		sequences:   make(map[string]int64, len(s.sequences)),
		audits:      append([]audit.Record(nil), s.audits...),
		linked:      make(map[int64]VoucherStatus, len(s.linked)),
		outbox:      append([]OutboxMessage(nil), s.outbox...),
		nextVoucher: s.nextVoucher,
		nextLine:    s.nextLine,
	}
	for k, v := range s.vouchers {
		out.vouchers[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]VoucherLine(nil), v...)
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	for k, v := range s.linked {
		out.linked[k] = v
	}
	return out
}

// memRepo is an in-memory RepositoryPort whose transactions roll back on error.
type memRepo struct {
	mu       sync.Mutex
	state    memState
	auditErr error
	beginErr error
	txCount  int
}

func newMemRepo() *memRepo {
	return &memRepo{state: memState{
		vouchers:  map[int64]Voucher{},
		lines:     map[int64][]VoucherLine{},
		accounts:  map[int64]Account{},
		sequences: map[string]int64{},
		linked:    map[int64]VoucherStatus{},
	}}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beginErr != nil {
		return m.beginErr
	}
	m.txCount++
	work := m.state.clone()
	tx := &memTx{state: &work, auditErr: m.auditErr}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memRepo) addAccount(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.accounts[a.ID] = a
}

func (m *memRepo) voucher(id int64) Voucher {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.vouchers[id]
}

func (m *memRepo) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.state.audits))
	for _, rec := range m.state.audits {
		out = append(out, rec.Action)
	}
	return out
}

func (m *memRepo) reversalsOf(originalID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.state.vouchers {
		if v.ReversalOfID != nil && *v.ReversalOfID == originalID {
			n++
		}
	}
	return n
}

func countAction(actions []string, action string) int {
	n := 0
	for _, a := range actions {
		if a == action {
			n++
		}
	}
	return n
}

func (m *memRepo) outboxMessages() []OutboxMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OutboxMessage(nil), m.state.outbox...)
}

func (m *memRepo) linkVoucher(voucherID int64, status VoucherStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.linked[voucherID] = status
}

func (m *memRepo) linkedStatus(voucherID int64) VoucherStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.linked[voucherID]
}

type memTx struct {
	state    *memState
	auditErr error
}

func (t *memTx) withRelations(v Voucher) Voucher {
	lines := t.state.lines[v.ID]
	v.Lines = make([]VoucherLine, 0, len(lines))
	for _, line := range lines {
		if acc, ok := t.state.accounts[line.AccountID]; ok {
			acc.IsLeaf = t.isLeaf(acc.ID)
			line.Account = &acc
		}
		v.Lines = append(v.Lines, line)
	}
	return v
}

func (t *memTx) isLeaf(id int64) bool {
	for _, acc := range t.state.accounts {
		if acc.ParentID != nil && *acc.ParentID == id {
			return false
		}
	}
	return true
}

func (t *memTx) GetVoucherForUpdate(ctx context.Context, voucherID int64) (Voucher, error) {
	v, ok := t.state.vouchers[voucherID]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return t.withRelations(v), nil
}

func (t *memTx) GetVoucher(ctx context.Context, voucherID int64) (Voucher, error) {
	v, ok := t.state.vouchers[voucherID]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	v = t.withRelations(v)
	var ids []int64
	for id, other := range t.state.vouchers {
		if other.ReversalOfID != nil && *other.ReversalOfID == voucherID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		v.ReversalVouchers = append(v.ReversalVouchers, t.state.vouchers[id])
	}
	return v, nil
}

func (t *memTx) FindReversalOf(ctx context.Context, originalID int64) (Voucher, bool, error) {
	for _, v := range t.state.vouchers {
		if v.ReversalOfID != nil && *v.ReversalOfID == originalID {
			return v, true, nil
		}
	}
	return Voucher{}, false, nil
}

func (t *memTx) AccountsByID(ctx context.Context, companyID int64, ids []int64) (map[int64]Account, error) {
	out := make(map[int64]Account, len(ids))
	for _, id := range ids {
		acc, ok := t.state.accounts[id]
		if !ok || acc.CompanyID != companyID {
			continue
		}
		acc.IsLeaf = t.isLeaf(id)
		out[id] = acc
	}
	return out, nil
}

func (t *memTx) NextVoucherNumber(ctx context.Context, companyID int64, date time.Time, voucherType VoucherType) (string, error) {
	key := fmt.Sprintf("%d/%s", companyID, date.Format("20060102"))
	t.state.sequences[key]++
	return FormatVoucherNo(voucherType, date, t.state.sequences[key]), nil
}

func (t *memTx) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	if v.ReversalOfID != nil {
		for _, other := range t.state.vouchers {
			if other.ReversalOfID != nil && *other.ReversalOfID == *v.ReversalOfID {
				return Voucher{}, ErrReversalConflict
			}
		}
	}
	t.state.nextVoucher++
	v.ID = t.state.nextVoucher
	v.Lines = nil
	v.ReversalVouchers = nil
	t.state.vouchers[v.ID] = v
	return v, nil
}

func (t *memTx) InsertVoucherLines(ctx context.Context, voucherID, companyID int64, lines []LineInput) error {
	for _, in := range lines {
		t.state.nextLine++
		t.state.lines[voucherID] = append(t.state.lines[voucherID], VoucherLine{
			ID:              t.state.nextLine,
			VoucherID:       voucherID,
			CompanyID:       companyID,
			AccountID:       in.AccountID,
			Debit:           in.Debit,
			Credit:          in.Credit,
			ProjectID:       in.ProjectID,
			VendorID:        in.VendorID,
			PaymentMethodID: in.PaymentMethodID,
			Description:     in.Description,
		})
	}
	return nil
}

func (t *memTx) DeleteVoucherLines(ctx context.Context, voucherID int64) error {
	delete(t.state.lines, voucherID)
	return nil
}

func (t *memTx) UpdateVoucherWorkflow(ctx context.Context, v Voucher) error {
	if _, ok := t.state.vouchers[v.ID]; !ok {
		return ErrVoucherNotFound
	}
	v.Lines = nil
	v.ReversalVouchers = nil
	t.state.vouchers[v.ID] = v
	return nil
}

func (t *memTx) InsertAuditLog(ctx context.Context, rec audit.Record) error {
	if t.auditErr != nil {
		return t.auditErr
	}
	t.state.audits = append(t.state.audits, rec)
	return nil
}

func (t *memTx) MirrorLinkedStatus(ctx context.Context, voucherID int64, status VoucherStatus) (int64, error) {
	if _, ok := t.state.linked[voucherID]; !ok {
		return 0, nil
	}
	t.state.linked[voucherID] = status
	return 1, nil
}

func (t *memTx) EnqueueOutbox(ctx context.Context, msg OutboxMessage) error {
	t.state.outbox = append(t.state.outbox, msg)
	return nil
}
