package ledger

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// DebitNormal reports whether the account type grows on the debit side.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Impact returns the signed effect of a debit/credit pair on an account of this type.
func (t AccountType) Impact(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// VoucherStatus enumerates the voucher lifecycle.
type VoucherStatus string

const (
	StatusDraft     VoucherStatus = "DRAFT"
	StatusSubmitted VoucherStatus = "SUBMITTED"
	StatusApproved  VoucherStatus = "APPROVED"
	StatusPosted    VoucherStatus = "POSTED"
	StatusReversed  VoucherStatus = "REVERSED"
)

// CountedStatuses lists the statuses whose vouchers feed statements. A
// reversed voucher stays counted so that it and its reversal cancel out.
func CountedStatuses() []VoucherStatus {
	return []VoucherStatus{StatusPosted, StatusReversed}
}

// Counted reports whether lines of a voucher in this status feed statements.
func (s VoucherStatus) Counted() bool {
	return slices.Contains(CountedStatuses(), s)
}

// VoucherType classifies vouchers and drives their number prefix.
type VoucherType string

const (
	VoucherTypeJournal  VoucherType = "JOURNAL"
	VoucherTypePayment  VoucherType = "PAYMENT"
	VoucherTypeReceipt  VoucherType = "RECEIPT"
	VoucherTypeContra   VoucherType = "CONTRA"
	VoucherTypeSales    VoucherType = "SALES"
	VoucherTypePurchase VoucherType = "PURCHASE"
	VoucherTypeExpense  VoucherType = "EXPENSE"
)

var voucherPrefixes = map[VoucherType]string{
	VoucherTypeJournal:  "JV",
	VoucherTypePayment:  "PV",
	VoucherTypeReceipt:  "RV",
	VoucherTypeContra:   "CV",
	VoucherTypeSales:    "SV",
	VoucherTypePurchase: "PU",
	VoucherTypeExpense:  "EV",
}

// Prefix returns the voucher number prefix for the type.
func (t VoucherType) Prefix() string {
	if p, ok := voucherPrefixes[t]; ok {
		return p
	}
	return "JV"
}

// Valid reports whether the type is known.
func (t VoucherType) Valid() bool {
	_, ok := voucherPrefixes[t]
	return ok
}

// Account models a chart of accounts node as seen by the ledger.
type Account struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"company_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	ParentID  *int64      `json:"parent_id,omitempty"`
	SubType   *string     `json:"sub_type,omitempty"`
	IsActive  bool        `json:"is_active"`
	IsSystem  bool        `json:"is_system"`
	IsLeaf    bool        `json:"is_leaf"`
}

// Voucher is a dated, numbered transaction composed of balanced lines.
type Voucher struct {
	ID               int64         `json:"id"`
	CompanyID        int64         `json:"company_id"`
	VoucherNo        string        `json:"voucher_no"`
	Date             time.Time     `json:"date"`
	Type             VoucherType   `json:"type"`
	ExpenseType      *string       `json:"expense_type,omitempty"`
	Status           VoucherStatus `json:"status"`
	ProjectID        *int64        `json:"project_id,omitempty"`
	Narration        string        `json:"narration"`
	CreatedBy        int64         `json:"created_by"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	SubmittedBy      *int64        `json:"submitted_by,omitempty"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
	ApprovedBy       *int64        `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time    `json:"approved_at,omitempty"`
	PostedBy         *int64        `json:"posted_by,omitempty"`
	PostedAt         *time.Time    `json:"posted_at,omitempty"`
	ReversedBy       *int64        `json:"reversed_by,omitempty"`
	ReversedAt       *time.Time    `json:"reversed_at,omitempty"`
	ReversalOfID     *int64        `json:"reversal_of_id,omitempty"`
	ReversalVouchers []Voucher     `json:"reversal_vouchers,omitempty"`
	Lines            []VoucherLine `json:"lines,omitempty"`
}

// VoucherLine is one debit-or-credit entry against an account.
type VoucherLine struct {
	ID              int64           `json:"id"`
	VoucherID       int64           `json:"voucher_id"`
	CompanyID       int64           `json:"company_id"`
	AccountID       int64           `json:"account_id"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	ProjectID       *int64          `json:"project_id,omitempty"`
	VendorID        *int64          `json:"vendor_id,omitempty"`
	PaymentMethodID *int64          `json:"payment_method_id,omitempty"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	Account         *Account        `json:"account,omitempty"`
}

// Totals sums debit and credit over the voucher lines.
func (v Voucher) Totals() (debit, credit decimal.Decimal) {
	for _, line := range v.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// BalanceLines projects the voucher lines for the balance validator.
func (v Voucher) BalanceLines() []BalanceLine {
	out := make([]BalanceLine, 0, len(v.Lines))
	for _, line := range v.Lines {
		out = append(out, BalanceLine{Debit: line.Debit, Credit: line.Credit})
	}
	return out
}

// LineInput describes a line supplied when creating or replacing voucher lines.
type LineInput struct {
	AccountID       int64           `json:"account_id" validate:"required,gt=0"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	ProjectID       *int64          `json:"project_id,omitempty" validate:"omitempty,gt=0"`
	VendorID        *int64          `json:"vendor_id,omitempty" validate:"omitempty,gt=0"`
	PaymentMethodID *int64          `json:"payment_method_id,omitempty" validate:"omitempty,gt=0"`
	Description     string          `json:"description" validate:"max=500"`
}

// CreateVoucherInput groups the fields required to open a draft voucher.
type CreateVoucherInput struct {
	CompanyID   int64       `json:"company_id" validate:"required,gt=0"`
	ActorID     int64       `json:"actor_id" validate:"required,gt=0"`
	Role        Role        `json:"role" validate:"required"`
	Date        time.Time   `json:"date" validate:"required"`
	Type        VoucherType `json:"type" validate:"required"`
	ExpenseType *string     `json:"expense_type,omitempty" validate:"omitempty,max=100"`
	ProjectID   *int64      `json:"project_id,omitempty" validate:"omitempty,gt=0"`
	Narration   string      `json:"narration" validate:"max=1000"`
	Lines       []LineInput `json:"lines" validate:"dive"`
}

// ReplaceLinesInput swaps every line of a draft voucher.
type ReplaceLinesInput struct {
	VoucherID int64       `json:"voucher_id" validate:"required,gt=0"`
	CompanyID int64       `json:"company_id" validate:"required,gt=0"`
	ActorID   int64       `json:"actor_id" validate:"required,gt=0"`
	Role      Role        `json:"role" validate:"required"`
	Lines     []LineInput `json:"lines" validate:"dive"`
}

// TransitionCommand identifies the voucher, actor and tenant for a workflow step.
type TransitionCommand struct {
	VoucherID int64  `json:"voucher_id" validate:"required,gt=0"`
	ActorID   int64  `json:"actor_id" validate:"required,gt=0"`
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Role      Role   `json:"role" validate:"required"`
	Note      string `json:"note,omitempty" validate:"max=500"`
}

// ReverseCommand extends TransitionCommand with reversal options.
type ReverseCommand struct {
	TransitionCommand
	Date      *time.Time `json:"date,omitempty"`
	Narration string     `json:"narration,omitempty" validate:"max=1000"`
}

// Result is the outcome of a workflow operation. Business rule failures are
// reported through Err; the Go error return of the operation is reserved for
// infrastructure faults.
type Result struct {
	Success  bool     `json:"success"`
	Voucher  *Voucher `json:"voucher,omitempty"`
	Reversal *Voucher `json:"reversal,omitempty"`
	Err      *Error   `json:"error,omitempty"`
}

func succeeded(v Voucher) Result {
	return Result{Success: true, Voucher: &v}
}

func failed(err *Error) Result {
	return Result{Success: false, Err: err}
}

// StatusChange is passed to the linked-record sync hook after every transition.
type StatusChange struct {
	VoucherID int64         `json:"voucher_id"`
	CompanyID int64         `json:"company_id"`
	VoucherNo string        `json:"voucher_no"`
	From      VoucherStatus `json:"from"`
	To        VoucherStatus `json:"to"`
	ActorID   int64         `json:"actor_id"`
	At        time.Time     `json:"at"`
}
