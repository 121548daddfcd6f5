package reports

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger"
)

var (
	// ErrInvalidQuery is returned for malformed statement requests.
	ErrInvalidQuery = errors.New("reports: invalid query")
	// ErrAccountNotFound is returned when the ledger account does not belong to the company.
	ErrAccountNotFound = errors.New("reports: account not found")
)

// LedgerQuery selects an account ledger.
type LedgerQuery struct {
	CompanyID int64
	AccountID int64
	From      time.Time
	To        time.Time
}

// Query selects a period statement. Zero From or To leaves that side open.
type Query struct {
	CompanyID int64
	From      time.Time
	To        time.Time
	ProjectID *int64
}

// AsOfQuery selects a point-in-time statement.
type AsOfQuery struct {
	CompanyID int64
	AsOf      time.Time
}

// BookKind selects the cash or bank book.
type BookKind string

const (
	BookCash BookKind = "CASH"
	BookBank BookKind = "BANK"
)

// ParseBookKind normalises a book kind.
func ParseBookKind(raw string) (BookKind, bool) {
	switch kind := BookKind(strings.ToUpper(strings.TrimSpace(raw))); kind {
	case BookCash, BookBank:
		return kind, true
	default:
		return "", false
	}
}

// BookQuery selects a cash or bank book.
type BookQuery struct {
	CompanyID int64
	Kind      BookKind
	From      time.Time
	To        time.Time
}

// AccountBalance is the raw debit and credit total of one account.
type AccountBalance struct {
	AccountID int64              `json:"account_id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Debit     decimal.Decimal    `json:"debit"`
	Credit    decimal.Decimal    `json:"credit"`
}

// Balance returns the signed balance under the account type's sign convention.
func (a AccountBalance) Balance() decimal.Decimal {
	return a.Type.Impact(a.Debit, a.Credit)
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// LedgerLine is one qualifying voucher line of an account.
type LedgerLine struct {
	VoucherID     int64                `json:"voucher_id"`
	VoucherNo     string               `json:"voucher_no"`
	VoucherDate   time.Time            `json:"voucher_date"`
	VoucherType   ledger.VoucherType   `json:"voucher_type"`
	VoucherStatus ledger.VoucherStatus `json:"voucher_status"`
	Narration     string               `json:"narration"`
	LineID        int64                `json:"line_id"`
	LineCreatedAt time.Time            `json:"line_created_at"`
	Debit         decimal.Decimal      `json:"debit"`
	Credit        decimal.Decimal      `json:"credit"`
	Description   string               `json:"description"`
	ProjectID     *int64               `json:"project_id,omitempty"`
}

// ProjectAmount is the debit and credit total of one project and account type.
type ProjectAmount struct {
	ProjectID int64              `json:"project_id"`
	Type      ledger.AccountType `json:"type"`
	Debit     decimal.Decimal    `json:"debit"`
	Credit    decimal.Decimal    `json:"credit"`
}
