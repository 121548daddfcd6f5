package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places voucher amounts are stored with.
const AmountScale int32 = 2

// DefaultEpsilon is one minor unit of a two-decimal currency.
var DefaultEpsilon = decimal.New(1, -AmountScale)

// BalanceLine is the debit/credit pair checked by the balance validator.
type BalanceLine struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// BalanceResult reports whether a set of lines forms a valid voucher.
type BalanceResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateBalance checks line count, line shape and debit/credit equality.
// An imbalance is tolerated up to epsilon.
func ValidateBalance(lines []BalanceLine, epsilon decimal.Decimal) BalanceResult {
	if len(lines) < 2 {
		return BalanceResult{Error: fmt.Sprintf("Voucher must have at least 2 lines, got %d", len(lines))}
	}
	if epsilon.IsNegative() {
		epsilon = epsilon.Abs()
	}
	var debit, credit decimal.Decimal
	for idx, line := range lines {
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return BalanceResult{Error: fmt.Sprintf("Line %d cannot have both debit and credit", idx+1)}
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return BalanceResult{Error: fmt.Sprintf("Line %d has a negative amount", idx+1)}
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return BalanceResult{Error: fmt.Sprintf("Line %d must have either a debit or a credit amount", idx+1)}
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	diff := debit.Sub(credit).Abs()
	if diff.GreaterThan(epsilon) {
		places := displayScale(epsilon, debit, credit)
		return BalanceResult{Error: fmt.Sprintf(
			"Voucher is not balanced: total debit %s, total credit %s, difference %s",
			debit.StringFixed(places), credit.StringFixed(places), diff.StringFixed(places),
		)}
	}
	return BalanceResult{Valid: true}
}

// checkLineShape applies the per-line rules without requiring balance. Drafts
// may be saved unbalanced but never with malformed lines.
func checkLineShape(lines []LineInput) *Error {
	if len(lines) < 2 {
		return validationError("Voucher must have at least 2 lines, got %d", len(lines))
	}
	for idx, line := range lines {
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return validationError("Line %d cannot have both debit and credit", idx+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return validationError("Line %d has a negative amount", idx+1)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return validationError("Line %d must have either a debit or a credit amount", idx+1)
		}
		if !fitsScale(line.Debit) || !fitsScale(line.Credit) {
			return validationError("Line %d amount has more than %d decimal places", idx+1, AmountScale)
		}
	}
	return nil
}

func fitsScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(AmountScale))
}

// displayScale is the smallest number of places, at least AmountScale, that
// renders every value exactly.
func displayScale(values ...decimal.Decimal) int32 {
	places := AmountScale
	for _, v := range values {
		if exp := -v.Exponent(); exp > places {
			places = exp
		}
	}
	return places
}
