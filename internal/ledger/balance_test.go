package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateBalance(t *testing.T) {
	cases := []struct {
		name    string
		lines   []BalanceLine
		valid   bool
		message string
	}{
		{
			name:  "balanced pair",
			lines: []BalanceLine{{Debit: dec("1000")}, {Credit: dec("1000")}},
			valid: true,
		},
		{
			name:    "single line",
			lines:   []BalanceLine{{Debit: dec("10")}},
			message: "Voucher must have at least 2 lines, got 1",
		},
		{
			name:    "no lines",
			message: "Voucher must have at least 2 lines, got 0",
		},
		{
			name:    "both sides on one line",
			lines:   []BalanceLine{{Debit: dec("10"), Credit: dec("10")}, {Credit: dec("0.01")}},
			message: "Line 1 cannot have both debit and credit",
		},
		{
			name:    "negative amount",
			lines:   []BalanceLine{{Debit: dec("10")}, {Credit: dec("-10")}},
			message: "Line 2 has a negative amount",
		},
		{
			name:    "empty line",
			lines:   []BalanceLine{{Debit: dec("10")}, {Credit: dec("10")}, {}},
			message: "Line 3 must have either a debit or a credit amount",
		},
		{
			name:    "imbalanced",
			lines:   []BalanceLine{{Debit: dec("500")}, {Credit: dec("450")}},
			message: "Voucher is not balanced: total debit 500.00, total credit 450.00, difference 50.00",
		},
		{
			name:  "within epsilon",
			lines: []BalanceLine{{Debit: dec("100.005")}, {Credit: dec("100")}},
			valid: true,
		},
		{
			name:    "just over epsilon",
			lines:   []BalanceLine{{Debit: dec("100.02")}, {Credit: dec("100")}},
			message: "Voucher is not balanced: total debit 100.02, total credit 100.00, difference 0.02",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateBalance(tc.lines, DefaultEpsilon)
			assert.Equal(t, tc.valid, res.Valid)
			assert.Equal(t, tc.message, res.Error)
		})
	}
}

func TestValidateBalanceCustomEpsilon(t *testing.T) {
	lines := []BalanceLine{{Debit: dec("100.50")}, {Credit: dec("100")}}
	require.False(t, ValidateBalance(lines, DefaultEpsilon).Valid)
	require.True(t, ValidateBalance(lines, dec("1")).Valid)
	require.True(t, ValidateBalance(lines, dec("-1")).Valid)
}

func TestValidateBalanceReportsExactImbalance(t *testing.T) {
	lines := []BalanceLine{{Debit: dec("1.004")}, {Credit: dec("1")}}

	res := ValidateBalance(lines, dec("0.001"))
	require.False(t, res.Valid)
	assert.Equal(t, "Voucher is not balanced: total debit 1.004, total credit 1.000, difference 0.004", res.Error)

	res = ValidateBalance([]BalanceLine{{Debit: dec("5")}, {Credit: dec("4.9")}}, dec("0.0001"))
	assert.Equal(t, "Voucher is not balanced: total debit 5.0000, total credit 4.9000, difference 0.1000", res.Error)
}

func TestCheckLineShapeRejectsSubMinorAmounts(t *testing.T) {
	err := checkLineShape([]LineInput{{AccountID: 1, Debit: dec("0.004")}, {AccountID: 2, Credit: dec("0.004")}})
	require.NotNil(t, err)
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "Line 1 amount has more than 2 decimal places", err.Message)

	err = checkLineShape([]LineInput{{AccountID: 1, Debit: dec("10.25")}, {AccountID: 2, Credit: dec("10.125")}})
	require.NotNil(t, err)
	assert.Equal(t, "Line 2 amount has more than 2 decimal places", err.Message)

	require.Nil(t, checkLineShape([]LineInput{{AccountID: 1, Debit: dec("10.500")}, {AccountID: 2, Credit: dec("10.5")}}))
}

func TestCheckLineShapeAllowsImbalance(t *testing.T) {
	err := checkLineShape([]LineInput{{AccountID: 1, Debit: dec("500")}, {AccountID: 2, Credit: dec("450")}})
	require.Nil(t, err)

	err = checkLineShape([]LineInput{{AccountID: 1, Debit: dec("1"), Credit: dec("1")}, {AccountID: 2, Credit: dec("1")}})
	require.NotNil(t, err)
	assert.Equal(t, KindValidation, err.Kind)
}

func TestAccountTypeImpact(t *testing.T) {
	assert.True(t, dec("70").Equal(AccountTypeAsset.Impact(dec("100"), dec("30"))))
	assert.True(t, dec("70").Equal(AccountTypeExpense.Impact(dec("100"), dec("30"))))
	assert.True(t, dec("-70").Equal(AccountTypeIncome.Impact(dec("100"), dec("30"))))
	assert.True(t, dec("-70").Equal(AccountTypeLiability.Impact(dec("100"), dec("30"))))
	assert.True(t, dec("-70").Equal(AccountTypeEquity.Impact(dec("100"), dec("30"))))
}
