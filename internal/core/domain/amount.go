package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// weiPerEther is the number of decimal places between wei and ether.
const weiPerEther = 18

// MaxAmountDigits bounds every stored wei amount, totals included. It matches
// the DECIMAL(65, 0) columns of the MySQL store.
const MaxAmountDigits = 65

// MaxAmount is the largest wei amount the ledger holds: 65 nines.
var MaxAmount = decimal.New(1, MaxAmountDigits).Sub(decimal.New(1, 0))

// ValidAmount reports whether d can be expressed in wei: a non-negative integer
// no larger than MaxAmount.
func ValidAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.IsInteger() && d.LessThanOrEqual(MaxAmount)
}

// ParseWei parses a base-10 wei amount.
func ParseWei(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse wei %q: %w", s, err)
	}
	if !ValidAmount(d) {
		return decimal.Zero, fmt.Errorf("parse wei %q: not a non-negative integer of at most %d digits", s, MaxAmountDigits)
	}
	return d, nil
}

// FormatEther renders a wei amount in ether with trailing zeros trimmed.
func FormatEther(wei decimal.Decimal) string {
	return wei.Shift(-weiPerEther).String()
}
