package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// tolerance is the band around zero treated as settled.
	tolerance = decimal.New(1, -2)
	half      = decimal.New(5, -1)
)

// Round2 rounds to cents, half-up towards positive infinity.
// 2.345 -> 2.35, -2.345 -> -2.34.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(half).Floor().Shift(-2)
}

// IsSettled reports whether d lies inside the tolerance band.
func IsSettled(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(tolerance)
}

// ParseAmount parses a user supplied amount. Both "12.34" and "12,34" are
// accepted. The result is rounded to cents and must be positive.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d = Round2(d)
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatMoney renders an amount the way text surfaces show it, e.g. "12.50 €".
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}
