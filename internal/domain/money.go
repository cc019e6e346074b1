package domain

import (
	"fmt"
	"strings"
)

// Cents is a monetary amount in the minor unit of its currency. All totals are
// computed in integer cents so that sums never drift.
type Cents int64

// CentsFromMajor converts a major-unit amount (e.g. 19.99) to cents, rounding
// half away from zero.
func CentsFromMajor(amount float64) Cents {
	if amount < 0 {
		return -CentsFromMajor(-amount)
	}
	return Cents(amount*100 + 0.5)
}

// Major returns the amount in major units for display.
func (c Cents) Major() float64 { return float64(c) / 100 }

// String formats the amount with two decimal places, e.g. "39.98".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Mul multiplies the unit amount by a quantity.
func (c Cents) Mul(qty int64) Cents { return Cents(int64(c) * qty) }

// NormalizeCurrency upper-cases and validates an ISO 4217 currency code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", code)
		}
	}
	return code, nil
}
