// Package money provides the fixed-point currency type used by the planner.
// All amounts are int64 counts of minor units (cents) so repeated discount
// arithmetic never drifts the way floating point would.
package money

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (e.g. cents).
type Money int64

// MinorUnits is the number of minor units in one major unit.
const MinorUnits = 100

// MaxAmount bounds every amount the planner accepts so that subtotals,
// sums of reductions and basis-point products stay within int64.
const MaxAmount Money = 100_000_000_000_000

var currencySuffix = regexp.MustCompile(`\s*(KN|KUNA|HRK|EUR|USD|CNY|RMB|YUAN)\s*$`)

// Parse parses a price string to minor units.
// Handles "12.99", "12,99", "1.299,00", "1 299,00 EUR" and "¥300".
func Parse(value string) (Money, error) {
	if strings.TrimSpace(value) == "" {
		return 0, fmt.Errorf("empty price value")
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', '¥', '￥', '¢', ' ', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(value))

	cleaned = strings.ToUpper(cleaned)
	cleaned = strings.TrimSpace(currencySuffix.ReplaceAllString(cleaned, ""))
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric value found in %q", value)
	}

	// The last separator wins as the decimal separator.
	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	if lastComma > lastDot {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if lastDot > lastComma {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid price format %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(value string) Money {
	m, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a major-unit decimal to minor units, rounding half away from zero.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(2).Round(0).IntPart())
}

// FromMajor converts a whole number of major units to Money.
func FromMajor(units int64) Money {
	return Money(units * MinorUnits)
}

// Decimal returns the amount as a major-unit decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount with two decimals, e.g. 1299 -> "12.99".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// MulChecked is Mul for non-negative operands that reports false when the
// product exceeds MaxAmount.
func (m Money) MulChecked(qty int) (Money, bool) {
	if m < 0 || qty < 0 {
		return 0, false
	}
	if qty != 0 && m > MaxAmount/Money(qty) {
		return 0, false
	}
	return m * Money(qty), true
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// ClampNonNegative returns m, or zero if m is negative.
func ClampNonNegative(m Money) Money {
	if m < 0 {
		return 0
	}
	return m
}

// PercentBps parses a percentage string such as "15" or "12.5%" into basis points.
func PercentBps(value string) (int, error) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, fmt.Errorf("empty percentage value")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q: %w", value, err)
	}
	return int(d.Shift(2).Round(0).IntPart()), nil
}

// ApplyBps returns floor(m * bps / 10000) for non-negative m.
func (m Money) ApplyBps(bps int) Money {
	if m <= 0 || bps <= 0 {
		return 0
	}
	return Money(int64(m) * int64(bps) / 10000)
}

// FormatBps renders basis points as a percentage string, e.g. 1250 -> "12.5%".
func FormatBps(bps int) string {
	return decimal.New(int64(bps), -2).String() + "%"
}
