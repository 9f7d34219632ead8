package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a money amount with exactly 2 decimal places.
// INR, or an unset currency, uses the rupee sign and the Indian numbering
// system where, after the rightmost 3 digits, digits are grouped in pairs
// (e.g., ₹1,23,45,678.90). Any other currency groups by thousands and is
// prefixed with its code (e.g., USD 12,345,678.90).
func FormatAmount(amount decimal.Decimal, currency string) string {
	rounded := amount.Round(2)
	raw := rounded.Abs().StringFixed(2)

	parts := strings.SplitN(raw, ".", 2)
	intPart := parts[0]
	decPart := parts[1]

	code := strings.ToUpper(strings.TrimSpace(currency))
	var result string
	if code == "" || code == "INR" {
		result = "₹" + applyIndianGrouping(intPart) + "." + decPart
	} else {
		result = code + " " + applyThousandsGrouping(intPart) + "." + decPart
	}
	if rounded.IsNegative() {
		result = "-" + result
	}
	return result
}

// FormatNullAmount is FormatAmount for an optional value; absent is "".
func FormatNullAmount(amount decimal.NullDecimal, currency string) string {
	if !amount.Valid {
		return ""
	}
	return FormatAmount(amount.Decimal, currency)
}

// FormatQuantity returns whole quantities without decimals and fractional ones
// with 2 decimal places. An absent quantity is "".
func FormatQuantity(qty decimal.NullDecimal) string {
	if !qty.Valid {
		return ""
	}
	if qty.Decimal.Equal(qty.Decimal.Truncate(0)) {
		return qty.Decimal.StringFixed(0)
	}
	return qty.Decimal.StringFixed(2)
}

// applyIndianGrouping inserts commas into an integer string using the
// Indian numbering system: the rightmost 3 digits form the first group,
// then every 2 digits form subsequent groups.
func applyIndianGrouping(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	remaining := s[:n-3]

	for len(remaining) > 2 {
		result = remaining[len(remaining)-2:] + "," + result
		remaining = remaining[:len(remaining)-2]
	}
	if len(remaining) > 0 {
		result = remaining + "," + result
	}

	return result
}

// applyThousandsGrouping inserts a comma every 3 digits from the right.
func applyThousandsGrouping(s string) string {
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
