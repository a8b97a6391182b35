package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CurrencySymbol = "R$"
	decimalMark    = ","
	groupingMark   = "."
)

// Format renders d as a pt-BR currency string, e.g. "R$ 14.349,96".
func Format(d decimal.Decimal) string {
	rounded := d.Round(2)
	fixed := rounded.Abs().StringFixed(2)

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	out := CurrencySymbol + " " + group(intPart) + decimalMark + fracPart
	if rounded.IsNegative() {
		return "-" + out
	}
	return out
}

// IsDisplayString reports whether s is already a formatted currency value.
func IsDisplayString(s string) bool {
	return strings.Contains(s, CurrencySymbol)
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(groupingMark)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
