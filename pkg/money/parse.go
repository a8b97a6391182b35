// Package money parses and formats BRL amounts as they arrive from the
// analytics backend: raw numbers, plain numeric strings, or pt-BR display
// strings such as "R$ 14.349,96".
package money

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts v into an exact amount. It never fails: nil, empty or
// unreadable input yields zero.
//
// Strings are reduced to digits, separators and the minus sign. The last
// remaining separator is the decimal point and earlier ones are grouping
// marks, whichever of ',' and '.' they are:
//
//	Parse("14349,96")        -> 14349.96
//	Parse("R$ 14.349,96")    -> 14349.96
//	Parse("1,234,567.5")     -> 1234567.5
//	Parse("not a number")    -> 0
func Parse(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero
		}
		return *t
	case string:
		return ParseString(t)
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return ParseString(t.String())
		}
		return d
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case int:
		return decimal.NewFromInt(int64(t))
	case int32:
		return decimal.NewFromInt32(t)
	case int64:
		return decimal.NewFromInt(t)
	case uint:
		return decimal.NewFromUint64(uint64(t))
	case uint32:
		return decimal.NewFromUint64(uint64(t))
	case uint64:
		return decimal.NewFromUint64(t)
	default:
		return decimal.Zero
	}
}

// ParseString applies the locale-agnostic separator rule described on Parse.
func ParseString(s string) decimal.Decimal {
	var b strings.Builder
	negative := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		case r == '-':
			negative = true
		}
	}

	cleaned := b.String()
	intPart, fracPart := cleaned, ""
	if sep := strings.LastIndexAny(cleaned, ",."); sep >= 0 {
		intPart, fracPart = cleaned[:sep], cleaned[sep+1:]
	}
	intPart = strings.NewReplacer(",", "", ".", "").Replace(intPart)
	if intPart == "" && fracPart == "" {
		return decimal.Zero
	}
	if intPart == "" {
		intPart = "0"
	}

	number := intPart
	if fracPart != "" {
		number += "." + fracPart
	}
	d, err := decimal.NewFromString(number)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// ParseCount coerces v into a non-negative integer. Fractions are truncated
// and anything negative or unreadable becomes zero.
func ParseCount(v any) int64 {
	d := Parse(v)
	if d.IsNegative() {
		return 0
	}
	return d.IntPart()
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
