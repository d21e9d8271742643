// Package core provides money parsing and display helpers.
//
// Amounts are float64 throughout aggregation. Rounding to two fractional
// digits happens here, at render time only.
package core

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayCurrency is the ISO code used when rendering amounts.
const DisplayCurrency = money.USD

// ParseAmount converts user input to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and anything that is not a plain decimal are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.GreaterThan(decimal.NewFromFloat(MaxAmount)) {
		return 0, ErrInvalidAmount
	}
	v := d.InexactFloat64()
	if CheckAmount(v) != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// RoundAmount rounds v to two fractional digits, half away from zero.
func RoundAmount(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// NotANumber is what the formatters render for NaN and infinities.
const NotANumber = "n/a"

// maxCents is the largest cent count go-money can hold.
var maxCents = decimal.NewFromInt(math.MaxInt64)

// FormatAmount renders v as a currency string, e.g. "$1,234.50".
// Values whose cents overflow int64 are grouped from the decimal itself.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotANumber
	}
	cents := RoundAmount(v).Shift(2)
	if cents.Abs().LessThanOrEqual(maxCents) {
		return money.New(cents.IntPart(), DisplayCurrency).Display()
	}
	return formatLarge(RoundAmount(v))
}

func formatLarge(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// FormatPercent renders p with one fractional digit, e.g. "33.3%".
func FormatPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return NotANumber
	}
	return decimal.NewFromFloat(p).Round(1).StringFixed(1) + "%"
}
