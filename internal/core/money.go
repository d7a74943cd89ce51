// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings,
// converting between cents and currency units, and rendering amounts for
// display.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "₹"

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64 / 100)) {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0).IntPart()
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseAmount reads a numeric amount leniently. Anything that is not a
// number (including an empty string) reads as zero.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// "1,234.50" uses commas for grouping; "12,50" uses one as the decimal mark
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return CoerceAmount(d.InexactFloat64())
}

// CoerceAmount maps non-finite values to zero.
func CoerceAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ToCents converts currency units to cents, rounding half away from zero.
func ToCents(v float64) int64 {
	return decimal.NewFromFloat(CoerceAmount(v)).Shift(2).Round(0).IntPart()
}

// FromCents converts cents to currency units.
func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// FormatCurrency renders n as symbol followed by the comma-grouped value with
// at most two fractional digits, e.g. FormatCurrency(1234.5, "₹") = "₹1,234.5".
// A negative sign goes before the symbol. Non-finite values render as
// symbol + "0".
func FormatCurrency(n float64, symbol string) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return symbol + "0"
	}
	rounded := decimal.NewFromFloat(n).Round(2).InexactFloat64()
	if rounded == 0 {
		// drops the sign of -0
		rounded = 0
	}
	if rounded < 0 {
		return "-" + symbol + humanize.CommafWithDigits(-rounded, 2)
	}
	return symbol + humanize.CommafWithDigits(rounded, 2)
}

// FormatPercent renders a ratio in [0,100] with no fractional digits.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(math.Round(CoerceAmount(p)), 'f', 0, 64) + "%"
}
