// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal and persisted as integer cents,
// which keeps the store's uniqueness key exact.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a statement amount cell into a signed decimal.
//
// It accepts currency symbols, thousands separators, a leading sign and
// accounting-style parentheses for negatives. A lone comma followed by
// exactly two digits is read as a decimal comma.
//
// Examples:
//
//	ParseAmount("-4.50")     -> -4.50
//	ParseAmount("$1,234.56") -> 1234.56
//	ParseAmount("(12.00)")   -> -12.00
//	ParseAmount("12,34")     -> 12.34
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)

	if strings.Contains(s, ",") {
		last := strings.LastIndex(s, ",")
		if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 && len(s)-last-1 == 2 {
			s = s[:last] + "." + s[last+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseAmountOrZero treats blank cells as zero. Used for debit/credit pairs.
func ParseAmountOrZero(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}

// ToCents rounds half away from zero to two places and returns integer cents.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(hundred).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
