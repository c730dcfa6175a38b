// Package normalizer converts raw bank exports into canonical transactions.
//
// This file holds the per-bank sign adjustment strategies. Some banks export
// charges as positive numbers; their adjuster flips the sign so that a
// negative amount always means money leaving the account.
package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SignAdjuster is the strategy interface for per-bank sign conventions.
type SignAdjuster interface {
	Adjust(amount decimal.Decimal) decimal.Decimal
}

// SignAdjusterFunc adapts a plain function to SignAdjuster.
type SignAdjusterFunc func(decimal.Decimal) decimal.Decimal

func (f SignAdjusterFunc) Adjust(amount decimal.Decimal) decimal.Decimal {
	return f(amount)
}

// Identity leaves amounts untouched. Used for unknown accounts.
var Identity = SignAdjusterFunc(func(a decimal.Decimal) decimal.Decimal { return a })

// Invert multiplies amounts by -1.
var Invert = SignAdjusterFunc(func(a decimal.Decimal) decimal.Decimal { return a.Neg() })

// DefaultSignAdjusters returns a fresh copy of the built-in bank table.
func DefaultSignAdjusters() map[string]SignAdjuster {
	return map[string]SignAdjuster{
		"citi":     Invert,
		"discover": Invert,
	}
}

func accountKey(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}
