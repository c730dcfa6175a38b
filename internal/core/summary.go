package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by label.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CategoryNode is a category with its sub-category breakdown.
type CategoryNode struct {
	Name     string
	Amount   decimal.Decimal
	Children []CategoryAmount
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Month    YearMonth
	Earnings decimal.Decimal
	Expenses decimal.Decimal // positive for display
	Net      decimal.Decimal
}
