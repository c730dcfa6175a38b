package services

import (
	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// SavingsMetrics summarises how much of the earnings were kept.
type SavingsMetrics struct {
	TotalEarnings  decimal.Decimal
	TotalExpenses  decimal.Decimal // absolute
	NetSavings     decimal.Decimal
	SavingsRate    decimal.Decimal // percent of earnings, 0 when nothing was earned
	MonthlyAverage decimal.Decimal
	MonthsOfData   int
}

// MonthSavings is one calendar month of a savings year.
type MonthSavings struct {
	Month    core.YearMonth
	Earnings decimal.Decimal
	Expenses decimal.Decimal
	Savings  decimal.Decimal
	Rate     decimal.Decimal
}

// Savings computes metrics over earnings and expense rows. A non-nil year
// restricts both to that year. The monthly average divides by the distinct
// months seen in either list, at least one.
func Savings(earnings, expenses []core.Transaction, year *int) SavingsMetrics {
	months := map[core.YearMonth]struct{}{}
	total := func(txs []core.Transaction) decimal.Decimal {
		sum := decimal.Zero
		for _, tx := range txs {
			if year != nil && (!tx.Date.Valid() || tx.Date.Year() != *year) {
				continue
			}
			if tx.Date.Valid() {
				months[tx.Date.YearMonth()] = struct{}{}
			}
			sum = sum.Add(tx.Amount)
		}
		return sum
	}

	m := SavingsMetrics{
		TotalEarnings: total(earnings),
		TotalExpenses: total(expenses).Abs(),
		MonthsOfData:  max(len(months), 1),
	}
	m.NetSavings = m.TotalEarnings.Sub(m.TotalExpenses)
	m.SavingsRate = rate(m.NetSavings, m.TotalEarnings)
	m.MonthlyAverage = m.NetSavings.Div(decimal.NewFromInt(int64(m.MonthsOfData)))
	return m
}

// MonthlySavings returns twelve rows for year, zero-filled.
func MonthlySavings(earnings, expenses []core.Transaction, year int) []MonthSavings {
	out := make([]MonthSavings, 12)
	for i := range out {
		out[i] = MonthSavings{
			Month:    core.YearMonth{Year: year, Month: i + 1},
			Earnings: decimal.Zero,
			Expenses: decimal.Zero,
		}
	}
	add := func(txs []core.Transaction, into func(*MonthSavings, decimal.Decimal)) {
		for _, tx := range txs {
			if tx.Date.Valid() && tx.Date.Year() == year {
				into(&out[tx.Date.Month()-1], tx.Amount)
			}
		}
	}
	add(earnings, func(m *MonthSavings, amt decimal.Decimal) { m.Earnings = m.Earnings.Add(amt) })
	add(expenses, func(m *MonthSavings, amt decimal.Decimal) { m.Expenses = m.Expenses.Add(amt) })

	for i := range out {
		out[i].Expenses = out[i].Expenses.Abs()
		out[i].Savings = out[i].Earnings.Sub(out[i].Expenses)
		out[i].Rate = rate(out[i].Savings, out[i].Earnings)
	}
	return out
}

func rate(net, earned decimal.Decimal) decimal.Decimal {
	if !earned.IsPositive() {
		return decimal.Zero
	}
	return net.Div(earned).Mul(hundred)
}
