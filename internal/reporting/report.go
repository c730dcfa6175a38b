// Package reporting splits categorized transactions into earnings and
// expenses, pivots them by month and builds the per-month and per-year
// views consumed by the CLI and the Sheets export.
//
// Sign convention: earnings rows are positive. Expense rows are negative,
// except rows of the refund category, which stay positive so they reduce
// the month's spend. Display totals for expenses are negated to positive.
package reporting

import (
	"log/slog"

	"budgetanalyser/internal/core"
)

type Options struct {
	// SignFallback classifies rows by amount sign alone when no row in the
	// input carries a category, e.g. statements reported before any
	// keyword mapping exists.
	SignFallback bool
}

// ReportService applies the cashflow partition to transactions.
type ReportService struct {
	cashflow core.CashflowMapping
	opts     Options
	logger   *slog.Logger
}

func NewReportService(cashflow core.CashflowMapping, opts Options, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		cashflow: cashflow.Normalized(),
		opts:     opts,
		logger:   logger.With("component", "reporting"),
	}
}

func (s *ReportService) Cashflow() core.CashflowMapping { return s.cashflow }

// Earnings returns positive rows of earnings categories, amounts made
// absolute.
func (s *ReportService) Earnings(txs []core.Transaction) []core.Transaction {
	fallback := s.useSignFallback(txs)
	var out []core.Transaction
	for _, tx := range txs {
		if !tx.Amount.IsPositive() {
			continue
		}
		if !fallback && !s.cashflow.IsEarning(tx.Category) {
			continue
		}
		tx.Amount = tx.Amount.Abs()
		out = append(out, tx)
	}
	return out
}

// Expenses returns rows that are negative, refunds, or in an expense
// category that is not also an earnings category. Refunds are kept
// positive; every other row is forced negative.
func (s *ReportService) Expenses(txs []core.Transaction) []core.Transaction {
	fallback := s.useSignFallback(txs)
	var out []core.Transaction
	for _, tx := range txs {
		refund := !fallback && s.cashflow.IsRefund(tx.Category)
		include := tx.Amount.IsNegative()
		if !fallback {
			include = include || refund || s.cashflow.IsExpense(tx.Category)
		}
		if !include {
			continue
		}
		if refund {
			tx.Amount = tx.Amount.Abs()
		} else {
			tx.Amount = tx.Amount.Abs().Neg()
		}
		out = append(out, tx)
	}
	return out
}

// ExpensesByCategory pivots Expenses(txs) by category and month.
func (s *ReportService) ExpensesByCategory(txs []core.Transaction) Pivot {
	return NewPivot(s.Expenses(txs), byCategory)
}

// ExpensesBySubCategory pivots Expenses(txs) by sub-category and month.
func (s *ReportService) ExpensesBySubCategory(txs []core.Transaction) Pivot {
	return NewPivot(s.Expenses(txs), bySubCategory)
}

func (s *ReportService) useSignFallback(txs []core.Transaction) bool {
	if !s.opts.SignFallback || len(txs) == 0 {
		return false
	}
	for _, tx := range txs {
		if tx.Category != "" {
			return false
		}
	}
	s.logger.Warn("No categorized rows, classifying by amount sign", "rows", len(txs))
	return true
}

func byCategory(tx core.Transaction) string    { return tx.Category }
func bySubCategory(tx core.Transaction) string { return tx.SubCategory }
