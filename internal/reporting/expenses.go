package reporting

import (
	"github.com/shopspring/decimal"

	"budgetanalyser/internal/cache"
	"budgetanalyser/internal/core"
)

const monthCacheSize = 64

// ExpensesMonth is one month of an expense year breakdown.
type ExpensesMonth struct {
	Month      core.YearMonth
	Total      decimal.Decimal
	Categories []core.CategoryNode
}

// ExpensesStats answers expense queries over a report list. Totals and
// breakdown amounts are positive; listed transactions keep their signs.
type ExpensesStats struct {
	monthIndex
	totals     *cache.LRUCache[decimal.Decimal]
	categories *cache.LRUCache[[]core.CategoryNode]
}

func NewExpensesStats(reports []MonthlyReport) *ExpensesStats {
	return &ExpensesStats{
		monthIndex: newMonthIndex(reports),
		totals:     cache.NewLRUCache[decimal.Decimal](monthCacheSize, 0),
		categories: cache.NewLRUCache[[]core.CategoryNode](monthCacheSize, 0),
	}
}

func (s *ExpensesStats) TotalForMonth(ym core.YearMonth) decimal.Decimal {
	return s.totals.GetOrCompute(ym.String(), func() decimal.Decimal {
		return sum(s.expenses(ym)).Neg()
	})
}

func (s *ExpensesStats) CategoryBreakdown(ym core.YearMonth) []core.CategoryNode {
	return s.categories.GetOrCompute(ym.String(), func() []core.CategoryNode {
		return categoryTree(s.expenses(ym), true)
	})
}

// Transactions lists the month's expense rows matching f. f.Month is
// ignored.
func (s *ExpensesStats) Transactions(ym core.YearMonth, f Filter) []core.Transaction {
	f.Month = core.YearMonth{}
	var out []core.Transaction
	for _, tx := range s.expenses(ym) {
		if f.match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (s *ExpensesStats) TotalForYear(year int) decimal.Decimal {
	total := decimal.Zero
	for _, ym := range s.monthsOf(year) {
		total = total.Add(s.TotalForMonth(ym))
	}
	return total
}

func (s *ExpensesStats) YearBreakdown(year int) []ExpensesMonth {
	var out []ExpensesMonth
	for _, ym := range s.monthsOf(year) {
		out = append(out, ExpensesMonth{
			Month:      ym,
			Total:      s.TotalForMonth(ym),
			Categories: s.CategoryBreakdown(ym),
		})
	}
	return out
}

func (s *ExpensesStats) TransactionsForYear(year int, f Filter) []core.Transaction {
	return s.collect(expensesOf, func(tx core.Transaction) bool {
		return tx.Date.Year() == year && f.match(tx)
	})
}

func (s *ExpensesStats) TotalForRange(start, end core.Date) decimal.Decimal {
	return sum(s.TransactionsForRange(start, end, Filter{})).Neg()
}

func (s *ExpensesStats) CategoryBreakdownForRange(start, end core.Date) []core.CategoryNode {
	return categoryTree(s.TransactionsForRange(start, end, Filter{}), true)
}

// TransactionsForRange lists expense rows dated within [start, end].
func (s *ExpensesStats) TransactionsForRange(start, end core.Date, f Filter) []core.Transaction {
	return s.collect(expensesOf, func(tx core.Transaction) bool {
		return inRange(tx.Date, start, end) && f.match(tx)
	})
}

func (s *ExpensesStats) expenses(ym core.YearMonth) []core.Transaction {
	if mr, ok := s.byMonth[ym]; ok {
		return mr.Expenses
	}
	return nil
}

func expensesOf(mr *MonthlyReport) []core.Transaction { return mr.Expenses }
func earningsOf(mr *MonthlyReport) []core.Transaction { return mr.Earnings }
