package reporting

import (
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/cache"
	"budgetanalyser/internal/core"
)

const yearCacheSize = 16

// YearlyStats is the yearly rollup. Expense amounts are positive.
type YearlyStats struct {
	Year                 int
	TotalEarnings        decimal.Decimal
	TotalExpenses        decimal.Decimal
	EarningSubCategories []core.CategoryAmount
	ExpenseSubCategories []core.CategoryAmount
	// Monthly has one row per calendar month, January first, zero-filled.
	Monthly []core.MonthOverview
}

// CategoryBreakdown is the category -> sub-category tree for a year.
type CategoryBreakdown struct {
	Earnings []core.CategoryNode
	Expenses []core.CategoryNode
}

// YearlySummary computes yearly rollups over a fixed report list. Results
// are memoized per year.
type YearlySummary struct {
	monthIndex
	stats      *cache.LRUCache[YearlyStats]
	breakdowns *cache.LRUCache[CategoryBreakdown]
	logger     *slog.Logger
}

func NewYearlySummary(reports []MonthlyReport, logger *slog.Logger) *YearlySummary {
	if logger == nil {
		logger = slog.Default()
	}
	return &YearlySummary{
		monthIndex: newMonthIndex(reports),
		stats:      cache.NewLRUCache[YearlyStats](yearCacheSize, 0),
		breakdowns: cache.NewLRUCache[CategoryBreakdown](yearCacheSize, 0),
		logger:     logger.With("component", "yearly_summary"),
	}
}

func (y *YearlySummary) Stats(year int) YearlyStats {
	return y.stats.GetOrCompute(strconv.Itoa(year), func() YearlyStats {
		y.logger.Debug("Computing yearly stats", "year", year)
		return y.computeStats(year)
	})
}

func (y *YearlySummary) CategoryBreakdown(year int) CategoryBreakdown {
	return y.breakdowns.GetOrCompute(strconv.Itoa(year), func() CategoryBreakdown {
		earnings, expenses := y.yearRows(year)
		return CategoryBreakdown{
			Earnings: categoryTree(earnings, false),
			Expenses: categoryTree(expenses, true),
		}
	})
}

func (y *YearlySummary) computeStats(year int) YearlyStats {
	stats := YearlyStats{
		Year:          year,
		TotalEarnings: decimal.Zero,
		TotalExpenses: decimal.Zero,
		Monthly:       make([]core.MonthOverview, 12),
	}
	for m := 1; m <= 12; m++ {
		stats.Monthly[m-1] = core.MonthOverview{
			Month:    core.YearMonth{Year: year, Month: m},
			Earnings: decimal.Zero,
			Expenses: decimal.Zero,
			Net:      decimal.Zero,
		}
	}

	for _, ym := range y.monthsOf(year) {
		mr := y.byMonth[ym]
		earned := sum(mr.Earnings)
		spent := sum(mr.Expenses).Neg()
		stats.TotalEarnings = stats.TotalEarnings.Add(earned)
		stats.TotalExpenses = stats.TotalExpenses.Add(spent)
		stats.Monthly[ym.Month-1] = core.MonthOverview{
			Month:    ym,
			Earnings: earned,
			Expenses: spent,
			Net:      earned.Sub(spent),
		}
	}

	earnings, expenses := y.yearRows(year)
	stats.EarningSubCategories = groupTotals(earnings, bySubCategory, false)
	stats.ExpenseSubCategories = groupTotals(expenses, bySubCategory, true)
	return stats
}

func (y *YearlySummary) yearRows(year int) (earnings, expenses []core.Transaction) {
	for _, ym := range y.monthsOf(year) {
		mr := y.byMonth[ym]
		earnings = append(earnings, mr.Earnings...)
		expenses = append(expenses, mr.Expenses...)
	}
	return earnings, expenses
}
