package reporting

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// EarningsMonth is one month of an earnings year breakdown.
type EarningsMonth struct {
	Month         core.YearMonth
	Total         decimal.Decimal
	SubCategories []core.CategoryAmount
}

// GoalComparison sets one sub-category's earnings against its goal.
type GoalComparison struct {
	SubCategory string
	Expected    decimal.Decimal
	Actual      decimal.Decimal
	Difference  decimal.Decimal // Actual - Expected
	HasGoal     bool
}

// EarningsGoals resolves the effective goals of a month, month goals
// overriding ALL goals.
type EarningsGoals interface {
	EarningsGoalMap(ctx context.Context, yearMonth string) (map[string]decimal.Decimal, error)
}

// EarningsStats answers earnings queries over a report list.
type EarningsStats struct {
	monthIndex
}

func NewEarningsStats(reports []MonthlyReport) *EarningsStats {
	return &EarningsStats{monthIndex: newMonthIndex(reports)}
}

func (s *EarningsStats) TotalForMonth(ym core.YearMonth) decimal.Decimal {
	return sum(s.earnings(ym))
}

func (s *EarningsStats) SubCategoryTotals(ym core.YearMonth) []core.CategoryAmount {
	return groupTotals(s.earnings(ym), bySubCategory, false)
}

func (s *EarningsStats) Transactions(ym core.YearMonth, subCategory string) []core.Transaction {
	f := Filter{SubCategory: subCategory}
	var out []core.Transaction
	for _, tx := range s.earnings(ym) {
		if f.match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (s *EarningsStats) TotalForYear(year int) decimal.Decimal {
	total := decimal.Zero
	for _, ym := range s.monthsOf(year) {
		total = total.Add(s.TotalForMonth(ym))
	}
	return total
}

func (s *EarningsStats) YearBreakdown(year int) []EarningsMonth {
	var out []EarningsMonth
	for _, ym := range s.monthsOf(year) {
		out = append(out, EarningsMonth{
			Month:         ym,
			Total:         s.TotalForMonth(ym),
			SubCategories: s.SubCategoryTotals(ym),
		})
	}
	return out
}

func (s *EarningsStats) TransactionsForYear(year int, f Filter) []core.Transaction {
	return s.collect(earningsOf, func(tx core.Transaction) bool {
		return tx.Date.Year() == year && f.match(tx)
	})
}

func (s *EarningsStats) TotalForRange(start, end core.Date) decimal.Decimal {
	return sum(s.TransactionsForRange(start, end, ""))
}

func (s *EarningsStats) SubCategoryTotalsForRange(start, end core.Date) []core.CategoryAmount {
	return groupTotals(s.TransactionsForRange(start, end, ""), bySubCategory, false)
}

func (s *EarningsStats) TransactionsForRange(start, end core.Date, subCategory string) []core.Transaction {
	f := Filter{SubCategory: subCategory}
	return s.collect(earningsOf, func(tx core.Transaction) bool {
		return inRange(tx.Date, start, end) && f.match(tx)
	})
}

// CompareGoals lists every sub-category that has a goal or earnings in ym,
// ordered by name.
func (s *EarningsStats) CompareGoals(ctx context.Context, ym core.YearMonth, goals EarningsGoals) ([]GoalComparison, error) {
	expected, err := goals.EarningsGoalMap(ctx, ym.String())
	if err != nil {
		return nil, fmt.Errorf("earnings goals for %s: %w", ym, err)
	}

	actual := map[string]decimal.Decimal{}
	for _, ca := range s.SubCategoryTotals(ym) {
		actual[ca.Name] = ca.Amount
	}

	var names []string
	for name := range expected {
		names = append(names, name)
	}
	for name := range actual {
		if _, ok := expected[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	out := make([]GoalComparison, 0, len(names))
	for _, name := range names {
		exp, hasGoal := expected[name]
		if !hasGoal {
			exp = decimal.Zero
		}
		act, ok := actual[name]
		if !ok {
			act = decimal.Zero
		}
		out = append(out, GoalComparison{
			SubCategory: name,
			Expected:    exp,
			Actual:      act,
			Difference:  act.Sub(exp),
			HasGoal:     hasGoal,
		})
	}
	return out, nil
}

func (s *EarningsStats) earnings(ym core.YearMonth) []core.Transaction {
	if mr, ok := s.byMonth[ym]; ok {
		return mr.Earnings
	}
	return nil
}
