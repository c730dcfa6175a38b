package reporting

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// UncategorizedLabel replaces an empty category or sub-category in
// breakdowns.
const UncategorizedLabel = "(Uncategorized)"

// Filter narrows a transaction listing. Zero fields match everything.
type Filter struct {
	Month       core.YearMonth
	Category    string
	SubCategory string
}

func (f Filter) match(tx core.Transaction) bool {
	if f.Month != (core.YearMonth{}) && !f.Month.Contains(tx.Date) {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	return f.SubCategory == "" || tx.SubCategory == f.SubCategory
}

// monthIndex gives month lookup over a report list.
type monthIndex struct {
	byMonth map[core.YearMonth]*MonthlyReport
}

func newMonthIndex(reports []MonthlyReport) monthIndex {
	ix := monthIndex{byMonth: make(map[core.YearMonth]*MonthlyReport, len(reports))}
	for i := range reports {
		ix.byMonth[reports[i].Month] = &reports[i]
	}
	return ix
}

func (ix monthIndex) AvailableMonths() []core.YearMonth {
	out := make([]core.YearMonth, 0, len(ix.byMonth))
	for ym := range ix.byMonth {
		out = append(out, ym)
	}
	slices.SortFunc(out, compareYearMonth)
	return out
}

func (ix monthIndex) AvailableYears() []int {
	var years []int
	for ym := range ix.byMonth {
		if !slices.Contains(years, ym.Year) {
			years = append(years, ym.Year)
		}
	}
	slices.Sort(years)
	return years
}

func (ix monthIndex) MonthLabel(ym core.YearMonth) string { return ym.Label() }

func (ix monthIndex) monthsOf(year int) []core.YearMonth {
	var out []core.YearMonth
	for _, ym := range ix.AvailableMonths() {
		if ym.Year == year {
			out = append(out, ym)
		}
	}
	return out
}

// collect gathers rows chosen by pick from every report, in month order.
func (ix monthIndex) collect(pick func(*MonthlyReport) []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, ym := range ix.AvailableMonths() {
		for _, tx := range pick(ix.byMonth[ym]) {
			if keep(tx) {
				out = append(out, tx)
			}
		}
	}
	return out
}

func inRange(d, start, end core.Date) bool {
	return d.Valid() && !d.Time.Before(start.Time) && !d.Time.After(end.Time)
}

func sum(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

func labelOr(s string) string {
	if s == "" {
		return UncategorizedLabel
	}
	return s
}

// sortByAmountDesc orders by amount descending, then name.
func sortByAmountDesc(items []core.CategoryAmount) {
	slices.SortFunc(items, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// groupTotals sums txs by label(tx), negating when negate is set so
// expense sums read positive.
func groupTotals(txs []core.Transaction, label func(core.Transaction) string, negate bool) []core.CategoryAmount {
	totals := map[string]decimal.Decimal{}
	var order []string
	for _, tx := range txs {
		name := labelOr(label(tx))
		if _, ok := totals[name]; !ok {
			order = append(order, name)
		}
		amt := tx.Amount
		if negate {
			amt = amt.Neg()
		}
		totals[name] = totals[name].Add(amt)
	}
	out := make([]core.CategoryAmount, 0, len(order))
	for _, name := range order {
		out = append(out, core.CategoryAmount{Name: name, Amount: totals[name]})
	}
	sortByAmountDesc(out)
	return out
}

// categoryTree builds category nodes with their sub-category children,
// both sorted by amount descending.
func categoryTree(txs []core.Transaction, negate bool) []core.CategoryNode {
	byCat := map[string][]core.Transaction{}
	for _, tx := range txs {
		name := labelOr(tx.Category)
		byCat[name] = append(byCat[name], tx)
	}
	var nodes []core.CategoryNode
	for _, cat := range groupTotals(txs, byCategory, negate) {
		nodes = append(nodes, core.CategoryNode{
			Name:     cat.Name,
			Amount:   cat.Amount,
			Children: groupTotals(byCat[cat.Name], bySubCategory, negate),
		})
	}
	return nodes
}
