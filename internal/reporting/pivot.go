package reporting

import (
	"slices"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// TotalLabel names the margin row and column of a pivot.
const TotalLabel = "Total"

// Pivot is a label x month sum table with Total margins. Only (label,
// month) pairs that had at least one row have a cell.
type Pivot struct {
	Rows         []string
	Columns      []core.YearMonth
	cells        map[string]map[core.YearMonth]decimal.Decimal
	RowTotals    map[string]decimal.Decimal
	ColumnTotals map[core.YearMonth]decimal.Decimal
	GrandTotal   decimal.Decimal
}

// NewPivot sums txs by key(tx) and month. Rows without a valid date are
// skipped. Row labels and months are sorted ascending.
func NewPivot(txs []core.Transaction, key func(core.Transaction) string) Pivot {
	p := Pivot{
		cells:        map[string]map[core.YearMonth]decimal.Decimal{},
		RowTotals:    map[string]decimal.Decimal{},
		ColumnTotals: map[core.YearMonth]decimal.Decimal{},
	}
	for _, tx := range txs {
		if !tx.Date.Valid() {
			continue
		}
		label, ym := key(tx), tx.Date.YearMonth()

		row, ok := p.cells[label]
		if !ok {
			row = map[core.YearMonth]decimal.Decimal{}
			p.cells[label] = row
			p.Rows = append(p.Rows, label)
		}
		if _, ok := p.ColumnTotals[ym]; !ok {
			p.Columns = append(p.Columns, ym)
		}
		row[ym] = row[ym].Add(tx.Amount)
		p.RowTotals[label] = p.RowTotals[label].Add(tx.Amount)
		p.ColumnTotals[ym] = p.ColumnTotals[ym].Add(tx.Amount)
		p.GrandTotal = p.GrandTotal.Add(tx.Amount)
	}
	slices.Sort(p.Rows)
	slices.SortFunc(p.Columns, compareYearMonth)
	return p
}

// Value returns the cell for (label, month).
func (p Pivot) Value(label string, ym core.YearMonth) (decimal.Decimal, bool) {
	v, ok := p.cells[label][ym]
	return v, ok
}

func (p Pivot) Empty() bool { return len(p.Rows) == 0 }

// Table renders the pivot with a header row, the Total column last and
// the Total row last. Missing cells are blank.
func (p Pivot) Table(index string) [][]string {
	if p.Empty() {
		return nil
	}
	header := make([]string, 0, len(p.Columns)+2)
	header = append(header, index)
	for _, ym := range p.Columns {
		header = append(header, ym.String())
	}
	header = append(header, TotalLabel)

	out := [][]string{header}
	for _, label := range p.Rows {
		row := []string{label}
		for _, ym := range p.Columns {
			if v, ok := p.Value(label, ym); ok {
				row = append(row, v.StringFixed(2))
			} else {
				row = append(row, "")
			}
		}
		out = append(out, append(row, p.RowTotals[label].StringFixed(2)))
	}

	total := []string{TotalLabel}
	for _, ym := range p.Columns {
		total = append(total, p.ColumnTotals[ym].StringFixed(2))
	}
	return append(out, append(total, p.GrandTotal.StringFixed(2)))
}

func compareYearMonth(a, b core.YearMonth) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}
