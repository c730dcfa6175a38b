package reporting

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(date, desc, amount, sub, cat string) core.Transaction {
	var d core.Date
	if date != "" {
		ym, _ := core.ParseYearMonth(date[:7])
		day := 0
		for _, c := range date[8:] {
			day = day*10 + int(c-'0')
		}
		d = core.NewDate(ym.Year, ym.Month, day)
	}
	return core.Transaction{
		Date:        d,
		Description: desc,
		Amount:      dec(amount),
		FromAccount: "chase",
		SubCategory: sub,
		Category:    cat,
	}
}

func descriptions(txs []core.Transaction) string {
	var out []string
	for _, t := range txs {
		out = append(out, t.Description+"="+t.Amount.StringFixed(2))
	}
	return strings.Join(out, ",")
}

func TestEarningsAndExpensesSplit(t *testing.T) {
	svc := NewReportService(core.DefaultCashflowMapping(), Options{}, discard())
	txs := []core.Transaction{
		tx("2025-01-01", "Payroll", "3000", "Salary", "Income"),
		tx("2025-01-02", "Payroll reversal", "-100", "Salary", "Income"),
		tx("2025-01-03", "Grocer", "-80.25", "Groceries", "Needs"),
		tx("2025-01-04", "Card credit", "25", "Groceries", "Needs"),
		tx("2025-01-05", "Store refund", "-15", "Refund", "Refunded_money"),
		tx("2025-01-06", "Mystery", "-9.99", "", ""),
		tx("2025-01-07", "Gift", "50", "", ""),
	}

	earnings := svc.Earnings(txs)
	if got := descriptions(earnings); got != "Payroll=3000.00" {
		t.Errorf("Earnings() = %s", got)
	}

	expenses := svc.Expenses(txs)
	want := "Payroll reversal=-100.00,Grocer=-80.25,Card credit=-25.00,Store refund=15.00,Mystery=-9.99"
	if got := descriptions(expenses); got != want {
		t.Errorf("Expenses() = %s\nwant       %s", got, want)
	}

	// Input is not mutated.
	if !txs[3].Amount.Equal(dec("25")) {
		t.Errorf("Expenses() mutated its input")
	}
}

func TestPartitionCompleteness(t *testing.T) {
	svc := NewReportService(core.DefaultCashflowMapping(), Options{}, discard())
	txs := []core.Transaction{
		tx("2025-01-01", "Payroll", "3000", "Salary", "Income"),
		tx("2025-01-02", "Bonus", "200", "Bonus", "Unplanned_income"),
		tx("2025-01-03", "Rent", "-1500", "Rent", "Needs"),
		tx("2025-01-04", "Dinner", "-60", "Dining", "Flexible"),
		tx("2025-01-05", "Refund", "20", "Refund", "Refunded_money"),
	}
	seen := map[string]int{}
	for _, e := range svc.Earnings(txs) {
		seen[e.Description]++
	}
	for _, e := range svc.Expenses(txs) {
		seen[e.Description]++
	}
	for _, in := range txs {
		if seen[in.Description] != 1 {
			t.Errorf("%s counted %d times, want exactly once", in.Description, seen[in.Description])
		}
	}
}

func TestCustomCashflowOverlap(t *testing.T) {
	cashflow := core.CashflowMapping{
		Earnings: []string{"Income", "Transfers"},
		Expenses: []string{"Needs", "Transfers"},
	}
	svc := NewReportService(cashflow, Options{}, discard())
	txs := []core.Transaction{
		tx("2025-02-01", "In", "100", "", "Transfers"),
		tx("2025-02-02", "Out", "-100", "", "Transfers"),
	}
	if got := descriptions(svc.Earnings(txs)); got != "In=100.00" {
		t.Errorf("Earnings() = %s", got)
	}
	// A category in both partitions only becomes an expense when negative.
	if got := descriptions(svc.Expenses(txs)); got != "Out=-100.00" {
		t.Errorf("Expenses() = %s", got)
	}
	if !svc.Cashflow().IsRefund(core.RefundCategory) {
		t.Errorf("default refund category should be applied")
	}
}

func TestSignFallback(t *testing.T) {
	uncategorized := []core.Transaction{
		tx("2025-01-01", "Deposit", "500", "", ""),
		tx("2025-01-02", "Shop", "-20", "", ""),
	}

	tests := []struct {
		name         string
		opts         Options
		txs          []core.Transaction
		wantEarnings string
		wantExpenses string
	}{
		{"disabled", Options{}, uncategorized, "", "Shop=-20.00"},
		{"enabled", Options{SignFallback: true}, uncategorized, "Deposit=500.00", "Shop=-20.00"},
		{
			"enabled but some rows categorized",
			Options{SignFallback: true},
			append([]core.Transaction{tx("2025-01-03", "Payroll", "10", "Salary", "Income")}, uncategorized...),
			"Payroll=10.00",
			"Shop=-20.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewReportService(core.DefaultCashflowMapping(), tt.opts, discard())
			if got := descriptions(svc.Earnings(tt.txs)); got != tt.wantEarnings {
				t.Errorf("Earnings() = %q, want %q", got, tt.wantEarnings)
			}
			if got := descriptions(svc.Expenses(tt.txs)); got != tt.wantExpenses {
				t.Errorf("Expenses() = %q, want %q", got, tt.wantExpenses)
			}
		})
	}
}

func TestPivot(t *testing.T) {
	svc := NewReportService(core.DefaultCashflowMapping(), Options{}, discard())
	txs := []core.Transaction{
		tx("2025-02-03", "Grocer", "-50", "Groceries", "Needs"),
		tx("2025-01-03", "Grocer", "-40", "Groceries", "Needs"),
		tx("2025-01-09", "Bar", "-10.50", "Drinks", "Flexible"),
		tx("2025-01-10", "Refund", "5", "Refund", "Refunded_money"),
		tx("", "Undated", "-99", "Groceries", "Needs"),
	}

	p := svc.ExpensesByCategory(txs)
	if strings.Join(p.Rows, ",") != "Flexible,Needs,Refunded_money" {
		t.Fatalf("rows = %v", p.Rows)
	}
	jan, feb := core.YearMonth{Year: 2025, Month: 1}, core.YearMonth{Year: 2025, Month: 2}
	if len(p.Columns) != 2 || p.Columns[0] != jan || p.Columns[1] != feb {
		t.Fatalf("columns = %v", p.Columns)
	}
	if v, ok := p.Value("Needs", jan); !ok || !v.Equal(dec("-40")) {
		t.Errorf("Needs/Jan = %v, %v", v, ok)
	}
	if _, ok := p.Value("Flexible", feb); ok {
		t.Errorf("Flexible/Feb should have no cell")
	}
	if !p.RowTotals["Needs"].Equal(dec("-90")) || !p.ColumnTotals[jan].Equal(dec("-45.5")) || !p.GrandTotal.Equal(dec("-95.5")) {
		t.Errorf("margins = %v %v %v", p.RowTotals["Needs"], p.ColumnTotals[jan], p.GrandTotal)
	}

	table := p.Table("category")
	want := [][]string{
		{"category", "2025-01", "2025-02", "Total"},
		{"Flexible", "-10.50", "", "-10.50"},
		{"Needs", "-40.00", "-50.00", "-90.00"},
		{"Refunded_money", "5.00", "", "5.00"},
		{"Total", "-45.50", "-50.00", "-95.50"},
	}
	if len(table) != len(want) {
		t.Fatalf("table has %d rows, want %d", len(table), len(want))
	}
	for i := range want {
		if strings.Join(table[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, table[i], want[i])
		}
	}

	sub := svc.ExpensesBySubCategory(txs)
	if strings.Join(sub.Rows, ",") != "Drinks,Groceries,Refund" {
		t.Errorf("sub-category rows = %v", sub.Rows)
	}

	empty := svc.ExpensesByCategory(nil)
	if !empty.Empty() || empty.Table("category") != nil {
		t.Errorf("empty pivot should render nothing")
	}
}
