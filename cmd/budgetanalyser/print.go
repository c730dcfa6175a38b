package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
	"budgetanalyser/internal/reporting"
	"budgetanalyser/internal/services"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func printRows(w io.Writer, rows [][]string) {
	tw := table(w)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t")+"\t")
	}
	tw.Flush()
}

func printMonthlyReport(w io.Writer, r reporting.MonthlyReport) {
	fmt.Fprintf(w, "== %s ==\n", r.Month.Label())
	if r.ExpensesByCategory.Empty() {
		fmt.Fprintln(w, "No expenses.")
	} else {
		printRows(w, r.ExpensesByCategory.Table("category"))
		fmt.Fprintln(w)
		printRows(w, r.ExpensesBySubCategory.Table("sub_category"))
	}
	fmt.Fprintln(w)
}

func printRange(w io.Writer, reports []reporting.MonthlyReport, start, end core.Date) {
	expenses := reporting.NewExpensesStats(reports)
	earnings := reporting.NewEarningsStats(reports)

	fmt.Fprintf(w, "%s .. %s\n", start, end)
	fmt.Fprintf(w, "earnings: %s  expenses: %s\n\n",
		money(earnings.TotalForRange(start, end)), money(expenses.TotalForRange(start, end)))

	tw := table(w)
	fmt.Fprintln(tw, "category\tsub_category\tamount\t")
	for _, node := range expenses.CategoryBreakdownForRange(start, end) {
		fmt.Fprintf(tw, "%s\t\t%s\t\n", node.Name, money(node.Amount))
		for _, c := range node.Children {
			fmt.Fprintf(tw, "\t%s\t%s\t\n", c.Name, money(c.Amount))
		}
	}
	for _, c := range earnings.SubCategoryTotalsForRange(start, end) {
		fmt.Fprintf(tw, "earnings\t%s\t%s\t\n", c.Name, money(c.Amount))
	}
	tw.Flush()
}

func printYearly(w io.Writer, s reporting.YearlyStats, b reporting.CategoryBreakdown) {
	fmt.Fprintf(w, "== %d ==\n", s.Year)
	fmt.Fprintf(w, "earnings: %s  expenses: %s  net: %s\n\n",
		money(s.TotalEarnings), money(s.TotalExpenses), money(s.TotalEarnings.Sub(s.TotalExpenses)))

	tw := table(w)
	fmt.Fprintln(tw, "month\tearnings\texpenses\tnet\t")
	for _, m := range s.Monthly {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", m.Month.Label(), money(m.Earnings), money(m.Expenses), money(m.Net))
	}
	tw.Flush()
	fmt.Fprintln(w)

	printTree(w, "expenses", b.Expenses)
	printTree(w, "earnings", b.Earnings)
}

func printTree(w io.Writer, title string, nodes []core.CategoryNode) {
	if len(nodes) == 0 {
		return
	}
	tw := table(w)
	fmt.Fprintf(tw, "%s\t\t\t\n", title)
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t\t%s\t\n", n.Name, money(n.Amount))
		for _, c := range n.Children {
			fmt.Fprintf(tw, "\t%s\t%s\t\n", c.Name, money(c.Amount))
		}
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printReconciliation(w io.Writer, r reporting.Reconciliation) {
	fmt.Fprintf(w, "== %s ==\n", r.Month.Label())
	fmt.Fprintf(w, "payments made: %s  confirmations: %s  difference: %s\n\n",
		money(r.TotalPaymentsMade), money(r.TotalPaymentConfirmations), money(r.Difference))
	tw := table(w)
	fmt.Fprintln(tw, "kind\tdate\taccount\tdescription\tamount\t")
	for _, tx := range r.PaymentsMade {
		fmt.Fprintf(tw, "made\t%s\t%s\t%s\t%s\t\n", tx.Date, tx.FromAccount, tx.Description, money(tx.Amount))
	}
	for _, tx := range r.PaymentConfirmations {
		fmt.Fprintf(tw, "confirmed\t%s\t%s\t%s\t%s\t\n", tx.Date, tx.FromAccount, tx.Description, money(tx.Amount))
	}
	tw.Flush()
}

func printBudget(w io.Writer, ym core.YearMonth, rows []services.BudgetProgress) {
	fmt.Fprintf(w, "== %s ==\n", ym.Label())
	if len(rows) == 0 {
		fmt.Fprintln(w, "No budgets.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "category\tlimit\tspent\tremaining\t%\tstatus\tscope\t")
	for _, p := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Category, money(p.Limit), money(p.Spent), money(p.Remaining), p.Percentage.StringFixed(1), p.Status, p.Scope)
	}
	tw.Flush()
}

func printEarnings(w io.Writer, ym core.YearMonth, total decimal.Decimal, rows []reporting.GoalComparison) {
	fmt.Fprintf(w, "== %s ==  total: %s\n", ym.Label(), money(total))
	tw := table(w)
	fmt.Fprintln(tw, "sub_category\texpected\tactual\tdifference\t")
	for _, g := range rows {
		expected := "-"
		if g.HasGoal {
			expected = money(g.Expected)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", g.SubCategory, expected, money(g.Actual), money(g.Difference))
	}
	tw.Flush()
}

func printSavings(w io.Writer, m services.SavingsMetrics) {
	fmt.Fprintf(w, "earnings: %s  expenses: %s  saved: %s  rate: %s%%\n",
		money(m.TotalEarnings), money(m.TotalExpenses), money(m.NetSavings), m.SavingsRate.StringFixed(1))
	fmt.Fprintf(w, "monthly average: %s over %d months\n\n", money(m.MonthlyAverage), m.MonthsOfData)
}

func printMonthlySavings(w io.Writer, rows []services.MonthSavings) {
	tw := table(w)
	fmt.Fprintln(tw, "month\tearnings\texpenses\tsaved\trate\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			r.Month.Label(), money(r.Earnings), money(r.Expenses), money(r.Savings), r.Rate.StringFixed(1))
	}
	tw.Flush()
}

func printDetected(w io.Writer, found []services.DetectedRecurring) {
	if len(found) == 0 {
		fmt.Fprintln(w, "No recurring expenses detected.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "description\tamount\tfrequency\tcount\tfirst\tlast\tcategory\t")
	for _, d := range found {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t\n",
			d.Description, money(d.Amount), d.Frequency, d.Occurrences, d.FirstDate, d.LastDate, d.Category)
	}
	tw.Flush()
}

func printRecurring(w io.Writer, items []core.RecurringTransaction, s services.RecurringSummary, overdue []core.RecurringTransaction) {
	tw := table(w)
	fmt.Fprintln(tw, "id\tdescription\tamount\tfrequency\tlast\tactive\t")
	for _, r := range items {
		last := "-"
		if r.LastOccurrence.Valid() {
			last = r.LastOccurrence.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t\n", r.ID, r.Description, money(r.ExpectedAmount), r.Frequency, last, r.IsActive)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d active: %s per month, %s per year\n", s.Count, money(s.MonthlyTotal), money(s.YearlyProjection))
	for _, r := range overdue {
		fmt.Fprintf(w, "overdue: %s (last %s)\n", r.Description, r.LastOccurrence)
	}
}

func printAnomalies(w io.Writer, anomalies []services.Anomaly) {
	if len(anomalies) == 0 {
		fmt.Fprintln(w, "No anomalies.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "description\tdate\texpected\tactual\tdifference\t%\t")
	for _, an := range anomalies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			an.Description, an.Date, money(an.Expected), money(an.Actual), money(an.Difference), an.DifferencePercent.StringFixed(1))
	}
	tw.Flush()
}

func printNetWorth(w io.Writer, s services.NetWorthSummary) {
	tw := table(w)
	fmt.Fprintln(tw, "account\ttype\tbalance\tupdated\t")
	for _, a := range s.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", a.Name, a.Type, money(a.Balance), a.LastUpdated.Format("2006-01-02"))
	}
	tw.Flush()
	fmt.Fprintf(w, "\nassets: %s  liabilities: %s  net worth: %s\n",
		money(s.TotalAssets), money(s.TotalLiabilities), money(s.NetWorth))
}

func printFormatError(w io.Writer, fe *reporting.FormatError) {
	fmt.Fprintf(w, "Statement for %s could not be normalized: %v\n", fe.Account, fe.Err)
	fmt.Fprintf(w, "columns: %s\n", strings.Join(fe.Columns, ", "))
	fmt.Fprintf(w, "mapping keys: %s\n", strings.Join(fe.MappingKeys, ", "))
	if len(fe.Head) > 0 {
		fmt.Fprintln(w, "first rows:")
		printRows(w, fe.Head)
	}
}
