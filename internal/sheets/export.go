package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"budgetanalyser/internal/reporting"
)

const DefaultPrefix = "Budget"

// Exporter writes report tables to one sheet per month, named
// "<prefix> YYYY-MM", and yearly overviews to "<prefix> YYYY".
type Exporter struct {
	writer TableWriter
	prefix string
	logger *slog.Logger
}

func NewExporter(writer TableWriter, prefix string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Exporter{writer: writer, prefix: prefix, logger: logger.With("component", "sheets_export")}
}

// SheetName joins the prefix and a label, e.g. "Budget 2025-01".
func (e *Exporter) SheetName(label string) string {
	return e.prefix + " " + label
}

// ExportMonths writes each month's category pivot followed, after a blank
// row, by its sub-category pivot. Months without expenses are skipped.
// It returns the number of sheets written.
func (e *Exporter) ExportMonths(ctx context.Context, reports []reporting.MonthlyReport) (int, error) {
	written := 0
	for _, r := range reports {
		if r.ExpensesByCategory.Empty() {
			e.logger.DebugContext(ctx, "No expenses to export", "month", r.Month.String())
			continue
		}
		rows := r.ExpensesByCategory.Table("category")
		if sub := r.ExpensesBySubCategory.Table("sub_category"); sub != nil {
			rows = append(rows, []string{})
			rows = append(rows, sub...)
		}
		name := e.SheetName(r.Month.String())
		if err := e.writer.WriteTable(ctx, name, rows); err != nil {
			return written, fmt.Errorf("export %s: %w", name, err)
		}
		written++
	}
	e.logger.InfoContext(ctx, "Monthly reports exported", "sheets", written)
	return written, nil
}

// ExportYear writes the month-by-month overview of a year with a total row.
func (e *Exporter) ExportYear(ctx context.Context, stats reporting.YearlyStats) error {
	rows := [][]string{{"month", "earnings", "expenses", "net"}}
	for _, m := range stats.Monthly {
		rows = append(rows, []string{
			m.Month.String(),
			m.Earnings.StringFixed(2),
			m.Expenses.StringFixed(2),
			m.Net.StringFixed(2),
		})
	}
	rows = append(rows, []string{
		reporting.TotalLabel,
		stats.TotalEarnings.StringFixed(2),
		stats.TotalExpenses.StringFixed(2),
		stats.TotalEarnings.Sub(stats.TotalExpenses).StringFixed(2),
	})

	name := e.SheetName(strconv.Itoa(stats.Year))
	if err := e.writer.WriteTable(ctx, name, rows); err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	return nil
}
