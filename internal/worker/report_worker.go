// Package worker refreshes exported reports when new statements are ingested.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetanalyser/internal/amqp"
	"budgetanalyser/internal/cache"
	"budgetanalyser/internal/reporting"
)

const reportsKey = "reports"

// Exporter writes reports to an external destination.
type Exporter interface {
	ExportMonths(ctx context.Context, reports []reporting.MonthlyReport) (int, error)
	ExportYear(ctx context.Context, stats reporting.YearlyStats) error
}

// ReportWorker rebuilds the monthly reports from the store after each
// ingestion event and re-exports them. Built reports are memoized until
// the next event or until the ttl passes.
type ReportWorker struct {
	store    reporting.TransactionLister
	builder  *reporting.Builder
	exporter Exporter
	reports  *cache.LRUCache[[]reporting.MonthlyReport]
	logger   *slog.Logger
}

func NewReportWorker(store reporting.TransactionLister, builder *reporting.Builder, exporter Exporter, ttl time.Duration, logger *slog.Logger) *ReportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWorker{
		store:    store,
		builder:  builder,
		exporter: exporter,
		reports:  cache.NewLRUCache[[]reporting.MonthlyReport](1, ttl),
		logger:   logger.With("component", "report_worker"),
	}
}

// Cache exposes the report memo so a cache.Manager can sweep it.
func (w *ReportWorker) Cache() cache.Cleaner { return w.reports }

// Reports returns the memoized reports, building them from the store on a miss.
func (w *ReportWorker) Reports(ctx context.Context) ([]reporting.MonthlyReport, error) {
	if reports, ok := w.reports.Get(reportsKey); ok {
		return reports, nil
	}
	reports, err := w.builder.FromStore(ctx, w.store)
	if err != nil {
		return nil, fmt.Errorf("build reports: %w", err)
	}
	w.reports.Set(reportsKey, reports)
	return reports, nil
}

// HandleIngestion processes one ingestion event. Events without new rows
// leave the reports untouched.
func (w *ReportWorker) HandleIngestion(ctx context.Context, event *amqp.IngestionEvent) error {
	w.logger.InfoContext(ctx, "Processing ingestion event",
		"import_id", event.ImportID,
		"account", event.Account,
		"inserted", event.Inserted)

	if event.Inserted == 0 {
		return nil
	}
	w.reports.Purge()
	return w.Refresh(ctx)
}

// Refresh exports every month and every year present in the store.
func (w *ReportWorker) Refresh(ctx context.Context) error {
	reports, err := w.Reports(ctx)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		w.logger.InfoContext(ctx, "No transactions to export")
		return nil
	}

	months, err := w.exporter.ExportMonths(ctx, reports)
	if err != nil {
		return fmt.Errorf("export months: %w", err)
	}

	summary := reporting.NewYearlySummary(reports, w.logger)
	years := summary.AvailableYears()
	for _, year := range years {
		if err := w.exporter.ExportYear(ctx, summary.Stats(year)); err != nil {
			return fmt.Errorf("export year %d: %w", year, err)
		}
	}

	w.logger.InfoContext(ctx, "Reports exported", "months", months, "years", len(years))
	return nil
}
