package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"budgetanalyser/internal/amqp"
	"budgetanalyser/internal/categorizer"
	"budgetanalyser/internal/cli"
	"budgetanalyser/internal/config"
	"budgetanalyser/internal/ingest"
	applog "budgetanalyser/internal/log"
	"budgetanalyser/internal/mappings"
	"budgetanalyser/internal/normalizer"
	"budgetanalyser/internal/reporting"
	"budgetanalyser/internal/sheets"
	gsheet "budgetanalyser/internal/sheets/google"
	"budgetanalyser/internal/storage"
)

// app carries the wiring shared by the subcommands.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	out         io.Writer
	repo        *storage.SQLiteRepository
	normalizer  *normalizer.Normalizer
	categorizer *categorizer.Engine
	mappings    *mappings.FileSource
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"ingest", "load statements into the store", runIngest},
	{"report", "monthly category tables", runReport},
	{"yearly", "yearly totals and category breakdown", runYearly},
	{"reconcile", "card payments vs confirmations for a month", runReconcile},
	{"budget", "budget goals and progress", runBudget},
	{"earnings", "earnings goals against actual earnings", runEarnings},
	{"savings", "savings rate and monthly savings", runSavings},
	{"detect", "find recurring expenses in history", runDetect},
	{"recurring", "tracked recurring expenses, projected cost and overdue items", runRecurring},
	{"anomalies", "recurring charges that moved from their expected amount", runAnomalies},
	{"networth", "accounts and net worth", runNetWorth},
	{"keywords", "list or extend the categorization keyword mappings", runKeywords},
	{"watch", "re-export reports on ingestion events", runWatch},
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).With(applog.FieldComponent, applog.ComponentApp)

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := lookup(os.Args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	source := mappings.NewFileSource(cfg.DescriptionMappingPath, cfg.SubCategoryMappingPath, logger)
	a := &app{
		cfg:         cfg,
		logger:      logger,
		out:         os.Stdout,
		repo:        repo,
		normalizer:  normalizer.New(logger),
		categorizer: categorizer.New(source, logger),
		mappings:    source,
	}

	logger.Debug("Running command", applog.FieldCommand, cmd.name)
	if err := cmd.run(context.Background(), a, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("Command failed", applog.FieldCommand, cmd.name, "error", err)
		repo.Close()
		os.Exit(1)
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: budgetanalyser <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	byName := map[string]string{}
	for _, c := range commands {
		names = append(names, c.name)
		byName[c.name] = c.usage
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-10s %s\n", n, byName[n])
	}
}

// reportService builds the cashflow-aware report service.
func (a *app) reportService() (*reporting.ReportService, error) {
	cashflow, err := mappings.LoadCashflowMapping(a.cfg.CashflowMappingPath)
	if err != nil {
		return nil, err
	}
	return reporting.NewReportService(cashflow, reporting.Options{SignFallback: a.cfg.SignFallback}, a.logger), nil
}

func (a *app) builder() (*reporting.Builder, error) {
	svc, err := a.reportService()
	if err != nil {
		return nil, err
	}
	return reporting.NewBuilder(svc, a.normalizer, a.categorizer, a.logger), nil
}

// reports builds monthly reports from the store, or straight from the
// statement files when fromStatements is set.
func (a *app) reports(ctx context.Context, fromStatements bool) ([]reporting.MonthlyReport, error) {
	b, err := a.builder()
	if err != nil {
		return nil, err
	}
	if !fromStatements {
		return b.FromStore(ctx, a.repo)
	}
	accounts, err := cli.LoadAccounts(a.cfg)
	if err != nil {
		return nil, err
	}
	return b.FromStatements(ctx, accounts)
}

// publisher returns the AMQP client when configured. A broker that cannot
// be reached disables publishing rather than failing the ingestion.
func (a *app) publisher() (*amqp.Client, ingest.Publisher) {
	if !a.cfg.AMQPEnabled() {
		a.logger.Info("AMQP disabled - ingestion events will not be published")
		return nil, nil
	}
	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
	if err != nil {
		a.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil, nil
	}
	return client, client
}

// exporter returns a Sheets-backed exporter, or nil when no spreadsheet is
// configured.
func (a *app) exporter(ctx context.Context) (*sheets.Exporter, error) {
	if !a.cfg.SheetsEnabled() {
		return nil, nil
	}
	client, err := gsheet.New(ctx, a.cfg.GoogleSpreadsheetID, a.logger)
	if err != nil {
		return nil, fmt.Errorf("google sheets: %w", err)
	}
	return sheets.NewExporter(client, a.cfg.SheetPrefix, a.logger), nil
}
