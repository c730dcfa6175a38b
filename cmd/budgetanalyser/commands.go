package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/amqp"
	"budgetanalyser/internal/cache"
	"budgetanalyser/internal/cli"
	"budgetanalyser/internal/core"
	"budgetanalyser/internal/ingest"
	applog "budgetanalyser/internal/log"
	"budgetanalyser/internal/normalizer"
	"budgetanalyser/internal/reporting"
	"budgetanalyser/internal/services"
	"budgetanalyser/internal/worker"
)

const (
	watchCacheTTL      = 10 * time.Minute
	watchSweepInterval = time.Minute
	shutdownTimeout    = 10 * time.Second
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func runIngest(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("ingest")
	account := fs.String("account", "", "ingest only this account")
	file := fs.String("file", "", "statement file to ingest for -account (defaults to the configured file)")
	check := fs.Bool("check", false, "validate statement headers without ingesting")
	history := fs.Int("history", 0, "list the last N import runs and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *history > 0 {
		runs, err := a.repo.ListImports(ctx, *history)
		if err != nil {
			return err
		}
		tw := table(a.out)
		fmt.Fprintln(tw, "created\taccount\tprocessed\tinserted\tduplicates\timport_id")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
				r.CreatedAt.Format(time.RFC3339), r.Account, r.Processed, r.Inserted, r.Duplicates, r.ID)
		}
		return tw.Flush()
	}

	accounts, err := cli.LoadAccounts(a.cfg)
	if err != nil {
		return err
	}
	files := ingest.FilesFor(accounts)
	if *account != "" {
		acct, ok := accounts.Account(*account)
		if !ok {
			return fmt.Errorf("unknown account %q", *account)
		}
		path := acct.StatementPath(accounts.StatementDir)
		if *file != "" {
			path = *file
		}
		files = []ingest.File{{Path: path, Account: acct.Name, Mapping: acct.ColumnMapping()}}
	} else if *file != "" {
		return errors.New("-file requires -account")
	}

	if *check {
		failed := 0
		for _, f := range files {
			acct, _ := accounts.Account(f.Account)
			v := ingest.ValidateCSV(f.Path, acct)
			if !v.Valid {
				failed++
			}
			fmt.Fprintf(a.out, "%s: %s\n", f.Account, v.Message)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d statements failed validation", failed, len(files))
		}
		return nil
	}

	client, publisher := a.publisher()
	if client != nil {
		defer client.Close()
	}
	svc := ingest.New(a.repo, a.normalizer, a.categorizer, publisher, a.logger)

	start := time.Now()
	res := svc.IngestMany(ctx, files)
	fields := applog.NewFields().
		WithOperation(applog.OpIngest).
		WithIngest(*account, res.Processed, res.Inserted, res.Duplicates)
	fields[applog.FieldDuration] = time.Since(start).Milliseconds()
	a.logger.InfoContext(ctx, "Ingestion run finished", fields.ToSlice()...)

	fmt.Fprintf(a.out, "%s\nprocessed: %d  inserted: %d  duplicates: %d\n",
		res.Message, res.Processed, res.Inserted, res.Duplicates)
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("report")
	month := fs.String("month", "", "YYYY-MM to print (default: every month)")
	from := fs.String("from", "", "range start date; with -to prints a range breakdown")
	to := fs.String("to", "", "range end date")
	statementsFlag := fs.Bool("statements", false, "build from the statement files instead of the store")
	export := fs.Bool("export", false, "write the monthly tables to Google Sheets")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reports, err := a.reports(ctx, *statementsFlag)
	if err != nil {
		var fe *reporting.FormatError
		if errors.As(err, &fe) {
			printFormatError(a.out, fe)
		}
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(a.out, "No transactions.")
		return nil
	}

	if *from != "" || *to != "" {
		start, end := normalizer.ParseDate(*from), normalizer.ParseDate(*to)
		if !start.Valid() || !end.Valid() {
			return fmt.Errorf("invalid range %q..%q", *from, *to)
		}
		printRange(a.out, reports, start, end)
		return nil
	}

	selected := reports
	if *month != "" {
		ym, err := core.ParseYearMonth(*month)
		if err != nil {
			return err
		}
		selected = nil
		for _, r := range reports {
			if r.Month == ym {
				selected = append(selected, r)
			}
		}
		if len(selected) == 0 {
			return fmt.Errorf("no data for %s", ym)
		}
	}
	for _, r := range selected {
		printMonthlyReport(a.out, r)
	}

	if *export {
		exporter, err := a.exporter(ctx)
		if err != nil {
			return err
		}
		if exporter == nil {
			return errors.New("no spreadsheet configured")
		}
		n, err := exporter.ExportMonths(ctx, selected)
		if err != nil {
			return err
		}
		a.logger.InfoContext(ctx, "Reports exported", applog.FieldOperation, applog.OpExport, "sheets", n)
	}
	return nil
}

func runYearly(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("yearly")
	year := fs.Int("year", 0, "year to summarise (default: latest)")
	export := fs.Bool("export", false, "write the yearly table to Google Sheets")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reports, err := a.reports(ctx, false)
	if err != nil {
		return err
	}
	summary := reporting.NewYearlySummary(reports, a.logger)
	years := summary.AvailableYears()
	if len(years) == 0 {
		fmt.Fprintln(a.out, "No transactions.")
		return nil
	}
	y := *year
	if y == 0 {
		y = years[len(years)-1]
	}

	stats := summary.Stats(y)
	printYearly(a.out, stats, summary.CategoryBreakdown(y))

	if *export {
		exporter, err := a.exporter(ctx)
		if err != nil {
			return err
		}
		if exporter == nil {
			return errors.New("no spreadsheet configured")
		}
		return exporter.ExportYear(ctx, stats)
	}
	return nil
}

func runReconcile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("reconcile")
	month := fs.String("month", "", "YYYY-MM (default: latest)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reports, err := a.reports(ctx, false)
	if err != nil {
		return err
	}
	ym, err := monthOrLatest(*month, reports)
	if err != nil {
		return err
	}
	printReconciliation(a.out, reporting.NewPaymentsReconciliation(reports, a.logger).Month(ym))
	return nil
}

func runBudget(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("budget")
	month := fs.String("month", "", "YYYY-MM for progress (default: latest)")
	set := fs.String("set", "", "category whose monthly limit to set")
	limit := fs.String("limit", "", "monthly limit for -set")
	del := fs.String("delete", "", "category whose goal to delete")
	scope := fs.String("scope", core.ScopeAll, "goal scope: ALL or YYYY-MM")
	list := fs.Bool("list", false, "list goals")
	over := fs.Bool("over", false, "only categories over or near their limit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := services.NewBudgetService(a.repo, a.logger)

	switch {
	case *set != "":
		amount, err := core.ParseAmount(*limit)
		if err != nil {
			return fmt.Errorf("-limit: %w", err)
		}
		g, err := svc.SetBudget(ctx, *set, amount, *scope)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Budget for %s (%s) set to %s\n", g.Category, g.YearMonth, g.MonthlyLimit.StringFixed(2))
		return nil
	case *del != "":
		ok, err := svc.DeleteBudget(ctx, *del, *scope)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no budget for %s (%s)", *del, *scope)
		}
		fmt.Fprintf(a.out, "Budget for %s (%s) deleted\n", *del, *scope)
		return nil
	case *list:
		goals, err := svc.Budgets(ctx)
		if err != nil {
			return err
		}
		tw := table(a.out)
		fmt.Fprintln(tw, "category\tscope\tlimit")
		for _, g := range goals {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Category, g.YearMonth, g.MonthlyLimit.StringFixed(2))
		}
		return tw.Flush()
	}

	reports, err := a.reports(ctx, false)
	if err != nil {
		return err
	}
	ym, err := monthOrLatest(*month, reports)
	if err != nil {
		return err
	}
	_, expenses := flatten(reports)
	progress := svc.Progress
	if *over {
		progress = svc.OverBudget
	}
	rows, err := progress(ctx, expenses, ym)
	if err != nil {
		return err
	}
	printBudget(a.out, ym, rows)
	return nil
}

func runEarnings(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("earnings")
	month := fs.String("month", "", "YYYY-MM to compare (default: latest)")
	set := fs.String("set", "", "sub-category whose expected earnings to set")
	expected := fs.String("expected", "", "expected amount for -set")
	del := fs.String("delete", "", "sub-category whose goal to delete")
	scope := fs.String("scope", core.ScopeAll, "goal scope: ALL or YYYY-MM")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := services.NewBudgetService(a.repo, a.logger)

	switch {
	case *set != "":
		amount, err := core.ParseAmount(*expected)
		if err != nil {
			return fmt.Errorf("-expected: %w", err)
		}
		g, err := svc.SetEarningsGoal(ctx, *set, amount, *scope)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Earnings goal for %s (%s) set to %s\n", g.SubCategory, g.YearMonth, g.ExpectedAmount.StringFixed(2))
		return nil
	case *del != "":
		ok, err := svc.DeleteEarningsGoal(ctx, *del, *scope)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no earnings goal for %s (%s)", *del, *scope)
		}
		fmt.Fprintf(a.out, "Earnings goal for %s (%s) deleted\n", *del, *scope)
		return nil
	}

	reports, err := a.reports(ctx, false)
	if err != nil {
		return err
	}
	ym, err := monthOrLatest(*month, reports)
	if err != nil {
		return err
	}
	stats := reporting.NewEarningsStats(reports)
	rows, err := stats.CompareGoals(ctx, ym, svc)
	if err != nil {
		return err
	}
	printEarnings(a.out, ym, stats.TotalForMonth(ym), rows)
	return nil
}

func runSavings(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("savings")
	year := fs.Int("year", 0, "restrict to one year and print its months")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reports, err := a.reports(ctx, false)
	if err != nil {
		return err
	}
	earnings, expenses := flatten(reports)

	var yp *int
	if *year != 0 {
		yp = year
	}
	printSavings(a.out, services.Savings(earnings, expenses, yp))
	if yp != nil {
		printMonthlySavings(a.out, services.MonthlySavings(earnings, expenses, *year))
	}
	return nil
}

func runDetect(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("detect")
	minOcc := fs.Int("min", services.DefaultMinOccurrences, "minimum occurrences")
	track := fs.Bool("track", false, "save the detected items as tracked recurring expenses")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reports, err := a.reports(ctx, false)
	if err != nil {
		return err
	}
	_, expenses := flatten(reports)

	svc := services.NewRecurringService(a.repo, a.logger)
	found := svc.Detect(expenses, *minOcc)
	printDetected(a.out, found)

	if *track {
		for _, d := range found {
			if _, err := svc.Track(ctx, d); err != nil {
				return fmt.Errorf("track %q: %w", d.Description, err)
			}
		}
		fmt.Fprintf(a.out, "Tracking %d recurring expenses\n", len(found))
	}
	return nil
}

func runRecurring(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("recurring")
	all := fs.Bool("all", false, "include inactive items")
	asOf := fs.String("as-of", "", "date to check overdue items against (default: today)")
	add := fs.String("add", "", "description of a recurring expense to track")
	amount := fs.String("amount", "", "expected amount for -add")
	frequency := fs.String("frequency", string(core.Monthly), "frequency for -add: weekly, monthly, quarterly or yearly")
	category := fs.String("category", "", "category for -add")
	subCategory := fs.String("sub-category", "", "sub-category for -add")
	deactivate := fs.Int64("deactivate", 0, "id to deactivate")
	del := fs.Int64("delete", 0, "id to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := services.NewRecurringService(a.repo, a.logger)

	switch {
	case *add != "":
		amt, err := core.ParseAmount(*amount)
		if err != nil {
			return fmt.Errorf("-amount: %w", err)
		}
		item, err := svc.Add(ctx, core.RecurringTransaction{
			Description:    *add,
			ExpectedAmount: amt,
			Frequency:      core.Frequency(strings.ToLower(*frequency)),
			Category:       *category,
			SubCategory:    *subCategory,
			IsActive:       true,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Tracking %s (id %d)\n", item.Description, item.ID)
		return nil
	case *deactivate != 0:
		return reportAffected(ctx, a, svc.Deactivate, *deactivate, "deactivated")
	case *del != 0:
		return reportAffected(ctx, a, svc.Delete, *del, "deleted")
	}

	items, err := svc.List(ctx, !*all)
	if err != nil {
		return err
	}
	summary, err := svc.Summary(ctx)
	if err != nil {
		return err
	}
	date := core.Date{Time: time.Now().UTC()}
	if *asOf != "" {
		if date = normalizer.ParseDate(*asOf); !date.Valid() {
			return fmt.Errorf("invalid -as-of date %q", *asOf)
		}
	}
	overdue, err := svc.Overdue(ctx, date)
	if err != nil {
		return err
	}
	printRecurring(a.out, items, summary, overdue)
	return nil
}

func reportAffected(ctx context.Context, a *app, op func(context.Context, int64) (bool, error), id int64, verb string) error {
	ok, err := op(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no recurring expense with id %d", id)
	}
	fmt.Fprintf(a.out, "Recurring expense %d %s\n", id, verb)
	return nil
}

func runAnomalies(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("anomalies")
	tolerance := fs.String("tolerance", services.DefaultTolerancePercent.String(), "allowed deviation in percent")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tol, err := decimal.NewFromString(*tolerance)
	if err != nil {
		return fmt.Errorf("-tolerance: %w", err)
	}
	reports, err := a.reports(ctx, false)
	if err != nil {
		return err
	}
	_, expenses := flatten(reports)

	anomalies, err := services.NewRecurringService(a.repo, a.logger).CheckAnomalies(ctx, expenses, tol)
	if err != nil {
		return err
	}
	printAnomalies(a.out, anomalies)
	return nil
}

func runNetWorth(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("networth")
	add := fs.String("add", "", "name of an account to add")
	typ := fs.String("type", string(core.Checking), "account type for -add")
	set := fs.String("set", "", "name of an account whose balance to update")
	balance := fs.String("balance", "0", "balance for -add or -set")
	notes := fs.String("notes", "", "notes for -add")
	del := fs.String("delete", "", "name of an account to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := services.NewNetWorthService(a.repo, a.logger)

	switch {
	case *add != "":
		bal, err := core.ParseAmount(*balance)
		if err != nil {
			return fmt.Errorf("-balance: %w", err)
		}
		acct, err := svc.AddAccount(ctx, *add, core.AccountType(strings.ToLower(*typ)), bal, *notes)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Account %s added (id %d)\n", acct.Name, acct.ID)
		return nil
	case *set != "":
		bal, err := core.ParseAmount(*balance)
		if err != nil {
			return fmt.Errorf("-balance: %w", err)
		}
		return svc.SetBalance(ctx, *set, bal)
	case *del != "":
		acct, err := a.repo.GetAccountByName(ctx, *del)
		if err != nil {
			return err
		}
		if _, err := svc.DeleteAccount(ctx, acct.ID); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Account %s deleted\n", acct.Name)
		return nil
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		return err
	}
	printNetWorth(a.out, summary)
	return nil
}

// runWatch consumes ingestion events and re-exports the reports after
// each one that inserted rows.
func runWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.cfg.AMQPEnabled() {
		return errors.New("watch needs an AMQP URL")
	}
	exporter, err := a.exporter(ctx)
	if err != nil {
		return err
	}
	if exporter == nil {
		return errors.New("watch needs a spreadsheet to export to")
	}
	client, _ := a.publisher()
	if client == nil {
		return errors.New("AMQP broker unavailable")
	}
	builder, err := a.builder()
	if err != nil {
		return err
	}

	w := worker.NewReportWorker(a.repo, builder, exporter, watchCacheTTL, a.logger)
	caches := cache.NewManager(a.logger)
	caches.Register(w.Cache())
	caches.StartCleanup(watchSweepInterval)

	ctx, done := cli.GracefulShutdown(a.logger, shutdownTimeout, func() {
		caches.Stop()
		if err := client.Close(); err != nil {
			a.logger.Warn("Failed to close AMQP client", "error", err)
		}
	})

	if err := w.Refresh(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Initial export failed", "error", err)
	}

	a.logger.InfoContext(ctx, "Watching ingestion events", "queue", a.cfg.AMQPQueue)
	err = client.ConsumeIngestion(ctx, func(event *amqp.IngestionEvent) error {
		return w.HandleIngestion(ctx, event)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		caches.Stop()
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}

func flatten(reports []reporting.MonthlyReport) (earnings, expenses []core.Transaction) {
	for _, r := range reports {
		earnings = append(earnings, r.Earnings...)
		expenses = append(expenses, r.Expenses...)
	}
	return earnings, expenses
}

func monthOrLatest(month string, reports []reporting.MonthlyReport) (core.YearMonth, error) {
	if month != "" {
		return core.ParseYearMonth(month)
	}
	if len(reports) == 0 {
		return core.YearMonth{}, errors.New("no transactions")
	}
	return reports[len(reports)-1].Month, nil
}
