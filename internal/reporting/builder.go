package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"budgetanalyser/internal/core"
	"budgetanalyser/internal/statements"
)

// Sub-categories that represent transfers between own accounts.
const (
	SubCategoryPaymentsMade         = "payments_made"
	SubCategoryPaymentConfirmations = "payment_confirmations"
)

const (
	diagnosticHeadRows    = 5
	diagnosticMappingKeys = 10
)

// MonthlyReport holds the report tables for one month. Transactions is the
// unfiltered month, used by reconciliation.
type MonthlyReport struct {
	Month                 core.YearMonth
	Earnings              []core.Transaction
	Expenses              []core.Transaction
	ExpensesByCategory    Pivot
	ExpensesBySubCategory Pivot
	Transactions          []core.Transaction
}

type TransactionLister interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

type Normalizer interface {
	Normalize(table statements.Table, account string, mapping map[string]string) ([]core.Transaction, error)
}

type Categorizer interface {
	Process(txs []core.Transaction) ([]core.Transaction, error)
}

// FormatError aborts a report build when one account's statement cannot be
// normalized. It carries what is needed to fix the account's mapping.
type FormatError struct {
	Account     string
	Columns     []string
	MappingKeys []string
	Head        [][]string
	Err         error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format statement for account %s (columns [%s], mapping keys [%s]): %v",
		e.Account, strings.Join(e.Columns, ", "), strings.Join(e.MappingKeys, ", "), e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

type Builder struct {
	reports     *ReportService
	normalizer  Normalizer
	categorizer Categorizer
	logger      *slog.Logger
}

// NewBuilder wires a builder. normalizer and categorizer are only needed by
// FromStatements.
func NewBuilder(reports *ReportService, normalizer Normalizer, categorizer Categorizer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		reports:     reports,
		normalizer:  normalizer,
		categorizer: categorizer,
		logger:      logger.With("component", "report_builder"),
	}
}

// FromTransactions groups categorized transactions by month, oldest first.
// Rows without a valid date cannot be placed in a month and are dropped.
func (b *Builder) FromTransactions(txs []core.Transaction) []MonthlyReport {
	start := time.Now()
	groups := map[core.YearMonth][]core.Transaction{}
	dropped := 0
	for _, tx := range txs {
		if !tx.Date.Valid() {
			dropped++
			continue
		}
		ym := tx.Date.YearMonth()
		groups[ym] = append(groups[ym], tx)
	}
	if dropped > 0 {
		b.logger.Warn("Transactions without a valid date left out of reports", "count", dropped)
	}

	months := slices.SortedFunc(maps.Keys(groups), compareYearMonth)
	reports := make([]MonthlyReport, 0, len(months))
	for _, ym := range months {
		reports = append(reports, b.month(ym, groups[ym]))
	}

	b.logger.Info("Reports built",
		"transactions", len(txs),
		"months", len(reports),
		"duration", time.Since(start))
	return reports
}

// FromStore builds reports from already categorized, persisted rows.
func (b *Builder) FromStore(ctx context.Context, store TransactionLister) ([]MonthlyReport, error) {
	txs, err := store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if len(txs) == 0 {
		b.logger.InfoContext(ctx, "No transactions in store")
		return nil, nil
	}
	return b.FromTransactions(txs), nil
}

// FromStatements reads every configured statement, normalizes and
// categorizes it and builds the reports. Any account that fails to
// normalize aborts the build with a *FormatError.
func (b *Builder) FromStatements(ctx context.Context, cfg *statements.Config) ([]MonthlyReport, error) {
	accounts := cfg.Accounts()
	tables, err := statements.LoadAll(ctx, cfg.StatementDir, accounts, b.logger)
	if err != nil {
		return nil, fmt.Errorf("load statements: %w", err)
	}
	b.logger.InfoContext(ctx, "Statements loaded", "accounts", len(tables))

	var all []core.Transaction
	for _, acct := range accounts {
		table := tables[acct.Name]
		mapping := acct.ColumnMapping()
		txs, err := b.normalizer.Normalize(table, acct.Name, mapping)
		if err != nil {
			fe := &FormatError{
				Account:     acct.Name,
				Columns:     table.Header,
				MappingKeys: mappingKeys(mapping),
				Head:        table.Head(diagnosticHeadRows),
				Err:         err,
			}
			b.logger.ErrorContext(ctx, "Formatting failed",
				"account", fe.Account,
				"columns", fe.Columns,
				"mapping_keys", fe.MappingKeys,
				"head", fe.Head,
				"error", err)
			return nil, fe
		}
		all = append(all, txs...)
	}
	if len(all) == 0 {
		return nil, nil
	}

	categorized, err := b.categorizer.Process(all)
	if err != nil {
		return nil, fmt.Errorf("categorize transactions: %w", err)
	}
	return b.FromTransactions(categorized), nil
}

func (b *Builder) month(ym core.YearMonth, group []core.Transaction) MonthlyReport {
	earnSource := make([]core.Transaction, 0, len(group))
	expSource := make([]core.Transaction, 0, len(group))
	for _, tx := range group {
		if tx.SubCategory != SubCategoryPaymentConfirmations {
			earnSource = append(earnSource, tx)
		}
		if tx.SubCategory != SubCategoryPaymentsMade {
			expSource = append(expSource, tx)
		}
	}

	expenses := b.reports.Expenses(expSource)
	b.logger.Debug("Month report", "month", ym.String(), "rows", len(group))
	return MonthlyReport{
		Month:                 ym,
		Earnings:              b.reports.Earnings(earnSource),
		Expenses:              expenses,
		ExpensesByCategory:    NewPivot(expenses, byCategory),
		ExpensesBySubCategory: NewPivot(expenses, bySubCategory),
		Transactions:          group,
	}
}

func mappingKeys(m map[string]string) []string {
	keys := slices.Sorted(maps.Keys(m))
	if len(keys) > diagnosticMappingKeys {
		keys = keys[:diagnosticMappingKeys]
	}
	return keys
}
