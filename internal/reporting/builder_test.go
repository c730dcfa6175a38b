package reporting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"budgetanalyser/internal/categorizer"
	"budgetanalyser/internal/core"
	"budgetanalyser/internal/normalizer"
	"budgetanalyser/internal/statements"
)

type staticLister []core.Transaction

func (l staticLister) ListTransactions(context.Context) ([]core.Transaction, error) { return l, nil }

func newBuilder() *Builder {
	svc := NewReportService(core.DefaultCashflowMapping(), Options{}, discard())
	engine := categorizer.New(categorizer.StaticSource{
		DescriptionToSubCategory: core.KeywordMapping{
			{Label: "Coffee", Keywords: []string{"coffee"}},
			{Label: "Salary", Keywords: []string{"payroll"}},
			{Label: SubCategoryPaymentsMade, Keywords: []string{"citi autopay"}},
			{Label: SubCategoryPaymentConfirmations, Keywords: []string{"payment thank you"}},
		},
		SubCategoryToCategory: core.KeywordMapping{
			{Label: "Flexible", Keywords: []string{"coffee"}},
			{Label: "Income", Keywords: []string{"salary"}},
			{Label: "payments_made", Keywords: []string{SubCategoryPaymentsMade}},
			{Label: "payment_confirmations", Keywords: []string{SubCategoryPaymentConfirmations}},
		},
	}, discard())
	return NewBuilder(svc, normalizer.New(discard()), engine, discard())
}

func TestFromTransactionsCoffeeShop(t *testing.T) {
	b := newBuilder()
	reports := b.FromTransactions([]core.Transaction{
		tx("2025-01-05", "Coffee Shop", "-4.50", "Coffee", "Flexible"),
	})
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	stats := NewExpensesStats(reports)
	if got := stats.TotalForMonth(core.YearMonth{Year: 2025, Month: 1}); !got.Equal(dec("4.50")) {
		t.Errorf("January expense total = %s, want 4.50", got)
	}
}

func TestFromTransactionsExclusions(t *testing.T) {
	b := newBuilder()
	txs := []core.Transaction{
		tx("2025-02-10", "Payroll", "3000", "Salary", "Income"),
		tx("2025-01-15", "Citi autopay", "-500", SubCategoryPaymentsMade, "payments_made"),
		tx("2025-01-20", "Payment thank you", "500", SubCategoryPaymentConfirmations, "payment_confirmations"),
		tx("2025-01-21", "Coffee", "-3", "Coffee", "Flexible"),
		tx("", "Undated", "-1", "", ""),
	}

	reports := b.FromTransactions(txs)
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	jan, feb := reports[0], reports[1]
	if jan.Month != (core.YearMonth{Year: 2025, Month: 1}) || feb.Month != (core.YearMonth{Year: 2025, Month: 2}) {
		t.Fatalf("months not ordered: %v, %v", jan.Month, feb.Month)
	}

	// payments_made is excluded from expenses; the confirmation is positive
	// and in an expense category, so it shows up forced negative.
	if got := descriptions(jan.Expenses); got != "Payment thank you=-500.00,Coffee=-3.00" {
		t.Errorf("January expenses = %s", got)
	}
	if len(jan.Earnings) != 0 {
		t.Errorf("January earnings = %s", descriptions(jan.Earnings))
	}
	if len(jan.Transactions) != 3 {
		t.Errorf("unfiltered month has %d rows, want 3", len(jan.Transactions))
	}
	if _, ok := jan.ExpensesByCategory.Value("payments_made", jan.Month); ok {
		t.Errorf("payments_made should not be pivoted")
	}
	if got := descriptions(feb.Earnings); got != "Payroll=3000.00" {
		t.Errorf("February earnings = %s", got)
	}
}

func TestFromStore(t *testing.T) {
	b := newBuilder()
	reports, err := b.FromStore(context.Background(), staticLister{tx("2025-03-01", "Coffee", "-2", "Coffee", "Flexible")})
	if err != nil || len(reports) != 1 {
		t.Fatalf("FromStore() = %d reports, %v", len(reports), err)
	}
	reports, err = b.FromStore(context.Background(), staticLister{})
	if err != nil || reports != nil {
		t.Fatalf("empty store should yield no reports, got %v, %v", reports, err)
	}
}

func writeStatements(t *testing.T, chase string) *statements.Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"citi.csv":  "Date,Description,Amount\n01/15/2025,Coffee Shop,4.50\n01/20/2025,Payment thank you,-500\n",
		"chase.csv": chase,
		"accounts.yaml": `statement_dir: .
credit_cards:
  citi:
    file: citi.csv
    columns:
      transaction_date: Date
      description: Description
      amount: Amount
checking_accounts:
  chase:
    file: chase.csv
    columns:
      transaction_date: Posting Date
      description: Description
      amount: Amount
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := statements.LoadConfig(filepath.Join(dir, "accounts.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	return cfg
}

func TestFromStatements(t *testing.T) {
	cfg := writeStatements(t, "Posting Date,Description,Amount\n01/31/2025,Payroll ACME,3000\n01/15/2025,Citi autopay,-500\n")
	reports, err := newBuilder().FromStatements(context.Background(), cfg)
	if err != nil {
		t.Fatalf("FromStatements() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	jan := reports[0]
	if len(jan.Transactions) != 4 {
		t.Errorf("month has %d rows, want 4", len(jan.Transactions))
	}
	// citi amounts are inverted: the coffee purchase becomes a debit.
	if got := NewExpensesStats(reports).TotalForMonth(jan.Month); !got.Equal(dec("504.50")) {
		t.Errorf("expense total = %s, want 504.50", got)
	}
	rec := NewPaymentsReconciliation(reports, discard()).Month(jan.Month)
	if !rec.Difference.IsZero() {
		t.Errorf("payments should reconcile, difference = %s", rec.Difference)
	}
}

func TestFromStatementsFailsFast(t *testing.T) {
	cfg := writeStatements(t, "Date,Memo,Amount\n01/31/2025,Payroll ACME,3000\n")
	_, err := newBuilder().FromStatements(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected a format error")
	}

	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error %T is not a *FormatError: %v", err, err)
	}
	if fe.Account != "chase" {
		t.Errorf("Account = %q, want chase", fe.Account)
	}
	if len(fe.Columns) != 3 || fe.Columns[1] != "Memo" {
		t.Errorf("Columns = %v", fe.Columns)
	}
	if len(fe.Head) != 1 || fe.Head[0][1] != "Payroll ACME" {
		t.Errorf("Head = %v", fe.Head)
	}
	if len(fe.MappingKeys) != 3 {
		t.Errorf("MappingKeys = %v", fe.MappingKeys)
	}
	if !errors.Is(err, core.ErrMappingNotFound) {
		t.Errorf("cause should be a mapping error: %v", err)
	}
}

func TestFromStatementsMissingFile(t *testing.T) {
	cfg := writeStatements(t, "")
	cfg.CheckingAccounts[0].File = "gone.csv"
	_, err := newBuilder().FromStatements(context.Background(), cfg)
	if !errors.Is(err, core.ErrDataSource) {
		t.Fatalf("expected data source error, got %v", err)
	}
}
