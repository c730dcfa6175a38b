package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"), logger)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func coffee() core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(2025, 1, 5),
		Description: "Coffee Shop",
		Amount:      dec("-4.50"),
		FromAccount: "chase",
		SubCategory: "Coffee",
		Category:    "Flexible",
	}
}

func TestInsertTransactionsUndatedRowsCollapse(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "undated.db"), slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()

	a, b := coffee(), coffee()
	a.Date, b.Date = core.Date{}, core.Date{}
	n, err := repo.InsertTransactions(ctx, []core.Transaction{a, b, coffee()}, "undated")
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2 (undated pair collapses, dated row kept)", n)
	}
	if !strings.Contains(logs.String(), "Undated transactions deduplicated") || !strings.Contains(logs.String(), "undated=2") {
		t.Errorf("expected a warning about undated rows, got:\n%s", logs.String())
	}
}

func TestInsertTransactionsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	batch := []core.Transaction{coffee(), coffee()}
	n, err := repo.InsertTransactions(ctx, batch, "first")
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("first insert = %d, want 1", n)
	}

	n, err = repo.InsertTransactions(ctx, batch, "second")
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("second insert = %d, want 0", n)
	}

	count, err := repo.CountTransactions(ctx)
	if err != nil || count != 1 {
		t.Fatalf("CountTransactions() = %d, %v; want 1", count, err)
	}
}

func TestInsertTransactionsKeyedOnFourColumns(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := coffee()
	otherAccount := base
	otherAccount.FromAccount = "citi"
	otherAmount := base
	otherAmount.Amount = dec("-4.51")
	otherDate := base
	otherDate.Date = core.NewDate(2025, 1, 6)
	recategorized := base
	recategorized.Category = "Needs"

	n, err := repo.InsertTransactions(ctx, []core.Transaction{base, otherAccount, otherAmount, otherDate, recategorized}, "")
	if err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}
	if n != 4 {
		t.Fatalf("inserted = %d, want 4 (category is not part of the key)", n)
	}
}

func TestListTransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if has, _ := repo.HasData(ctx); has {
		t.Fatalf("new store should be empty")
	}

	older := coffee()
	older.Date = core.NewDate(2024, 12, 31)
	older.Amount = dec("2000")
	older.Description = "Payroll"
	undated := coffee()
	undated.Date = core.Date{}
	undated.Description = "Undated"

	if _, err := repo.InsertTransactions(ctx, []core.Transaction{older, coffee(), undated}, "imp"); err != nil {
		t.Fatalf("InsertTransactions() error = %v", err)
	}

	all, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d rows, want 3", len(all))
	}
	if all[0].Description != "Coffee Shop" || all[1].Description != "Payroll" {
		t.Fatalf("rows not ordered by date desc: %v, %v", all[0].Description, all[1].Description)
	}
	if !all[0].Amount.Equal(dec("-4.5")) || all[0].Category != "Flexible" || all[0].Date != core.NewDate(2025, 1, 5) {
		t.Fatalf("round trip mismatch: %+v", all[0])
	}
	if all[2].Date.Valid() {
		t.Fatalf("undated row should come back with an invalid date")
	}

	between, err := repo.ListTransactionsBetween(ctx, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if err != nil || len(between) != 1 {
		t.Fatalf("ListTransactionsBetween() = %d rows, %v", len(between), err)
	}

	byAccount, err := repo.ListTransactionsByAccount(ctx, "chase")
	if err != nil || len(byAccount) != 3 {
		t.Fatalf("ListTransactionsByAccount() = %d rows, %v", len(byAccount), err)
	}

	accounts, err := repo.ListSourceAccounts(ctx)
	if err != nil || len(accounts) != 1 || accounts[0] != "chase" {
		t.Fatalf("ListSourceAccounts() = %v, %v", accounts, err)
	}

	deleted, err := repo.ClearTransactions(ctx)
	if err != nil || deleted != 3 {
		t.Fatalf("ClearTransactions() = %d, %v", deleted, err)
	}
	if has, _ := repo.HasData(ctx); has {
		t.Fatalf("store should be empty after clear")
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := NewSQLiteRepository(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.InsertTransactions(ctx, []core.Transaction{coffee()}, ""); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if n, _ := repo.CountTransactions(ctx); n != 1 {
		t.Fatalf("count after reopen = %d, want 1", n)
	}
}

func TestBudgetGoals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.SetBudgetGoal(ctx, core.BudgetGoal{Category: "Needs", MonthlyLimit: dec("500")}); err != nil {
		t.Fatalf("SetBudgetGoal(ALL) error = %v", err)
	}
	if _, err := repo.SetBudgetGoal(ctx, core.BudgetGoal{Category: "Needs", MonthlyLimit: dec("650"), YearMonth: "2025-01"}); err != nil {
		t.Fatalf("SetBudgetGoal(month) error = %v", err)
	}
	// upsert
	if _, err := repo.SetBudgetGoal(ctx, core.BudgetGoal{Category: "Needs", MonthlyLimit: dec("600"), YearMonth: core.ScopeAll}); err != nil {
		t.Fatalf("SetBudgetGoal(upsert) error = %v", err)
	}

	tests := []struct {
		name  string
		month string
		want  string
	}{
		{"month specific wins", "2025-01", "650"},
		{"falls back to ALL", "2025-02", "600"},
		{"ALL directly", core.ScopeAll, "600"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok, err := repo.GetBudgetGoal(ctx, "Needs", tt.month)
			if err != nil || !ok {
				t.Fatalf("GetBudgetGoal() = %v, %v", ok, err)
			}
			if !g.MonthlyLimit.Equal(dec(tt.want)) {
				t.Errorf("limit = %s, want %s", g.MonthlyLimit, tt.want)
			}
		})
	}

	if _, ok, _ := repo.GetBudgetGoal(ctx, "Luxuries", "2025-01"); ok {
		t.Fatalf("unexpected goal for Luxuries")
	}

	goals, err := repo.ListBudgetGoals(ctx)
	if err != nil || len(goals) != 2 {
		t.Fatalf("ListBudgetGoals() = %d, %v; want 2", len(goals), err)
	}

	if _, err := repo.SetBudgetGoal(ctx, core.BudgetGoal{Category: "Needs", MonthlyLimit: dec("1"), YearMonth: "Jan"}); err == nil {
		t.Fatalf("expected invalid scope error")
	}

	deleted, err := repo.DeleteBudgetGoal(ctx, "Needs", "2025-01")
	if err != nil || !deleted {
		t.Fatalf("DeleteBudgetGoal() = %v, %v", deleted, err)
	}
}

func TestEarningsGoalMap(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, g := range []core.EarningsGoal{
		{SubCategory: "Salary", ExpectedAmount: dec("4000"), YearMonth: core.ScopeAll},
		{SubCategory: "Bonus", ExpectedAmount: dec("100"), YearMonth: core.ScopeAll},
		{SubCategory: "Salary", ExpectedAmount: dec("4200"), YearMonth: "2025-03"},
	} {
		if _, err := repo.SetEarningsGoal(ctx, g); err != nil {
			t.Fatalf("SetEarningsGoal() error = %v", err)
		}
	}

	m, err := repo.EarningsGoalMap(ctx, "2025-03")
	if err != nil {
		t.Fatalf("EarningsGoalMap() error = %v", err)
	}
	if !m["Salary"].Equal(dec("4200")) || !m["Bonus"].Equal(dec("100")) {
		t.Fatalf("unexpected map %v", m)
	}

	m, _ = repo.EarningsGoalMap(ctx, "2025-04")
	if !m["Salary"].Equal(dec("4000")) {
		t.Fatalf("expected ALL goal for April, got %v", m["Salary"])
	}

	g, ok, err := repo.GetEarningsGoal(ctx, "Salary", "2025-03")
	if err != nil || !ok || g.YearMonth != "2025-03" {
		t.Fatalf("GetEarningsGoal() = %+v, %v, %v", g, ok, err)
	}
	if deleted, _ := repo.DeleteEarningsGoal(ctx, "Bonus", ""); !deleted {
		t.Fatalf("expected Bonus ALL goal to be deleted")
	}
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	fixed := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	a, err := repo.AddAccount(ctx, core.Account{Name: "Checking", Type: core.Checking, Balance: dec("1200.50")})
	if err != nil {
		t.Fatalf("AddAccount() error = %v", err)
	}
	if _, err := repo.AddAccount(ctx, core.Account{Name: "Checking", Type: core.Savings}); err == nil {
		t.Fatalf("expected unique name violation")
	}
	if _, err := repo.AddAccount(ctx, core.Account{Name: "Bad", Type: "crypto"}); err == nil {
		t.Fatalf("expected invalid type error")
	}

	if err := repo.UpdateAccountBalance(ctx, a.ID, dec("900")); err != nil {
		t.Fatalf("UpdateAccountBalance() error = %v", err)
	}
	if err := repo.UpdateAccountBalance(ctx, 999, dec("1")); err != ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	got, err := repo.GetAccountByName(ctx, "Checking")
	if err != nil {
		t.Fatalf("GetAccountByName() error = %v", err)
	}
	if !got.Balance.Equal(dec("900")) || !got.LastUpdated.Equal(fixed) {
		t.Fatalf("unexpected account %+v", got)
	}

	list, err := repo.ListAccounts(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListAccounts() = %d, %v", len(list), err)
	}
	if deleted, _ := repo.DeleteAccount(ctx, a.ID); !deleted {
		t.Fatalf("expected account to be deleted")
	}
	if _, err := repo.GetAccountByName(ctx, "Checking"); err != ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound after delete, got %v", err)
	}
}

func TestRecurring(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	netflix, err := repo.UpsertRecurring(ctx, core.RecurringTransaction{Description: "NETFLIX", ExpectedAmount: dec("15.99")})
	if err != nil {
		t.Fatalf("UpsertRecurring() error = %v", err)
	}
	if netflix.Frequency != core.Monthly || !netflix.IsActive {
		t.Fatalf("defaults not applied: %+v", netflix)
	}

	again, err := repo.UpsertRecurring(ctx, core.RecurringTransaction{
		Description: "NETFLIX", ExpectedAmount: dec("15.99"), Frequency: core.Yearly, Category: "Flexible",
	})
	if err != nil || again.ID != netflix.ID {
		t.Fatalf("upsert should keep id: %+v, %v", again, err)
	}

	gym, _ := repo.UpsertRecurring(ctx, core.RecurringTransaction{Description: "GYM", ExpectedAmount: dec("40"), Frequency: core.Monthly})
	if ok, _ := repo.UpdateRecurringLastOccurrence(ctx, netflix.ID, core.NewDate(2025, 3, 1)); !ok {
		t.Fatalf("UpdateRecurringLastOccurrence() did not update")
	}
	if ok, _ := repo.DeactivateRecurring(ctx, gym.ID); !ok {
		t.Fatalf("DeactivateRecurring() did not update")
	}

	active, err := repo.ListRecurring(ctx, true)
	if err != nil || len(active) != 1 {
		t.Fatalf("ListRecurring(active) = %d, %v", len(active), err)
	}
	if active[0].Frequency != core.Yearly || active[0].Category != "Flexible" || active[0].LastOccurrence != core.NewDate(2025, 3, 1) {
		t.Fatalf("unexpected item %+v", active[0])
	}

	all, _ := repo.ListRecurring(ctx, false)
	if len(all) != 2 {
		t.Fatalf("ListRecurring(all) = %d, want 2", len(all))
	}
	if ok, _ := repo.DeleteRecurring(ctx, gym.ID); !ok {
		t.Fatalf("DeleteRecurring() did not delete")
	}
	if _, err := repo.UpsertRecurring(ctx, core.RecurringTransaction{Description: "X", Frequency: "daily"}); err == nil {
		t.Fatalf("expected invalid frequency error")
	}
}

func TestImports(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := core.ImportRun{ID: "a", Account: "chase", Processed: 2, Inserted: 1, Duplicates: 1, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := core.ImportRun{ID: "b", Account: "citi", Processed: 3, Inserted: 3, CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	for _, run := range []core.ImportRun{first, second} {
		if err := repo.RecordImport(ctx, run); err != nil {
			t.Fatalf("RecordImport() error = %v", err)
		}
	}
	runs, err := repo.ListImports(ctx, 1)
	if err != nil || len(runs) != 1 || runs[0].ID != "b" {
		t.Fatalf("ListImports(1) = %+v, %v", runs, err)
	}
	runs, _ = repo.ListImports(ctx, 0)
	if len(runs) != 2 || runs[1].Duplicates != 1 {
		t.Fatalf("ListImports(0) = %+v", runs)
	}
}
