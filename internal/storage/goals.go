package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// SetBudgetGoal upserts a category limit for a scope (core.ScopeAll or YYYY-MM).
func (r *SQLiteRepository) SetBudgetGoal(ctx context.Context, g core.BudgetGoal) (core.BudgetGoal, error) {
	if g.YearMonth == "" {
		g.YearMonth = core.ScopeAll
	}
	if err := g.Validate(); err != nil {
		return core.BudgetGoal{}, fmt.Errorf("budget goal: %w", err)
	}
	now := r.timestamp()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO budget_goals (category, monthly_limit_cents, year_month, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category, year_month) DO UPDATE SET
			monthly_limit_cents = excluded.monthly_limit_cents,
			updated_at = excluded.updated_at
		RETURNING id`,
		g.Category, core.ToCents(g.MonthlyLimit), g.YearMonth, now, now,
	).Scan(&g.ID)
	if err != nil {
		return core.BudgetGoal{}, fmt.Errorf("set budget goal: %w", err)
	}
	r.logger.InfoContext(ctx, "Budget goal set", "category", g.Category, "year_month", g.YearMonth, "limit", g.MonthlyLimit.StringFixed(2))
	return g, nil
}

// GetBudgetGoal prefers the month-specific goal and falls back to ALL.
func (r *SQLiteRepository) GetBudgetGoal(ctx context.Context, category, yearMonth string) (core.BudgetGoal, bool, error) {
	for _, scope := range scopesFor(yearMonth) {
		row := r.db.QueryRowContext(ctx, `
			SELECT id, category, monthly_limit_cents, year_month, created_at
			FROM budget_goals WHERE category = ? AND year_month = ?`, category, scope)
		g, err := scanBudgetGoal(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return core.BudgetGoal{}, false, err
		}
		return g, true, nil
	}
	return core.BudgetGoal{}, false, nil
}

func (r *SQLiteRepository) ListBudgetGoals(ctx context.Context) ([]core.BudgetGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, monthly_limit_cents, year_month, created_at
		FROM budget_goals ORDER BY category, year_month`)
	if err != nil {
		return nil, fmt.Errorf("list budget goals: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetGoal
	for rows.Next() {
		g, err := scanBudgetGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteBudgetGoal removes one scope's goal and reports whether it existed.
func (r *SQLiteRepository) DeleteBudgetGoal(ctx context.Context, category, yearMonth string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budget_goals WHERE category = ? AND year_month = ?`, category, defaultScope(yearMonth))
	if err != nil {
		return false, fmt.Errorf("delete budget goal: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SQLiteRepository) SetEarningsGoal(ctx context.Context, g core.EarningsGoal) (core.EarningsGoal, error) {
	if g.YearMonth == "" {
		g.YearMonth = core.ScopeAll
	}
	if err := g.Validate(); err != nil {
		return core.EarningsGoal{}, fmt.Errorf("earnings goal: %w", err)
	}
	now := r.timestamp()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO earnings_goals (sub_category, expected_amount_cents, year_month, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sub_category, year_month) DO UPDATE SET
			expected_amount_cents = excluded.expected_amount_cents,
			updated_at = excluded.updated_at
		RETURNING id`,
		g.SubCategory, core.ToCents(g.ExpectedAmount), g.YearMonth, now, now,
	).Scan(&g.ID)
	if err != nil {
		return core.EarningsGoal{}, fmt.Errorf("set earnings goal: %w", err)
	}
	r.logger.InfoContext(ctx, "Earnings goal set", "sub_category", g.SubCategory, "year_month", g.YearMonth)
	return g, nil
}

func (r *SQLiteRepository) GetEarningsGoal(ctx context.Context, subCategory, yearMonth string) (core.EarningsGoal, bool, error) {
	for _, scope := range scopesFor(yearMonth) {
		row := r.db.QueryRowContext(ctx, `
			SELECT id, sub_category, expected_amount_cents, year_month, created_at
			FROM earnings_goals WHERE sub_category = ? AND year_month = ?`, subCategory, scope)
		g, err := scanEarningsGoal(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return core.EarningsGoal{}, false, err
		}
		return g, true, nil
	}
	return core.EarningsGoal{}, false, nil
}

func (r *SQLiteRepository) ListEarningsGoals(ctx context.Context) ([]core.EarningsGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sub_category, expected_amount_cents, year_month, created_at
		FROM earnings_goals ORDER BY sub_category, year_month`)
	if err != nil {
		return nil, fmt.Errorf("list earnings goals: %w", err)
	}
	defer rows.Close()

	var out []core.EarningsGoal
	for rows.Next() {
		g, err := scanEarningsGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteEarningsGoal(ctx context.Context, subCategory, yearMonth string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM earnings_goals WHERE sub_category = ? AND year_month = ?`, subCategory, defaultScope(yearMonth))
	if err != nil {
		return false, fmt.Errorf("delete earnings goal: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// EarningsGoalMap returns expected amounts by sub-category for a month:
// ALL goals first, then month-specific goals override them.
func (r *SQLiteRepository) EarningsGoalMap(ctx context.Context, yearMonth string) (map[string]decimal.Decimal, error) {
	goals, err := r.ListEarningsGoals(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, g := range goals {
		if g.YearMonth == core.ScopeAll {
			out[g.SubCategory] = g.ExpectedAmount
		}
	}
	if yearMonth != "" && yearMonth != core.ScopeAll {
		for _, g := range goals {
			if g.YearMonth == yearMonth {
				out[g.SubCategory] = g.ExpectedAmount
			}
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBudgetGoal(s scanner) (core.BudgetGoal, error) {
	var (
		g         core.BudgetGoal
		cents     int64
		createdAt string
	)
	if err := s.Scan(&g.ID, &g.Category, &cents, &g.YearMonth, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("scan budget goal: %w", err)
	}
	g.MonthlyLimit = core.FromCents(cents)
	g.CreatedAt = parseTimestamp(createdAt)
	return g, nil
}

func scanEarningsGoal(s scanner) (core.EarningsGoal, error) {
	var (
		g         core.EarningsGoal
		cents     int64
		createdAt string
	)
	if err := s.Scan(&g.ID, &g.SubCategory, &cents, &g.YearMonth, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("scan earnings goal: %w", err)
	}
	g.ExpectedAmount = core.FromCents(cents)
	g.CreatedAt = parseTimestamp(createdAt)
	return g, nil
}

// scopesFor lists lookup scopes in precedence order.
func scopesFor(yearMonth string) []string {
	if yearMonth == "" || yearMonth == core.ScopeAll {
		return []string{core.ScopeAll}
	}
	return []string{yearMonth, core.ScopeAll}
}

func defaultScope(yearMonth string) string {
	if yearMonth == "" {
		return core.ScopeAll
	}
	return yearMonth
}
