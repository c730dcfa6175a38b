package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

type BudgetStatus string

const (
	StatusUnder   BudgetStatus = "under"
	StatusWarning BudgetStatus = "warning"
	StatusOver    BudgetStatus = "over"
)

var (
	hundred          = decimal.NewFromInt(100)
	warningThreshold = decimal.NewFromInt(80)
)

// BudgetProgress is one category's spending against its limit for a month.
type BudgetProgress struct {
	Category   string
	Limit      decimal.Decimal
	Spent      decimal.Decimal // positive
	Remaining  decimal.Decimal
	Percentage decimal.Decimal // 0 when Limit is 0
	Status     BudgetStatus
	Scope      string // the goal that applied: core.ScopeAll or YYYY-MM
}

// GoalStore persists budget and earnings goals.
type GoalStore interface {
	SetBudgetGoal(ctx context.Context, g core.BudgetGoal) (core.BudgetGoal, error)
	GetBudgetGoal(ctx context.Context, category, yearMonth string) (core.BudgetGoal, bool, error)
	ListBudgetGoals(ctx context.Context) ([]core.BudgetGoal, error)
	DeleteBudgetGoal(ctx context.Context, category, yearMonth string) (bool, error)
	SetEarningsGoal(ctx context.Context, g core.EarningsGoal) (core.EarningsGoal, error)
	GetEarningsGoal(ctx context.Context, subCategory, yearMonth string) (core.EarningsGoal, bool, error)
	ListEarningsGoals(ctx context.Context) ([]core.EarningsGoal, error)
	DeleteEarningsGoal(ctx context.Context, subCategory, yearMonth string) (bool, error)
	EarningsGoalMap(ctx context.Context, yearMonth string) (map[string]decimal.Decimal, error)
}

// BudgetService manages goals and tracks spending against them.
type BudgetService struct {
	store  GoalStore
	logger *slog.Logger
}

func NewBudgetService(store GoalStore, logger *slog.Logger) *BudgetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BudgetService{store: store, logger: logger.With("component", "budget_service")}
}

// SetBudget sets a category limit; an empty scope means every month.
func (s *BudgetService) SetBudget(ctx context.Context, category string, limit decimal.Decimal, scope string) (core.BudgetGoal, error) {
	return s.store.SetBudgetGoal(ctx, core.BudgetGoal{Category: category, MonthlyLimit: limit, YearMonth: scope})
}

// Budget returns the goal that applies to category in scope, falling back
// to the ALL goal.
func (s *BudgetService) Budget(ctx context.Context, category, scope string) (core.BudgetGoal, bool, error) {
	return s.store.GetBudgetGoal(ctx, category, scope)
}

func (s *BudgetService) Budgets(ctx context.Context) ([]core.BudgetGoal, error) {
	return s.store.ListBudgetGoals(ctx)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, category, scope string) (bool, error) {
	return s.store.DeleteBudgetGoal(ctx, category, scope)
}

func (s *BudgetService) SetEarningsGoal(ctx context.Context, subCategory string, expected decimal.Decimal, scope string) (core.EarningsGoal, error) {
	return s.store.SetEarningsGoal(ctx, core.EarningsGoal{SubCategory: subCategory, ExpectedAmount: expected, YearMonth: scope})
}

func (s *BudgetService) EarningsGoal(ctx context.Context, subCategory, scope string) (core.EarningsGoal, bool, error) {
	return s.store.GetEarningsGoal(ctx, subCategory, scope)
}

func (s *BudgetService) EarningsGoals(ctx context.Context) ([]core.EarningsGoal, error) {
	return s.store.ListEarningsGoals(ctx)
}

func (s *BudgetService) DeleteEarningsGoal(ctx context.Context, subCategory, scope string) (bool, error) {
	return s.store.DeleteEarningsGoal(ctx, subCategory, scope)
}

// EarningsGoalMap returns sub-category -> expected amount for a month, month
// goals overriding ALL goals.
func (s *BudgetService) EarningsGoalMap(ctx context.Context, yearMonth string) (map[string]decimal.Decimal, error) {
	return s.store.EarningsGoalMap(ctx, yearMonth)
}

// Progress measures the expense rows dated in ym against every goal that
// applies to ym. A month goal replaces the ALL goal of the same category.
// Results are sorted by percentage, highest first.
func (s *BudgetService) Progress(ctx context.Context, expenses []core.Transaction, ym core.YearMonth) ([]BudgetProgress, error) {
	goals, err := s.store.ListBudgetGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budget goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	month := ym.String()
	effective := map[string]core.BudgetGoal{}
	for _, g := range goals {
		switch g.YearMonth {
		case month:
			effective[g.Category] = g
		case core.ScopeAll:
			if cur, ok := effective[g.Category]; !ok || cur.YearMonth != month {
				effective[g.Category] = g
			}
		}
	}

	net := map[string]decimal.Decimal{}
	for _, tx := range expenses {
		if ym.Contains(tx.Date) {
			net[tx.Category] = net[tx.Category].Add(tx.Amount)
		}
	}

	out := make([]BudgetProgress, 0, len(effective))
	for category, g := range effective {
		spent := net[category].Abs()
		pct := decimal.Zero
		if g.MonthlyLimit.IsPositive() {
			pct = spent.Div(g.MonthlyLimit).Mul(hundred)
		}
		out = append(out, BudgetProgress{
			Category:   category,
			Limit:      g.MonthlyLimit,
			Spent:      spent,
			Remaining:  g.MonthlyLimit.Sub(spent),
			Percentage: pct,
			Status:     statusFor(pct),
			Scope:      g.YearMonth,
		})
	}
	slices.SortFunc(out, func(a, b BudgetProgress) int {
		if c := b.Percentage.Cmp(a.Percentage); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	s.logger.DebugContext(ctx, "Budget progress computed", "month", month, "goals", len(out))
	return out, nil
}

// OverBudget keeps the categories that are over or close to their limit.
func (s *BudgetService) OverBudget(ctx context.Context, expenses []core.Transaction, ym core.YearMonth) ([]BudgetProgress, error) {
	progress, err := s.Progress(ctx, expenses, ym)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(progress, func(p BudgetProgress) bool { return p.Status == StatusUnder }), nil
}

func statusFor(pct decimal.Decimal) BudgetStatus {
	switch {
	case pct.GreaterThanOrEqual(hundred):
		return StatusOver
	case pct.GreaterThanOrEqual(warningThreshold):
		return StatusWarning
	default:
		return StatusUnder
	}
}
