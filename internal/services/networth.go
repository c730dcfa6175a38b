package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// NetWorthSummary totals account balances. Liability balances are counted
// by absolute value whatever sign they were entered with.
type NetWorthSummary struct {
	TotalAssets       decimal.Decimal
	TotalLiabilities  decimal.Decimal
	NetWorth          decimal.Decimal
	AssetsByType      map[core.AccountType]decimal.Decimal
	LiabilitiesByType map[core.AccountType]decimal.Decimal
	Accounts          []core.Account
}

type AccountStore interface {
	AddAccount(ctx context.Context, a core.Account) (core.Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	GetAccountByName(ctx context.Context, name string) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	DeleteAccount(ctx context.Context, id int64) (bool, error)
}

type NetWorthService struct {
	store  AccountStore
	logger *slog.Logger
}

func NewNetWorthService(store AccountStore, logger *slog.Logger) *NetWorthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NetWorthService{store: store, logger: logger.With("component", "net_worth")}
}

func (s *NetWorthService) AddAccount(ctx context.Context, name string, typ core.AccountType, balance decimal.Decimal, notes string) (core.Account, error) {
	return s.store.AddAccount(ctx, core.Account{Name: name, Type: typ, Balance: balance, Notes: notes})
}

func (s *NetWorthService) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	return s.store.UpdateAccountBalance(ctx, id, balance)
}

// SetBalance updates an account by name.
func (s *NetWorthService) SetBalance(ctx context.Context, name string, balance decimal.Decimal) error {
	a, err := s.store.GetAccountByName(ctx, name)
	if err != nil {
		return fmt.Errorf("account %q: %w", name, err)
	}
	return s.store.UpdateAccountBalance(ctx, a.ID, balance)
}

func (s *NetWorthService) Accounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *NetWorthService) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	return s.store.DeleteAccount(ctx, id)
}

func (s *NetWorthService) Summary(ctx context.Context) (NetWorthSummary, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return NetWorthSummary{}, fmt.Errorf("list accounts: %w", err)
	}

	sum := NetWorthSummary{
		TotalAssets:       decimal.Zero,
		TotalLiabilities:  decimal.Zero,
		AssetsByType:      map[core.AccountType]decimal.Decimal{},
		LiabilitiesByType: map[core.AccountType]decimal.Decimal{},
		Accounts:          accounts,
	}
	for _, a := range accounts {
		if a.Type.IsLiability() {
			bal := a.Balance.Abs()
			sum.LiabilitiesByType[a.Type] = sum.LiabilitiesByType[a.Type].Add(bal)
			sum.TotalLiabilities = sum.TotalLiabilities.Add(bal)
			continue
		}
		sum.AssetsByType[a.Type] = sum.AssetsByType[a.Type].Add(a.Balance)
		sum.TotalAssets = sum.TotalAssets.Add(a.Balance)
	}
	sum.NetWorth = sum.TotalAssets.Sub(sum.TotalLiabilities)

	s.logger.DebugContext(ctx, "Net worth computed", "accounts", len(accounts), "net_worth", sum.NetWorth.StringFixed(2))
	return sum, nil
}
