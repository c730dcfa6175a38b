package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

var ErrAccountNotFound = errors.New("account not found")

// AddAccount inserts a net-worth account. Names are unique.
func (r *SQLiteRepository) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("account: %w", err)
	}
	now := r.now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (name, account_type, balance_cents, last_updated, notes)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		a.Name, string(a.Type), core.ToCents(a.Balance), now.Format(timeLayout), a.Notes,
	).Scan(&a.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("add account %q: %w", a.Name, err)
	}
	a.LastUpdated = now
	r.logger.InfoContext(ctx, "Account added", "name", a.Name, "type", a.Type)
	return a, nil
}

// UpdateAccountBalance sets a new balance and stamps last_updated.
func (r *SQLiteRepository) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET balance_cents = ?, last_updated = ? WHERE id = ?`,
		core.ToCents(balance), r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetAccountByName(ctx context.Context, name string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, account_type, balance_cents, last_updated, notes
		FROM accounts WHERE name = ?`, name)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, account_type, balance_cents, last_updated, notes
		FROM accounts ORDER BY account_type, name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a           core.Account
		accountType string
		cents       int64
		lastUpdated string
	)
	if err := s.Scan(&a.ID, &a.Name, &accountType, &cents, &lastUpdated, &a.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan account: %w", err)
	}
	a.Type = core.AccountType(accountType)
	a.Balance = core.FromCents(cents)
	a.LastUpdated = parseTimestamp(lastUpdated)
	return a, nil
}
