package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"budgetanalyser/internal/core"
)

const transactionColumns = `transaction_date, description, amount_cents, from_account, sub_category, category`

// InsertTransactions stores txs under INSERT OR IGNORE on the
// (date, description, amount, account) key and returns how many rows were
// new. The batch runs in one SQL transaction; on error nothing is written.
// Rows without a valid date are stored with an empty date, so undated rows
// that agree on description, amount and account collapse into one.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction, importID string) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions
			(`+transactionColumns+`, c_or_d, import_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := r.timestamp()
	inserted, undated := 0, 0
	for _, t := range txs {
		if !t.Date.Valid() {
			undated++
		}
		res, err := stmt.ExecContext(ctx,
			t.Date.String(),
			t.Description,
			core.ToCents(t.Amount),
			t.FromAccount,
			t.SubCategory,
			t.Category,
			string(t.Direction()),
			importID,
			createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %q: %w", t.Description, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	if undated > 0 {
		r.logger.WarnContext(ctx, "Undated transactions deduplicated without a date",
			"undated", undated,
			"import_id", importID)
	}
	r.logger.InfoContext(ctx, "Transactions stored",
		"inserted", inserted,
		"duplicates", len(txs)-inserted,
		"import_id", importID)
	return inserted, nil
}

// ListTransactions returns every stored transaction, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY transaction_date DESC, id DESC`)
}

func (r *SQLiteRepository) ListTransactionsByAccount(ctx context.Context, account string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE from_account = ? ORDER BY transaction_date DESC, id DESC`, account)
}

// ListTransactionsBetween returns transactions dated within [start, end].
func (r *SQLiteRepository) ListTransactionsBetween(ctx context.Context, start, end core.Date) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE transaction_date != '' AND transaction_date BETWEEN ? AND ?
		ORDER BY transaction_date DESC, id DESC`, start.String(), end.String())
}

// ListSourceAccounts returns the distinct from_account values.
func (r *SQLiteRepository) ListSourceAccounts(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT from_account FROM transactions ORDER BY from_account`)
	if err != nil {
		return nil, fmt.Errorf("list source accounts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan source account: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) HasData(ctx context.Context) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions LIMIT 1)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transactions: %w", err)
	}
	return exists == 1, nil
}

// ClearTransactions deletes every stored transaction and returns the count.
func (r *SQLiteRepository) ClearTransactions(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	r.logger.WarnContext(ctx, "All transactions cleared", "deleted", n)
	return int(n), nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		date  string
		cents int64
		t     core.Transaction
	)
	if err := rows.Scan(&date, &t.Description, &cents, &t.FromAccount, &t.SubCategory, &t.Category); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Date = parseDate(date)
	t.Amount = core.FromCents(cents)
	return t, nil
}

func parseDate(s string) core.Date {
	if s == "" {
		return core.Date{}
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}
	}
	return core.Date{Time: d}
}
