package storage

import (
	"context"
	"fmt"

	"budgetanalyser/internal/core"
)

// UpsertRecurring adds a recurring item keyed on (description, expected
// amount). An existing item gets the new frequency and categories; its
// active flag and last occurrence are kept.
func (r *SQLiteRepository) UpsertRecurring(ctx context.Context, item core.RecurringTransaction) (core.RecurringTransaction, error) {
	if item.Frequency == "" {
		item.Frequency = core.Monthly
	}
	if err := item.Validate(); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("recurring transaction: %w", err)
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO recurring_transactions
			(description, expected_amount_cents, frequency, category, sub_category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(description, expected_amount_cents) DO UPDATE SET
			frequency = excluded.frequency,
			category = excluded.category,
			sub_category = excluded.sub_category
		RETURNING id, is_active`,
		item.Description, core.ToCents(item.ExpectedAmount), string(item.Frequency),
		item.Category, item.SubCategory, r.timestamp(),
	).Scan(&item.ID, &item.IsActive)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("upsert recurring transaction: %w", err)
	}
	r.logger.InfoContext(ctx, "Recurring transaction saved",
		"description", item.Description,
		"amount", item.ExpectedAmount.StringFixed(2),
		"frequency", item.Frequency)
	return item, nil
}

// ListRecurring returns recurring items by description; activeOnly hides
// deactivated ones.
func (r *SQLiteRepository) ListRecurring(ctx context.Context, activeOnly bool) ([]core.RecurringTransaction, error) {
	query := `
		SELECT id, description, expected_amount_cents, frequency, category, sub_category,
			last_occurrence, is_active, created_at
		FROM recurring_transactions`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY description`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		var (
			item                       core.RecurringTransaction
			cents                      int64
			frequency, last, createdAt string
			active                     int
		)
		if err := rows.Scan(&item.ID, &item.Description, &cents, &frequency, &item.Category,
			&item.SubCategory, &last, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		item.ExpectedAmount = core.FromCents(cents)
		item.Frequency = core.Frequency(frequency)
		item.LastOccurrence = parseDate(last)
		item.IsActive = active == 1
		item.CreatedAt = parseTimestamp(createdAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateRecurringLastOccurrence(ctx context.Context, id int64, date core.Date) (bool, error) {
	return r.execRecurring(ctx, `UPDATE recurring_transactions SET last_occurrence = ? WHERE id = ?`, date.String(), id)
}

// DeactivateRecurring soft-deletes an item.
func (r *SQLiteRepository) DeactivateRecurring(ctx context.Context, id int64) (bool, error) {
	return r.execRecurring(ctx, `UPDATE recurring_transactions SET is_active = 0 WHERE id = ?`, id)
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id int64) (bool, error) {
	return r.execRecurring(ctx, `DELETE FROM recurring_transactions WHERE id = ?`, id)
}

func (r *SQLiteRepository) execRecurring(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update recurring transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
