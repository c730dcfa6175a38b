package storage

import (
	"context"
	"fmt"

	"budgetanalyser/internal/core"
)

// RecordImport stores an ingestion run's counters.
func (r *SQLiteRepository) RecordImport(ctx context.Context, run core.ImportRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO imports (id, account, source, processed, inserted, duplicates, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Account, run.Source, run.Processed, run.Inserted, run.Duplicates,
		run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record import %s: %w", run.ID, err)
	}
	return nil
}

// ListImports returns the most recent runs first; limit <= 0 means all.
func (r *SQLiteRepository) ListImports(ctx context.Context, limit int) ([]core.ImportRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account, source, processed, inserted, duplicates, created_at
		FROM imports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []core.ImportRun
	for rows.Next() {
		var (
			run       core.ImportRun
			createdAt string
		)
		if err := rows.Scan(&run.ID, &run.Account, &run.Source, &run.Processed, &run.Inserted, &run.Duplicates, &createdAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		run.CreatedAt = parseTimestamp(createdAt)
		out = append(out, run)
	}
	return out, rows.Err()
}
