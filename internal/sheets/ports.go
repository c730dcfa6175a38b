package sheets

import "context"

// Ports for outbound table adapters.
type (
	// TableWriter replaces the contents of a named sheet, creating it when
	// missing.
	TableWriter interface {
		WriteTable(ctx context.Context, sheet string, rows [][]string) error
	}

	TableReader interface {
		ReadTable(ctx context.Context, sheet string) ([][]string, error)
	}
)
