package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Store keeps written tables in memory. It backs dry runs and tests.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
}

func New() *Store {
	return &Store{tables: map[string][][]string{}}
}

func (s *Store) WriteTable(_ context.Context, sheet string, rows [][]string) error {
	if sheet == "" {
		return fmt.Errorf("empty sheet name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[sheet] = copyRows(rows)
	return nil
}

func (s *Store) ReadTable(_ context.Context, sheet string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return copyRows(rows), nil
}

// Sheets lists the written sheet names in order.
func (s *Store) Sheets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = slices.Clone(row)
	}
	return out
}
