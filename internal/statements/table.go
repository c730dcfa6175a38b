package statements

import "strings"

// Table is a raw statement export: a header row and its records.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of column name, or -1.
func (t Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// IndexFold is Index with case-insensitive matching.
func (t Table) IndexFold(name string) int {
	if i := t.Index(name); i >= 0 {
		return i
	}
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Cell returns row[col], tolerating ragged rows.
func (t Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Head returns up to n rows for diagnostics.
func (t Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}
