package mappings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"budgetanalyser/internal/core"
)

// LoadCashflowMapping reads {"Earnings": [...], "Expenses": [...]}. Keys are
// matched case-insensitively. A missing file yields the defaults.
func LoadCashflowMapping(path string) (core.CashflowMapping, error) {
	if path == "" {
		return core.DefaultCashflowMapping(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.DefaultCashflowMapping(), nil
	}
	if err != nil {
		return core.CashflowMapping{}, &core.DataSourceError{Path: path, Err: err}
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.CashflowMapping{}, &core.DataSourceError{Path: path, Err: fmt.Errorf("decode cashflow mapping: %w", err)}
	}

	var out core.CashflowMapping
	for k, v := range raw {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "earnings":
			out.Earnings = cleanList(v)
		case "expenses":
			out.Expenses = cleanList(v)
		}
	}
	return out.Normalized(), nil
}

// SaveCashflowMapping writes the partition atomically. A category listed in
// both partitions is kept only under Expenses.
func SaveCashflowMapping(path string, m core.CashflowMapping) error {
	expenses := cleanList(m.Expenses)
	inExpenses := make(map[string]bool, len(expenses))
	for _, c := range expenses {
		inExpenses[strings.ToLower(c)] = true
	}
	var earnings []string
	for _, c := range cleanList(m.Earnings) {
		if !inExpenses[strings.ToLower(c)] {
			earnings = append(earnings, c)
		}
	}
	if earnings == nil {
		earnings = []string{}
	}
	if expenses == nil {
		expenses = []string{}
	}

	data, err := json.MarshalIndent(struct {
		Earnings []string `json:"Earnings"`
		Expenses []string `json:"Expenses"`
	}{earnings, expenses}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cashflow mapping: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// cleanList trims entries and drops blanks and case-insensitive duplicates.
func cleanList(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
