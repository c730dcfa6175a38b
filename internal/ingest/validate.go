package ingest

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"budgetanalyser/internal/statements"
)

const amountOrDebitCredit = "Amount (or Debit+Credit)"

// Validation is the pre-flight check of a statement against its account's
// expected source columns.
type Validation struct {
	Valid   bool
	Message string
	Missing []string
}

// ValidateCSV checks that path is a readable CSV carrying the source columns
// configured for acct. An amount column may be replaced by Debit and Credit.
func ValidateCSV(path string, acct statements.AccountConfig) Validation {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return Validation{Message: "File must be a CSV file (.csv extension)"}
	}
	table, err := statements.ReadCSV(path)
	if err != nil {
		return Validation{Message: fmt.Sprintf("Failed to read CSV: %v", err)}
	}
	if table.Empty() {
		return Validation{Message: "CSV file is empty"}
	}
	if len(acct.Columns) == 0 {
		return Validation{Message: fmt.Sprintf("No column mapping found for bank '%s' in configuration", acct.Name)}
	}

	missing := missingColumns(table.Header, expectedColumns(acct))
	if len(missing) > 0 {
		return Validation{
			Message: fmt.Sprintf("Missing required columns: %s. Found columns: %s",
				strings.Join(missing, ", "), strings.Join(table.Header, ", ")),
			Missing: missing,
		}
	}
	return Validation{Valid: true, Message: "CSV format is valid"}
}

func expectedColumns(acct statements.AccountConfig) []string {
	out := make([]string, 0, len(acct.Columns))
	for _, source := range acct.Columns {
		out = append(out, source)
	}
	return out
}

func missingColumns(header, expected []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.ToLower(h)] = true
	}
	hasDebitCredit := present["debit"] && present["credit"]

	var missing []string
	amountExpected := false
	for _, e := range expected {
		lower := strings.ToLower(e)
		if lower == "amount" {
			amountExpected = true
		}
		if present[lower] || lower == "debit" || lower == "credit" {
			continue
		}
		if lower == "amount" {
			continue
		}
		missing = append(missing, e)
	}
	if amountExpected && !present["amount"] && !hasDebitCredit {
		missing = append(missing, amountOrDebitCredit)
	}
	slices.Sort(missing)
	return missing
}
