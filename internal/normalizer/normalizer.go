package normalizer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
	"budgetanalyser/internal/statements"
)

// Normalizer turns a bank's raw table into canonical transactions.
type Normalizer struct {
	logger    *slog.Logger
	adjusters map[string]SignAdjuster
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger:    logger.With("component", "normalizer"),
		adjusters: DefaultSignAdjusters(),
	}
}

// Register installs a sign adjuster for an account identifier.
func (n *Normalizer) Register(account string, adjuster SignAdjuster) {
	n.adjusters[accountKey(account)] = adjuster
}

// AdjusterFor returns the account's adjuster, or Identity when none is registered.
func (n *Normalizer) AdjusterFor(account string) SignAdjuster {
	if a, ok := n.adjusters[accountKey(account)]; ok {
		return a
	}
	return Identity
}

// Normalize maps table columns through mapping (source name -> canonical
// name), stamps the account and applies its sign convention.
func (n *Normalizer) Normalize(table statements.Table, account string, mapping map[string]string) ([]core.Transaction, error) {
	debitCol, creditCol := -1, -1
	if !hasAmountColumn(table.Header, mapping) {
		debitCol, creditCol = table.IndexFold("Debit"), table.IndexFold("Credit")
		if debitCol < 0 || creditCol < 0 {
			return nil, &core.MappingNotFoundError{
				Account: account,
				Message: "amount column missing and Debit/Credit columns not present to derive it",
				Present: append([]string(nil), table.Header...),
			}
		}
	}

	if len(mapping) == 0 {
		return nil, &core.MappingNotFoundError{Account: account, Message: "no column mapping provided"}
	}

	renamed := renameColumns(table.Header, mapping)
	idx := map[string]int{}
	var missing []string
	for _, col := range core.RequiredColumns {
		switch {
		case col == core.ColFromAccount:
			continue
		case col == core.ColAmount && debitCol >= 0:
			continue
		}
		i := indexOf(renamed, col)
		if i < 0 {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		present := append(append([]string(nil), renamed...), core.ColFromAccount)
		return nil, &core.MappingNotFoundError{
			Account: account,
			Message: "required columns absent after formatting",
			Missing: missing,
			Present: present,
		}
	}

	adjust := n.AdjusterFor(account)
	out := make([]core.Transaction, 0, len(table.Rows))
	invalidDates := 0
	for rowNum, row := range table.Rows {
		var amount decimal.Decimal
		var err error
		if debitCol >= 0 {
			amount, err = debitOrCredit(table.Cell(row, debitCol), table.Cell(row, creditCol))
		} else {
			amount, err = core.ParseAmount(table.Cell(row, idx[core.ColAmount]))
		}
		if err != nil {
			return nil, &core.ValidationError{
				Field:   core.ColAmount,
				Message: fmt.Sprintf("account %q row %d: %v", account, rowNum+1, err),
			}
		}

		date := ParseDate(table.Cell(row, idx[core.ColDate]))
		if !date.Valid() {
			invalidDates++
		}

		out = append(out, core.Transaction{
			Date:        date,
			Description: table.Cell(row, idx[core.ColDescription]),
			Amount:      adjust.Adjust(amount),
			FromAccount: account,
		})
	}

	if invalidDates > 0 {
		n.logger.Warn("Unparseable transaction dates", "account", account, "count", invalidDates)
	}
	n.logger.Debug("Statement normalized", "account", account, "rows", len(out), "derived_amount", debitCol >= 0)
	return out, nil
}

// hasAmountColumn reports whether the header carries an amount column,
// either by name or through the same folded lookup renameColumns uses.
func hasAmountColumn(header []string, mapping map[string]string) bool {
	renamed := renameColumns(header, mapping)
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), core.ColAmount) || renamed[i] == core.ColAmount {
			return true
		}
	}
	return false
}

// debitOrCredit prefers a non-zero debit; blank cells count as zero.
func debitOrCredit(debit, credit string) (decimal.Decimal, error) {
	d, err := core.ParseAmountOrZero(debit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit %q: %w", debit, err)
	}
	if !d.IsZero() {
		return d, nil
	}
	c, err := core.ParseAmountOrZero(credit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit %q: %w", credit, err)
	}
	return c, nil
}

func renameColumns(header []string, mapping map[string]string) []string {
	folded := make(map[string]string, len(mapping))
	for src, dst := range mapping {
		folded[strings.ToLower(strings.TrimSpace(src))] = dst
	}
	out := make([]string, len(header))
	for i, h := range header {
		if dst, ok := mapping[h]; ok {
			out[i] = dst
		} else if dst, ok := folded[strings.ToLower(strings.TrimSpace(h))]; ok {
			out[i] = dst
		} else {
			out[i] = h
		}
	}
	return out
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
