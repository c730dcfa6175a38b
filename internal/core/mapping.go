package core

// RefundCategory is kept positive inside the expenses view.
const RefundCategory = "Refunded_money"

var (
	DefaultEarningsCategories = []string{"Income", "Unplanned_income"}
	DefaultExpenseCategories  = []string{
		"Needs", "Flexible", "Luxuries", "payments_made", "payment_confirmations",
		"Remittance", "Unplanned_Spending's", RefundCategory,
	}
)

type (
	// KeywordRule maps a label to the keywords that select it.
	KeywordRule struct {
		Label    string
		Keywords []string
	}

	// KeywordMapping is a priority list; the first matching rule wins.
	KeywordMapping []KeywordRule

	// CashflowMapping partitions categories into earnings and expenses.
	CashflowMapping struct {
		Earnings       []string
		Expenses       []string
		RefundCategory string
	}
)

// Labels returns the rule labels in priority order.
func (m KeywordMapping) Labels() []string {
	labels := make([]string, 0, len(m))
	for _, r := range m {
		labels = append(labels, r.Label)
	}
	return labels
}

// Lookup returns the keywords for label.
func (m KeywordMapping) Lookup(label string) ([]string, bool) {
	for _, r := range m {
		if r.Label == label {
			return r.Keywords, true
		}
	}
	return nil, false
}

// Equal compares mappings ignoring rule order.
func (m KeywordMapping) Equal(other KeywordMapping) bool {
	if len(m) != len(other) {
		return false
	}
	for _, r := range m {
		kws, ok := other.Lookup(r.Label)
		if !ok || len(kws) != len(r.Keywords) {
			return false
		}
		for i := range kws {
			if kws[i] != r.Keywords[i] {
				return false
			}
		}
	}
	return true
}

// DefaultCashflowMapping returns the built-in earnings/expenses partition.
func DefaultCashflowMapping() CashflowMapping {
	return CashflowMapping{
		Earnings:       append([]string(nil), DefaultEarningsCategories...),
		Expenses:       append([]string(nil), DefaultExpenseCategories...),
		RefundCategory: RefundCategory,
	}
}

// Normalized fills defaults and makes sure the refund category is an expense.
func (c CashflowMapping) Normalized() CashflowMapping {
	out := c
	if len(out.Earnings) == 0 {
		out.Earnings = append([]string(nil), DefaultEarningsCategories...)
	}
	if len(out.Expenses) == 0 {
		out.Expenses = append([]string(nil), DefaultExpenseCategories...)
	}
	if out.RefundCategory == "" {
		out.RefundCategory = RefundCategory
	}
	if !contains(out.Expenses, out.RefundCategory) {
		out.Expenses = append(append([]string(nil), out.Expenses...), out.RefundCategory)
	}
	return out
}

func (c CashflowMapping) IsEarning(category string) bool {
	return contains(c.Earnings, category)
}

// IsExpense is true for expense categories that are not also earnings.
func (c CashflowMapping) IsExpense(category string) bool {
	return contains(c.Expenses, category) && !contains(c.Earnings, category)
}

func (c CashflowMapping) IsRefund(category string) bool {
	return category != "" && category == c.RefundCategory
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
