package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Investment AccountType = "investment"
	CreditCard AccountType = "credit_card"
	Loan       AccountType = "loan"
	Other      AccountType = "other"
)

const (
	Earnings     Direction = "earnings"
	Expenditures Direction = "expenditures"
)

// ScopeAll marks a goal that applies to every month.
const ScopeAll = "ALL"

// Canonical column names produced by the normalizer.
const (
	ColDate        = "transaction_date"
	ColDescription = "description"
	ColAmount      = "amount"
	ColFromAccount = "from_account"
)

// RequiredColumns lists the canonical statement columns in output order.
var RequiredColumns = []string{ColDate, ColDescription, ColAmount, ColFromAccount}

type (
	Frequency   string
	AccountType string

	// Direction is the credit/debit flag derived from the amount sign.
	Direction string

	// Date is a civil date. The zero value marks a date that could not be parsed.
	Date struct {
		time.Time
	}

	Transaction struct {
		Date        Date
		Description string
		Amount      decimal.Decimal // positive = credit
		FromAccount string
		SubCategory string
		Category    string
	}

	BudgetGoal struct {
		ID           int64
		Category     string
		MonthlyLimit decimal.Decimal
		YearMonth    string // ScopeAll or YYYY-MM
		CreatedAt    time.Time
	}

	EarningsGoal struct {
		ID             int64
		SubCategory    string
		ExpectedAmount decimal.Decimal
		YearMonth      string // ScopeAll or YYYY-MM
		CreatedAt      time.Time
	}

	Account struct {
		ID          int64
		Name        string
		Type        AccountType
		Balance     decimal.Decimal
		LastUpdated time.Time
		Notes       string
	}

	RecurringTransaction struct {
		ID             int64
		Description    string
		ExpectedAmount decimal.Decimal
		Frequency      Frequency
		Category       string
		SubCategory    string
		LastOccurrence Date
		IsActive       bool
		CreatedAt      time.Time
	}

	// ImportRun records a single ingestion call.
	ImportRun struct {
		ID         string
		Account    string
		Source     string
		Processed  int
		Inserted   int
		Duplicates int
		CreatedAt  time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyLabel       = errors.New("empty label")
	ErrInvalidScope     = errors.New("invalid goal scope")
)

// Direction reports earnings for strictly positive amounts and
// expenditures otherwise.
func (t Transaction) Direction() Direction {
	if t.Amount.IsPositive() {
		return Earnings
	}
	return Expenditures
}

// Key returns the uniqueness tuple used by the store.
func (t Transaction) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s", t.Date.Format("2006-01-02"), t.Description, ToCents(t.Amount), t.FromAccount)
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Valid reports whether the date was parsed successfully.
func (d Date) Valid() bool {
	return !d.IsZero()
}

func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (a AccountType) Valid() bool {
	switch a {
	case Checking, Savings, Investment, CreditCard, Loan, Other:
		return true
	}
	return false
}

// IsLiability reports whether balances of this account type count against net worth.
func (a AccountType) IsLiability() bool {
	return a == CreditCard || a == Loan
}

// ValidScope accepts ScopeAll or a YYYY-MM month.
func ValidScope(scope string) bool {
	if scope == ScopeAll {
		return true
	}
	_, err := ParseYearMonth(scope)
	return err == nil
}

func (g BudgetGoal) Validate() error {
	if strings.TrimSpace(g.Category) == "" {
		return ErrEmptyLabel
	}
	if g.MonthlyLimit.IsNegative() {
		return ErrInvalidAmount
	}
	if !ValidScope(g.YearMonth) {
		return ErrInvalidScope
	}
	return nil
}

func (g EarningsGoal) Validate() error {
	if strings.TrimSpace(g.SubCategory) == "" {
		return ErrEmptyLabel
	}
	if g.ExpectedAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if !ValidScope(g.YearMonth) {
		return ErrInvalidScope
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyLabel
	}
	if !a.Type.Valid() {
		return fmt.Errorf("invalid account type %q", a.Type)
	}
	return nil
}

func (r RecurringTransaction) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("invalid frequency %q", r.Frequency)
	}
	return nil
}
