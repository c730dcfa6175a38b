package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// DefaultMinOccurrences is the detection threshold when none is given.
const DefaultMinOccurrences = 2

// DefaultTolerancePercent is the anomaly threshold used by the CLI when
// -tolerance is not given.
var DefaultTolerancePercent = decimal.NewFromInt(10)

// DetectedRecurring is a candidate recurring expense found in history.
type DetectedRecurring struct {
	Description string
	Amount      decimal.Decimal
	Frequency   core.Frequency
	Occurrences int
	Category    string
	SubCategory string
	FirstDate   core.Date
	LastDate    core.Date
}

// RecurringSummary projects the cost of the active recurring items.
type RecurringSummary struct {
	MonthlyTotal     decimal.Decimal
	YearlyProjection decimal.Decimal
	Count            int
}

// Anomaly flags a recurring item whose latest charge moved away from the
// expected amount. Amounts are absolute.
type Anomaly struct {
	Description       string
	Expected          decimal.Decimal
	Actual            decimal.Decimal
	Difference        decimal.Decimal // Actual - Expected
	DifferencePercent decimal.Decimal
	Date              core.Date
}

type RecurringStore interface {
	UpsertRecurring(ctx context.Context, item core.RecurringTransaction) (core.RecurringTransaction, error)
	ListRecurring(ctx context.Context, activeOnly bool) ([]core.RecurringTransaction, error)
	UpdateRecurringLastOccurrence(ctx context.Context, id int64, date core.Date) (bool, error)
	DeactivateRecurring(ctx context.Context, id int64) (bool, error)
	DeleteRecurring(ctx context.Context, id int64) (bool, error)
}

type RecurringService struct {
	store  RecurringStore
	logger *slog.Logger
}

func NewRecurringService(store RecurringStore, logger *slog.Logger) *RecurringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurringService{store: store, logger: logger.With("component", "recurring_service")}
}

func (s *RecurringService) Add(ctx context.Context, item core.RecurringTransaction) (core.RecurringTransaction, error) {
	return s.store.UpsertRecurring(ctx, item)
}

// Track saves a detected candidate and stamps its last occurrence.
func (s *RecurringService) Track(ctx context.Context, d DetectedRecurring) (core.RecurringTransaction, error) {
	item, err := s.store.UpsertRecurring(ctx, core.RecurringTransaction{
		Description:    d.Description,
		ExpectedAmount: d.Amount,
		Frequency:      d.Frequency,
		Category:       d.Category,
		SubCategory:    d.SubCategory,
	})
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if d.LastDate.Valid() {
		if _, err := s.store.UpdateRecurringLastOccurrence(ctx, item.ID, d.LastDate); err != nil {
			return item, fmt.Errorf("stamp last occurrence: %w", err)
		}
		item.LastOccurrence = d.LastDate
	}
	return item, nil
}

func (s *RecurringService) List(ctx context.Context, activeOnly bool) ([]core.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx, activeOnly)
}

func (s *RecurringService) Deactivate(ctx context.Context, id int64) (bool, error) {
	return s.store.DeactivateRecurring(ctx, id)
}

func (s *RecurringService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.store.DeleteRecurring(ctx, id)
}

// Detect groups expense rows by description and amount in cents and keeps
// the groups seen at least minOccurrences times. Rows without a valid date
// are ignored. Results are sorted by occurrences, most first.
func (s *RecurringService) Detect(txs []core.Transaction, minOccurrences int) []DetectedRecurring {
	if minOccurrences <= 0 {
		minOccurrences = DefaultMinOccurrences
	}

	type key struct {
		description string
		cents       int64
	}
	groups := map[key]*DetectedRecurring{}
	var order []key
	for _, tx := range txs {
		if !tx.Date.Valid() {
			continue
		}
		k := key{tx.Description, core.ToCents(tx.Amount)}
		g, ok := groups[k]
		if !ok {
			g = &DetectedRecurring{
				Description: tx.Description,
				Amount:      core.RoundCents(tx.Amount),
				Category:    tx.Category,
				SubCategory: tx.SubCategory,
				FirstDate:   tx.Date,
				LastDate:    tx.Date,
			}
			groups[k] = g
			order = append(order, k)
		}
		g.Occurrences++
		if tx.Date.Before(g.FirstDate.Time) {
			g.FirstDate = tx.Date
		}
		if tx.Date.After(g.LastDate.Time) {
			g.LastDate = tx.Date
		}
	}

	var out []DetectedRecurring
	for _, k := range order {
		g := groups[k]
		if g.Occurrences < minOccurrences {
			continue
		}
		span := int(g.LastDate.Sub(g.FirstDate.Time).Hours() / 24)
		g.Frequency = EstimateFrequency(span, g.Occurrences)
		out = append(out, *g)
	}
	slices.SortStableFunc(out, func(a, b DetectedRecurring) int {
		return cmp.Compare(b.Occurrences, a.Occurrences)
	})

	s.logger.Info("Detected recurring transactions", "count", len(out), "min_occurrences", minOccurrences)
	return out
}

// Summary converts every active item to a monthly cost through its cadence.
func (s *RecurringService) Summary(ctx context.Context) (RecurringSummary, error) {
	items, err := s.store.ListRecurring(ctx, true)
	if err != nil {
		return RecurringSummary{}, fmt.Errorf("list recurring transactions: %w", err)
	}
	monthly := decimal.Zero
	for _, item := range items {
		c, err := GetCadence(item.Frequency)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping recurring item", "description", item.Description, "error", err)
			continue
		}
		monthly = monthly.Add(c.MonthlyCost(item.ExpectedAmount))
	}
	return RecurringSummary{
		MonthlyTotal:     monthly,
		YearlyProjection: monthly.Mul(twelve),
		Count:            len(items),
	}, nil
}

// CheckAnomalies compares each active item with the most recent row whose
// description contains the item's, ignoring case. Deviations above
// tolerancePercent are returned; zero reports any change at all.
func (s *RecurringService) CheckAnomalies(ctx context.Context, txs []core.Transaction, tolerancePercent decimal.Decimal) ([]Anomaly, error) {
	if tolerancePercent.IsNegative() {
		return nil, fmt.Errorf("anomaly tolerance %s%% is negative", tolerancePercent)
	}
	items, err := s.store.ListRecurring(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	if len(items) == 0 || len(txs) == 0 {
		return nil, nil
	}

	var out []Anomaly
	for _, item := range items {
		recent, ok := mostRecentMatch(txs, item.Description)
		if !ok {
			continue
		}
		expected := item.ExpectedAmount.Abs()
		if !expected.IsPositive() {
			continue
		}
		actual := recent.Amount.Abs()
		diff := actual.Sub(expected)
		pct := diff.Abs().Div(expected).Mul(hundred)
		if pct.GreaterThan(tolerancePercent) {
			out = append(out, Anomaly{
				Description:       item.Description,
				Expected:          expected,
				Actual:            actual,
				Difference:        diff,
				DifferencePercent: pct,
				Date:              recent.Date,
			})
		}
	}
	if len(out) > 0 {
		s.logger.InfoContext(ctx, "Recurring anomalies found", "count", len(out), "tolerance", tolerancePercent.String())
	}
	return out, nil
}

// Overdue lists active items whose next expected date, per their cadence,
// is before asOf. Items never seen are not overdue.
func (s *RecurringService) Overdue(ctx context.Context, asOf core.Date) ([]core.RecurringTransaction, error) {
	items, err := s.store.ListRecurring(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	var out []core.RecurringTransaction
	for _, item := range items {
		if !item.LastOccurrence.Valid() {
			continue
		}
		c, err := GetCadence(item.Frequency)
		if err != nil {
			continue
		}
		if c.NextDue(item.LastOccurrence).Before(asOf.Time) {
			out = append(out, item)
		}
	}
	return out, nil
}

// mostRecentMatch picks the latest-dated row whose description contains
// needle, ignoring case. Undated rows only win when nothing dated matches.
func mostRecentMatch(txs []core.Transaction, needle string) (core.Transaction, bool) {
	needle = strings.ToLower(needle)
	var (
		best  core.Transaction
		found bool
	)
	for _, tx := range txs {
		if !strings.Contains(strings.ToLower(tx.Description), needle) {
			continue
		}
		if !found || tx.Date.After(best.Date.Time) {
			best, found = tx, true
		}
	}
	return best, found
}
