package reporting

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// Reconciliation compares card payments sent from checking with the
// confirmations posted on the cards for one month. Totals are absolute.
type Reconciliation struct {
	Month                     core.YearMonth
	PaymentsMade              []core.Transaction
	PaymentConfirmations      []core.Transaction
	TotalPaymentsMade         decimal.Decimal
	TotalPaymentConfirmations decimal.Decimal
	// Difference is confirmations minus payments; zero when balanced.
	Difference decimal.Decimal
}

type PaymentsReconciliation struct {
	monthIndex
	logger *slog.Logger
}

func NewPaymentsReconciliation(reports []MonthlyReport, logger *slog.Logger) *PaymentsReconciliation {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentsReconciliation{
		monthIndex: newMonthIndex(reports),
		logger:     logger.With("component", "payments_reconciliation"),
	}
}

// Month reconciles ym using the unfiltered month transactions. Rows are
// newest first.
func (p *PaymentsReconciliation) Month(ym core.YearMonth) Reconciliation {
	r := Reconciliation{
		Month:                     ym,
		TotalPaymentsMade:         decimal.Zero,
		TotalPaymentConfirmations: decimal.Zero,
		Difference:                decimal.Zero,
	}
	mr, ok := p.byMonth[ym]
	if !ok {
		return r
	}

	for _, tx := range mr.Transactions {
		switch tx.SubCategory {
		case SubCategoryPaymentsMade:
			r.PaymentsMade = append(r.PaymentsMade, tx)
			r.TotalPaymentsMade = r.TotalPaymentsMade.Add(tx.Amount.Abs())
		case SubCategoryPaymentConfirmations:
			r.PaymentConfirmations = append(r.PaymentConfirmations, tx)
			r.TotalPaymentConfirmations = r.TotalPaymentConfirmations.Add(tx.Amount.Abs())
		}
	}
	newestFirst(r.PaymentsMade)
	newestFirst(r.PaymentConfirmations)
	r.Difference = r.TotalPaymentConfirmations.Sub(r.TotalPaymentsMade)

	if !r.Difference.IsZero() {
		p.logger.Debug("Payments do not reconcile", "month", ym.String(), "difference", r.Difference.StringFixed(2))
	}
	return r
}

func newestFirst(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		return cmp.Compare(b.Date.Unix(), a.Date.Unix())
	})
}
