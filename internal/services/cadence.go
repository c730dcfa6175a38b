// Package services holds the budget and pattern analytics built on top of the
// store and the report lists: budget progress, savings, net worth and
// recurring-expense detection.
//
// This file implements the Strategy Pattern for recurring frequencies. Each
// frequency has a cadence that knows which average gap it covers, how an
// occurrence converts to a monthly cost, and when the next one is due.
package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgetanalyser/internal/core"
)

// Cadence is the strategy interface for one recurring frequency.
type Cadence interface {
	// Fits reports whether an average gap between occurrences, in days,
	// belongs to this cadence.
	Fits(avgDays float64) bool
	// MonthlyCost converts the amount of one occurrence to a monthly figure.
	MonthlyCost(amount decimal.Decimal) decimal.Decimal
	// NextDue returns the date the occurrence after last is expected.
	NextDue(last core.Date) core.Date
}

var (
	weeksPerMonth = decimal.RequireFromString("4.33")
	three         = decimal.NewFromInt(3)
	twelve        = decimal.NewFromInt(12)
)

type WeeklyCadence struct{}

func (WeeklyCadence) Fits(avgDays float64) bool { return avgDays <= 10 }

func (WeeklyCadence) MonthlyCost(amount decimal.Decimal) decimal.Decimal {
	return amount.Abs().Mul(weeksPerMonth)
}

func (WeeklyCadence) NextDue(last core.Date) core.Date {
	return core.Date{Time: last.AddDate(0, 0, 7)}
}

type MonthlyCadence struct{}

func (MonthlyCadence) Fits(avgDays float64) bool { return avgDays <= 45 }

func (MonthlyCadence) MonthlyCost(amount decimal.Decimal) decimal.Decimal { return amount.Abs() }

// NextDue clamps to the last day of the following month, so a bill on the
// 31st is next due on the 30th or 28th.
func (MonthlyCadence) NextDue(last core.Date) core.Date {
	return addMonthsClamped(last, 1)
}

type QuarterlyCadence struct{}

func (QuarterlyCadence) Fits(avgDays float64) bool { return avgDays <= 100 }

func (QuarterlyCadence) MonthlyCost(amount decimal.Decimal) decimal.Decimal {
	return amount.Abs().Div(three)
}

func (QuarterlyCadence) NextDue(last core.Date) core.Date {
	return addMonthsClamped(last, 3)
}

type YearlyCadence struct{}

func (YearlyCadence) Fits(float64) bool { return true }

func (YearlyCadence) MonthlyCost(amount decimal.Decimal) decimal.Decimal {
	return amount.Abs().Div(twelve)
}

func (YearlyCadence) NextDue(last core.Date) core.Date {
	return addMonthsClamped(last, 12)
}

// cadences maps frequencies to their strategies.
var cadences = map[core.Frequency]Cadence{
	core.Weekly:    WeeklyCadence{},
	core.Monthly:   MonthlyCadence{},
	core.Quarterly: QuarterlyCadence{},
	core.Yearly:    YearlyCadence{},
}

// estimationOrder is the order cadences are tried in; the first that fits
// wins, so narrower gaps come first.
var estimationOrder = []core.Frequency{core.Weekly, core.Monthly, core.Quarterly, core.Yearly}

// GetCadence returns the cadence for a frequency.
func GetCadence(frequency core.Frequency) (Cadence, error) {
	c, ok := cadences[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return c, nil
}

// EstimateFrequency picks a frequency from the days between the first and
// last of count occurrences. A zero span or a single occurrence is monthly.
func EstimateFrequency(spanDays, count int) core.Frequency {
	if spanDays <= 0 || count < 2 {
		return core.Monthly
	}
	avg := float64(spanDays) / float64(count-1)
	for _, f := range estimationOrder {
		if cadences[f].Fits(avg) {
			return f
		}
	}
	return core.Yearly
}

func addMonthsClamped(d core.Date, months int) core.Date {
	first := core.NewDate(d.Year(), d.Month()+months, 1)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(first.Year(), first.Month(), day)
}
