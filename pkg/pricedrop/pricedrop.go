// Package pricedrop compares a fresh quote against a booking's reference
// price and classifies any drop it finds.
package pricedrop

import (
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

var (
	hundred = decimal.NewFromInt(100)
	fifty   = decimal.NewFromInt(50)
	fifteen = decimal.NewFromInt(15)
	ten     = decimal.NewFromInt(10)
	five    = decimal.NewFromInt(5)
)

// Threshold labels attached to alerts.
const (
	LabelOver100    = ">$100 drop"
	LabelOver50     = ">$50 drop"
	LabelOver10Pct  = ">10% drop"
	LabelOver5Pct   = ">5% drop"
	LabelOver10Flat = ">$10 drop"
)

// Result is the outcome of comparing a quote to a reference price.
type Result struct {
	DeltaAmount  decimal.Decimal
	DeltaPercent decimal.Decimal
	IsDrop       bool
}

// Evaluate compares quote against reference. A drop is strictly lower;
// for anything else both deltas are zero. The percentage is rounded to
// two decimals and is zero when the reference is zero.
func Evaluate(reference, quote decimal.Decimal) Result {
	if !quote.LessThan(reference) {
		return Result{DeltaAmount: decimal.Zero, DeltaPercent: decimal.Zero}
	}

	delta := reference.Sub(quote)
	return Result{
		DeltaAmount:  delta,
		DeltaPercent: Percent(delta, reference),
		IsDrop:       true,
	}
}

// Percent returns delta as a percentage of reference rounded to two decimals.
func Percent(delta, reference decimal.Decimal) decimal.Decimal {
	if reference.IsZero() {
		return decimal.Zero
	}
	return delta.Mul(hundred).Div(reference).Round(2)
}

// ClassifySeverity maps a drop onto low, medium or high.
func ClassifySeverity(amount, percent decimal.Decimal) domain.Severity {
	switch {
	case amount.GreaterThanOrEqual(hundred) || percent.GreaterThanOrEqual(fifteen):
		return domain.SeverityHigh
	case amount.GreaterThanOrEqual(fifty) || percent.GreaterThanOrEqual(ten):
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// ClassifyThreshold returns the first matching display label for a drop.
// It is independent of whether the user is notified.
func ClassifyThreshold(amount, percent decimal.Decimal) string {
	switch {
	case amount.GreaterThanOrEqual(hundred):
		return LabelOver100
	case amount.GreaterThanOrEqual(fifty):
		return LabelOver50
	case percent.GreaterThanOrEqual(ten):
		return LabelOver10Pct
	case percent.GreaterThanOrEqual(five):
		return LabelOver5Pct
	default:
		return LabelOver10Flat
	}
}

// FormatPercent renders a percentage with at least one decimal place.
func FormatPercent(p decimal.Decimal) string {
	if p.Equal(p.Truncate(0)) {
		return p.StringFixed(1) + "%"
	}
	return p.String() + "%"
}
