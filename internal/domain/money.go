package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for amounts and hours.
const MoneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)

	// DefaultWithholdingTaxRate is 20%, expressed as a fraction.
	DefaultWithholdingTaxRate = decimal.New(20, -2)
)

// RoundMoney rounds d to MoneyPlaces (half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// HoursFromMinutes converts whole minutes to hours rounded to MoneyPlaces.
func HoursFromMinutes(minutes int64) decimal.Decimal {
	return RoundMoney(decimal.NewFromInt(minutes).Div(sixty))
}

// moveHours replaces the rounded hours of a before-minute total with those of
// an after-minute total, leaving any manual adjustment in current intact.
func moveHours(current decimal.Decimal, before, after int64) decimal.Decimal {
	delta := HoursFromMinutes(after).Sub(HoursFromMinutes(before))
	return decimal.Max(decimal.Zero, current.Add(delta))
}

// AmountForMinutes is minutes/60 * rate, multiplied before dividing so that
// the only rounding happens on the final amount.
func AmountForMinutes(minutes int64, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(decimal.NewFromInt(minutes).Mul(rate).Div(sixty))
}

// PercentOf returns amount * pct / 100 rounded to MoneyPlaces.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(hundred))
}

// CompletionPercentage is round(actual/estimated*100) clamped to [0,100].
// An estimate of zero yields 0.
func CompletionPercentage(actual, estimated decimal.Decimal) int {
	if !estimated.IsPositive() {
		return 0
	}
	pct := actual.Div(estimated).Mul(hundred).Round(0).IntPart()
	return int(math.Max(0, math.Min(100, float64(pct))))
}
