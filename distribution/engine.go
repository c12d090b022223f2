/*
engine.go - Three-period allocation with residual reconciliation

ALGORITHM:
  1. base      = round(total / 3)                  period 1
  2. variation = round(base * percent / 100)
  3. period 2  = round(base - variation)           STANDARD
               = round(base + variation)           INVERTED
  4. period 3  = round(total - (period1 + period2)) residual ("goal seek")
  5. per period T:
       componentA = round(T * rateA / (rateA + rateB))
       componentB = T - componentA

  Every round is to 2 places, half away from zero.

WHY PERIOD 3 IS A RESIDUAL:
  Period 3 never has its own formula. Whatever rounding steps 1-3 introduce
  lands in period 3, so the months reconcile with the input. Period 3 may
  differ from the "expected" mirror of period 2 by a cent; that is accepted.

WHY COMPONENT B IS SUBTRACTED:
  Rounding both components independently can drift a cent away from the
  period total. Subtraction makes A + B == T exact.

INPUTS:
  Any numeric input is accepted. Negative or >100 percentages produce
  whatever the arithmetic yields. The zero-total guard belongs to callers
  (see calculator.go).
*/
package distribution

import (
	"github.com/shopspring/decimal"
	"github.com/warp/credit-engine/money"
)

var (
	three   = decimal.NewFromInt(PeriodCount)
	hundred = decimal.NewFromInt(100)

	// DefaultTolerance is the largest residual still considered reconciled (exclusive).
	DefaultTolerance = decimal.RequireFromString("0.01")
)

// Allocate distributes total across three periods using the given pattern.
// A zero-value Rates (or one whose rates sum to zero) falls back to DefaultRates.
func Allocate(total, variationPercent decimal.Decimal, pattern Pattern, rates Rates) Result {
	if rates.RateA.Add(rates.RateB).IsZero() {
		rates = DefaultRates
	}
	if !pattern.Valid() {
		pattern = PatternStandard
	}

	base := money.Round2(total.Div(three))
	variation := money.Round2(base.Mul(variationPercent).Div(hundred))

	p1 := base
	var p2 decimal.Decimal
	if pattern == PatternInverted {
		p2 = money.Round2(base.Add(variation))
	} else {
		p2 = money.Round2(base.Sub(variation))
	}
	p3 := money.Round2(total.Sub(p1.Add(p2)))

	result := Result{
		Pattern: pattern,
		Rates:   rates,
		Total:   total,
	}
	for i, t := range [PeriodCount]decimal.Decimal{p1, p2, p3} {
		result.Periods[i] = split(periodLabels[i], t, rates)
	}
	result.Sum = p1.Add(p2).Add(p3)
	result.Residual = result.Sum.Sub(total)
	return result
}

func split(label string, total decimal.Decimal, rates Rates) PeriodAllocation {
	a := money.Round2(total.Mul(rates.RateA).Div(rates.RateA.Add(rates.RateB)))
	return PeriodAllocation{
		Label:      label,
		ComponentA: a,
		ComponentB: total.Sub(a),
		Total:      total,
	}
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Reconciled reports whether |Residual| < tolerance.
func (r Result) Reconciled(tolerance decimal.Decimal) bool {
	return r.Residual.Abs().LessThan(tolerance)
}

// Check returns a *ResidualError when the result does not reconcile.
func (r Result) Check(tolerance decimal.Decimal) error {
	if r.Reconciled(tolerance) {
		return nil
	}
	return &ResidualError{
		Total:     r.Total,
		Sum:       r.Sum,
		Residual:  r.Residual,
		Tolerance: tolerance,
	}
}
