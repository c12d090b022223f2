/*
calculator.go - Parse, guard, toggle and allocate in one call

PURPOSE:
  The single entry point any interface (CLI, HTTP handler, test) calls.
  The toggle state is passed in and the next state is returned, so the
  caller owns it (a local variable, a session row, ...).

REQUEST FLOW:
  1. money.Parse(amountText)       -> *money.ParseError, state unchanged
  2. total == 0                    -> ErrZeroAmount, state unchanged
  3. pct outside money.InRange     -> ErrVariationOutOfRange, state unchanged
  4. next := state.Next()          exactly once per accepted call
  5. Allocate(total, pct, next)

  A result that does not reconcile is still returned with a nil error.
  Use Result.Check to surface the discrepancy.
*/
package distribution

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/credit-engine/money"
)

// Calculator binds the fixed inputs of a deployment.
type Calculator struct {
	Rates     Rates
	Tolerance decimal.Decimal
}

// NewCalculator returns a calculator with the default rates and tolerance.
func NewCalculator() *Calculator {
	return &Calculator{Rates: DefaultRates, Tolerance: DefaultTolerance}
}

// Distribute runs one accepted calculation. On error the returned state is
// the one passed in.
func (c *Calculator) Distribute(state Pattern, amountText string, variationPercent decimal.Decimal) (Result, Pattern, error) {
	total, err := money.Parse(amountText)
	if err != nil {
		return Result{}, state, err
	}
	return c.DistributeAmount(state, total, variationPercent)
}

// DistributeAmount is Distribute for an already parsed total.
func (c *Calculator) DistributeAmount(state Pattern, total, variationPercent decimal.Decimal) (Result, Pattern, error) {
	if total.IsZero() {
		return Result{}, state, ErrZeroAmount
	}
	if !money.InRange(total) {
		return Result{}, state, fmt.Errorf("%w: %w", money.ErrInvalidAmount, money.ErrOutOfRange)
	}
	if !money.InRange(variationPercent) {
		return Result{}, state, ErrVariationOutOfRange
	}

	next := state.Next()
	return Allocate(total, variationPercent, next, c.Rates), next, nil
}

// EffectiveTolerance returns the configured tolerance, or DefaultTolerance when unset.
func (c *Calculator) EffectiveTolerance() decimal.Decimal {
	if c.Tolerance.IsPositive() {
		return c.Tolerance
	}
	return DefaultTolerance
}
