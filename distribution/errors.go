/*
errors.go - Error types for the distribution engine

ERROR CATEGORIES:
  1. Input errors - malformed amount text (money.ErrInvalidAmount), zero total,
     oversized variation percentage
  2. Reconciliation - periods do not sum back to the input within tolerance
  3. Store errors - invalid stored pattern, duplicate run IDs

Nothing here is fatal. Callers re-prompt for input on input errors and show
reconciliation errors to the user instead of hiding them.

SEE ALSO:
  - money/money.go: ParseError
  - calculator.go: Returns these errors
*/
package distribution

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/credit-engine/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrZeroAmount is returned when the parsed total is zero. The toggle is
	// left untouched.
	ErrZeroAmount = errors.New("total amount must not be zero")

	// ErrVariationOutOfRange is returned when the variation percentage has
	// more digits than money.InRange allows.
	ErrVariationOutOfRange = errors.New("variation percent out of range")

	// ErrUnreconciled is returned when the period totals drift from the input
	// by at least the tolerance.
	ErrUnreconciled = errors.New("period totals do not reconcile with input")

	// ErrInvalidPattern is returned by stores holding an unknown pattern value.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrSessionRequired is returned when a session operation gets an empty ID.
	ErrSessionRequired = errors.New("session id required")

	// ErrDuplicateRun is returned when a run ID is recorded twice.
	ErrDuplicateRun = errors.New("duplicate run id")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ResidualError reports a visible rounding discrepancy.
type ResidualError struct {
	Total     decimal.Decimal
	Sum       decimal.Decimal
	Residual  decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *ResidualError) Error() string {
	return fmt.Sprintf("rounding error: periods sum to %s, input was %s (residual %s, tolerance %s)",
		e.Sum, e.Total, e.Residual, e.Tolerance)
}

func (e *ResidualError) Unwrap() error {
	return ErrUnreconciled
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, money.ErrInvalidAmount) ||
		errors.Is(err, ErrZeroAmount) ||
		errors.Is(err, ErrVariationOutOfRange) ||
		errors.Is(err, ErrSessionRequired)
}
