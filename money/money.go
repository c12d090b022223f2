/*
Package money converts between human-typed Brazilian-style amounts and decimals.

PURPOSE:
  Users type amounts the way they read them on a statement: "1.126.260,90".
  The dot groups thousands and the comma separates the cents. This package
  turns that text into an exact decimal.Decimal and renders decimals back
  into the same convention.

KEY FUNCTIONS:
  - Parse:  "1.126.260,90" -> 1126260.90
  - Format: 1126260.90     -> "1.126.260,90"
  - Round2: round half away from zero to 2 places (used at every engine step)

ROUND-TRIP LAW:
  For every 2-place value x: Parse(Format(x)) == x.

LIMITS:
  Only plain digits are accepted, no exponents. Values are also capped at
  MaxIntegerDigits integer digits and MaxFractionDigits fractional digits so
  rounding and formatting work on small numbers only.

PRECISION:
  Uses decimal.Decimal throughout. No float64 ever touches an amount.

SEE ALSO:
  - distribution/engine.go: Uses Round2 at each intermediate step
  - api/dto.go: Uses Format for display fields
*/
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits every exposed amount carries.
const Places = 2

const (
	// MaxIntegerDigits bounds the integer part (up to 999 trillion).
	MaxIntegerDigits = 15
	// MaxFractionDigits bounds the fractional part.
	MaxFractionDigits = 10
)

const (
	thousandsSep = "."
	decimalSep   = ","
)

// plainNumber is what remains after separator substitution.
var plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidAmount is returned when text cannot be read as an amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrOutOfRange is returned for values with too many digits.
	ErrOutOfRange = errors.New("amount out of range")
)

// ParseError carries the text that failed to parse.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrOutOfRange) {
		return fmt.Sprintf("invalid amount %q: at most %d integer and %d fractional digits",
			e.Input, MaxIntegerDigits, MaxFractionDigits)
	}
	return fmt.Sprintf("invalid amount %q", e.Input)
}

// Unwrap matches both ErrInvalidAmount and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalidAmount, e.Err}
}

// =============================================================================
// PARSE / FORMAT
// =============================================================================

// Parse reads a locale-formatted amount. Every "." is dropped as a thousands
// separator and "," becomes the decimal point. Blank input is zero.
func Parse(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, nil
	}

	s = strings.ReplaceAll(s, thousandsSep, "")
	s = strings.ReplaceAll(s, decimalSep, ".")
	if !plainNumber.MatchString(s) {
		return decimal.Zero, &ParseError{Input: text, Err: fmt.Errorf("not a plain number: %q", s)}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ParseError{Input: text, Err: err}
	}
	if !InRange(d) {
		return decimal.Zero, &ParseError{Input: text, Err: ErrOutOfRange}
	}
	return d, nil
}

// InRange reports whether d fits MaxIntegerDigits and MaxFractionDigits.
// It only inspects the coefficient and exponent, so it is safe to call on
// values decoded from untrusted JSON.
func InRange(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	intDigits := int64(d.NumDigits()) + exp
	return intDigits <= MaxIntegerDigits && -exp <= MaxFractionDigits
}

// MustParse is Parse for literals known to be valid. Panics otherwise.
func MustParse(text string) decimal.Decimal {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders d with exactly two decimals, "." grouping and "," decimals.
func Format(d decimal.Decimal) string {
	fixed := Round2(d).StringFixed(Places)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.Grow(len(fixed) + len(intPart)/3 + 1)
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousandsSep)
		}
		b.WriteRune(r)
	}
	b.WriteString(decimalSep)
	b.WriteString(fracPart)
	return b.String()
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}
