/*
Package distribution spreads one tax credit across three accounting periods.

PURPOSE:
  A credit (e.g. a PIS/COFINS refund) is booked over three consecutive
  months. Period 1 takes the even share, period 2 is pushed up or down by a
  variation percentage, and period 3 absorbs whatever is left so the three
  months reconcile to the cent. Each month is then split into its two tax
  components.

KEY CONCEPTS IN THIS FILE (types.go):
  - Pattern: which way period 2 is biased (STANDARD = lower, INVERTED = higher)
  - Rates: the two fixed tax rates used for the per-period split
  - PeriodAllocation: one month of the result
  - Result: the three months plus reconciliation figures
  - Run: an accepted calculation recorded against a session

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, rounded to 2 places at each step
  2. Purity: Allocate never touches state; the toggle is threaded by callers
  3. Exactness: ComponentA + ComponentB == Total for every period

SEE ALSO:
  - engine.go: The allocation algorithm
  - toggle.go: Pattern alternation
  - calculator.go: Parse + guard + toggle + allocate
  - service.go: Session-scoped toggle for concurrent callers
*/
package distribution

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodCount is fixed. The residual step assumes exactly three periods.
const PeriodCount = 3

// =============================================================================
// PATTERN - Direction of the period 2 bias
// =============================================================================

type Pattern string

const (
	// PatternStandard lowers period 2; period 3 absorbs the surplus.
	PatternStandard Pattern = "standard"
	// PatternInverted raises period 2; period 3 absorbs the deficit.
	PatternInverted Pattern = "inverted"
)

// Label is the human-readable status line shown next to a result.
func (p Pattern) Label() string {
	if p == PatternInverted {
		return "Invertido: Mês 2 Alto / Mês 3 Baixo"
	}
	return "Padrão: Mês 2 Baixo / Mês 3 Alto"
}

func (p Pattern) Valid() bool {
	return p == PatternStandard || p == PatternInverted
}

// =============================================================================
// RATES - Fixed tax rates for the per-period split
// =============================================================================

// Rates holds the two percentage rates a period total is split by.
// Only their proportion matters: ComponentA = Total * RateA / (RateA + RateB).
type Rates struct {
	NameA string
	RateA decimal.Decimal
	NameB string
	RateB decimal.Decimal
}

// DefaultRates are the non-cumulative PIS and COFINS rates.
var DefaultRates = Rates{
	NameA: "PIS",
	RateA: decimal.RequireFromString("1.65"),
	NameB: "COFINS",
	RateB: decimal.RequireFromString("7.60"),
}

// =============================================================================
// RESULT
// =============================================================================

var periodLabels = [PeriodCount]string{
	"Mês 1 (Média)",
	"Mês 2 (Variação)",
	"Mês 3 (Ajuste Final)",
}

// PeriodAllocation is one month of a distribution.
type PeriodAllocation struct {
	Label      string
	ComponentA decimal.Decimal
	ComponentB decimal.Decimal
	Total      decimal.Decimal
}

// Result is the output of one allocation.
type Result struct {
	Periods [PeriodCount]PeriodAllocation
	Pattern Pattern
	Rates   Rates

	Total    decimal.Decimal // input as given
	Sum      decimal.Decimal // sum of the three period totals
	Residual decimal.Decimal // Sum - Total
}

// Run is an accepted calculation recorded against a session.
type Run struct {
	ID               string
	SessionID        string
	VariationPercent decimal.Decimal
	Result           Result
	CreatedAt        time.Time
}
