/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the distribution engine's types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Every amount is sent twice: a display string in the locale convention
  ("1.126.260,90") and the raw decimal as a JSON string ("1126260.9"), so
  clients can copy the display value and still validate with the raw one.

SEE ALSO:
  - handlers.go: Uses these types
  - money/money.go: Format
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/credit-engine/distribution"
	"github.com/warp/credit-engine/money"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DistributeRequest is the request to run one distribution.
// VariationPercent accepts a JSON number or a numeric string.
type DistributeRequest struct {
	SessionID        string          `json:"session_id,omitempty"`
	Amount           string          `json:"amount"`
	VariationPercent decimal.Decimal `json:"variation_percent"`
}

// PeriodDTO is one month of a distribution.
type PeriodDTO struct {
	Label         string          `json:"label"`
	ComponentA    string          `json:"component_a"`
	ComponentB    string          `json:"component_b"`
	Total         string          `json:"total"`
	ComponentARaw decimal.Decimal `json:"component_a_raw"`
	ComponentBRaw decimal.Decimal `json:"component_b_raw"`
	TotalRaw      decimal.Decimal `json:"total_raw"`
}

// ComponentNamesDTO holds the column headers for the two tax components.
type ComponentNamesDTO struct {
	A string `json:"a"`
	B string `json:"b"`
}

// DistributionDTO is the result of an accepted run.
type DistributionDTO struct {
	SessionID        string            `json:"session_id"`
	RunID            string            `json:"run_id"`
	Pattern          string            `json:"pattern"`
	PatternLabel     string            `json:"pattern_label"`
	VariationPercent decimal.Decimal   `json:"variation_percent"`
	ComponentNames   ComponentNamesDTO `json:"component_names"`
	Periods          []PeriodDTO       `json:"periods"`
	Total            string            `json:"total"`
	Sum              string            `json:"sum"`
	Residual         decimal.Decimal   `json:"residual"`
	Reconciled       bool              `json:"reconciled"`
	Discrepancy      string            `json:"discrepancy,omitempty"`
	CreatedAt        string            `json:"created_at"`
}

// SessionDTO reports a session's toggle state.
type SessionDTO struct {
	SessionID        string `json:"session_id"`
	Pattern          string `json:"pattern"`
	NextPattern      string `json:"next_pattern"`
	NextPatternLabel string `json:"next_pattern_label"`
}

// RatesDTO reports the configured tax rates.
type RatesDTO struct {
	NameA     string          `json:"name_a"`
	RateA     decimal.Decimal `json:"rate_a"`
	NameB     string          `json:"name_b"`
	RateB     decimal.Decimal `json:"rate_b"`
	Tolerance decimal.Decimal `json:"tolerance"`
}

// FormatDTO is the converter round trip for a single amount.
type FormatDTO struct {
	Input     string          `json:"input"`
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func componentNames(r distribution.Rates) ComponentNamesDTO {
	return ComponentNamesDTO{
		A: fmt.Sprintf("Valor %s (%s%%)", r.NameA, money.Format(r.RateA)),
		B: fmt.Sprintf("Valor %s (%s%%)", r.NameB, money.Format(r.RateB)),
	}
}

func toDistributionDTO(run distribution.Run, tolerance decimal.Decimal) DistributionDTO {
	res := run.Result

	periods := make([]PeriodDTO, len(res.Periods))
	for i, p := range res.Periods {
		periods[i] = PeriodDTO{
			Label:         p.Label,
			ComponentA:    money.Format(p.ComponentA),
			ComponentB:    money.Format(p.ComponentB),
			Total:         money.Format(p.Total),
			ComponentARaw: p.ComponentA,
			ComponentBRaw: p.ComponentB,
			TotalRaw:      p.Total,
		}
	}

	dto := DistributionDTO{
		SessionID:        run.SessionID,
		RunID:            run.ID,
		Pattern:          string(res.Pattern),
		PatternLabel:     res.Pattern.Label(),
		VariationPercent: run.VariationPercent,
		ComponentNames:   componentNames(res.Rates),
		Periods:          periods,
		Total:            money.Format(res.Total),
		Sum:              money.Format(res.Sum),
		Residual:         res.Residual,
		Reconciled:       res.Reconciled(tolerance),
		CreatedAt:        run.CreatedAt.Format(time.RFC3339),
	}
	if err := res.Check(tolerance); err != nil {
		dto.Discrepancy = err.Error()
	}
	return dto
}

func toSessionDTO(sessionID string, p distribution.Pattern) SessionDTO {
	return SessionDTO{
		SessionID:        sessionID,
		Pattern:          string(p),
		NextPattern:      string(p.Next()),
		NextPatternLabel: p.Next().Label(),
	}
}
