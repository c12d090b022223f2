/*
handlers.go - HTTP API handlers for the credit distribution engine

PURPOSE:
  Exposes the distribution service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the service.

ENDPOINTS:
  Distributions:
    POST   /api/distributions          Run one distribution (flips the session toggle)

  Sessions:
    GET    /api/sessions/{id}          Current toggle state
    GET    /api/sessions/{id}/runs     Runs recorded since process start

  Reference:
    GET    /api/rates                  Configured tax rates and tolerance
    GET    /api/format?amount=...      Parse and re-format a locale amount

SESSIONS:
  The session ID comes from the request body, then the X-Session-ID header.
  When neither is set a new one is generated and returned in both the body
  and the X-Session-ID response header.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body or amount text
  - 422: Zero amount (the toggle is not touched)
  - 500: Internal errors

  A result that does not reconcile is still 201; it carries
  reconciled=false and a discrepancy message.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/credit-engine/distribution"
	"github.com/warp/credit-engine/money"
)

// SessionHeader carries the session ID on requests and responses.
const SessionHeader = "X-Session-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *distribution.Service
	Logger  *slog.Logger
}

// NewHandler creates a new handler around the given service.
func NewHandler(svc *distribution.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Logger: logger}
}

// =============================================================================
// DISTRIBUTION HANDLERS
// =============================================================================

// Distribute runs one distribution for the caller's session.
// POST /api/distributions
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = r.Header.Get(SessionHeader)
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	w.Header().Set(SessionHeader, sessionID)

	run, err := h.Service.Distribute(r.Context(), sessionID, req.Amount, req.VariationPercent)
	switch {
	case errors.Is(err, money.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Valor inválido", err)
		return
	case errors.Is(err, distribution.ErrVariationOutOfRange):
		writeError(w, http.StatusBadRequest, "Variação inválida", err)
		return
	case errors.Is(err, distribution.ErrZeroAmount):
		writeError(w, http.StatusUnprocessableEntity, "Amount must not be zero", err)
		return
	case err != nil:
		h.Logger.Error("distribution failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to compute distribution", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDistributionDTO(run, h.Service.Calculator().EffectiveTolerance()))
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// GetSession returns the session's toggle state.
// GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.Service.Pattern(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load session", err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionDTO(id, p))
}

// ListRuns returns the session's runs, oldest first.
// GET /api/sessions/{id}/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	runs, err := h.Service.Runs(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	tol := h.Service.Calculator().EffectiveTolerance()
	dtos := make([]DistributionDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toDistributionDTO(run, tol)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REFERENCE HANDLERS
// =============================================================================

// GetRates returns the configured rates.
// GET /api/rates
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	calc := h.Service.Calculator()
	writeJSON(w, http.StatusOK, RatesDTO{
		NameA:     calc.Rates.NameA,
		RateA:     calc.Rates.RateA,
		NameB:     calc.Rates.NameB,
		RateB:     calc.Rates.RateB,
		Tolerance: calc.EffectiveTolerance(),
	})
}

// FormatAmount parses a locale amount and formats it back.
// GET /api/format?amount=1.234,5
func (h *Handler) FormatAmount(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("amount")

	value, err := money.Parse(input)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Valor inválido", err)
		return
	}

	writeJSON(w, http.StatusOK, FormatDTO{
		Input:     input,
		Value:     value,
		Formatted: money.Format(value),
	})
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
