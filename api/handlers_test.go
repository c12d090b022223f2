/*
handlers_test.go - Tests for API handlers

Tests for:
- POST /api/distributions: alternation, zero/invalid rejection, session scoping
- GET /api/sessions/{id} and /runs
- GET /api/rates and /api/format
Both session store backends are exercised through the same router.
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/credit-engine/distribution"
	"github.com/warp/credit-engine/distribution/store"
	"github.com/warp/credit-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T, sessions distribution.SessionStore) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := distribution.NewService(distribution.NewCalculator(), sessions, logger)
	return NewRouter(NewHandler(svc, logger), []string{"http://localhost:5173"})
}

func backends(t *testing.T) map[string]distribution.SessionStore {
	t.Helper()
	sq, err := sqlite.New("api-test-" + uuid.New().String())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]distribution.SessionStore{
		"memory": store.NewMemory(),
		"sqlite": sq,
	}
}

func postDistribution(t *testing.T, h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/distributions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v), rec.Body.String())
	return v
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

func TestDistribute_AlternatesPerSession(t *testing.T) {
	for name, sessions := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := newTestServer(t, sessions)
			body := `{"session_id": "s1", "amount": "1.126.260,90", "variation_percent": 12.3}`

			// WHEN: the same request is sent twice
			first := postDistribution(t, h, body, nil)
			second := postDistribution(t, h, body, nil)

			// THEN: the first run is inverted, the second standard
			require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
			require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

			a := decode[DistributionDTO](t, first)
			b := decode[DistributionDTO](t, second)

			assert.Equal(t, "inverted", a.Pattern)
			assert.Equal(t, "Invertido: Mês 2 Alto / Mês 3 Baixo", a.PatternLabel)
			assert.Equal(t, "standard", b.Pattern)

			require.Len(t, a.Periods, 3)
			assert.Equal(t, "375.420,30", a.Periods[0].Total)
			assert.Equal(t, "66.966,86", a.Periods[0].ComponentA)
			assert.Equal(t, "308.453,44", a.Periods[0].ComponentB)
			assert.Equal(t, "421.597,00", a.Periods[1].Total)
			assert.Equal(t, "329.243,60", a.Periods[2].Total)
			assert.Equal(t, "329.243,60", b.Periods[1].Total)
			assert.Equal(t, "421.597,00", b.Periods[2].Total)

			assert.Equal(t, "1.126.260,90", a.Sum)
			assert.True(t, a.Reconciled)
			assert.Empty(t, a.Discrepancy)
			assert.Equal(t, "Valor PIS (1,65%)", a.ComponentNames.A)
			assert.Equal(t, "Valor COFINS (7,60%)", a.ComponentNames.B)
			assert.Equal(t, "s1", first.Header().Get(SessionHeader))
		})
	}
}

func TestDistribute_GeneratesSessionWhenMissing(t *testing.T) {
	h := newTestServer(t, store.NewMemory())

	rec := postDistribution(t, h, `{"amount": "300,00", "variation_percent": "10"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[DistributionDTO](t, rec)
	_, err := uuid.Parse(dto.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, dto.SessionID, rec.Header().Get(SessionHeader))
	assert.NotEmpty(t, dto.RunID)
}

func TestDistribute_SessionFromHeader(t *testing.T) {
	h := newTestServer(t, store.NewMemory())
	hdr := map[string]string{SessionHeader: "from-header"}

	postDistribution(t, h, `{"amount": "300,00", "variation_percent": 10}`, hdr)
	rec := postDistribution(t, h, `{"amount": "300,00", "variation_percent": 10}`, hdr)
	require.Equal(t, http.StatusCreated, rec.Code)

	dto := decode[DistributionDTO](t, rec)
	assert.Equal(t, "from-header", dto.SessionID)
	assert.Equal(t, "standard", dto.Pattern)
}

func TestDistribute_ZeroAmountDoesNotFlip(t *testing.T) {
	for name, sessions := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := newTestServer(t, sessions)

			rec := postDistribution(t, h, `{"session_id": "z", "amount": "0,00", "variation_percent": 12.3}`, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			s := decode[SessionDTO](t, get(t, h, "/api/sessions/z"))
			assert.Equal(t, "standard", s.Pattern)
			assert.Equal(t, "inverted", s.NextPattern)

			runs := decode[[]DistributionDTO](t, get(t, h, "/api/sessions/z/runs"))
			assert.Empty(t, runs)
		})
	}
}

func TestDistribute_InvalidInput(t *testing.T) {
	h := newTestServer(t, store.NewMemory())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"amount": `},
		{"malformed amount", `{"session_id": "x", "amount": "abc", "variation_percent": 1}`},
		{"malformed percent", `{"session_id": "x", "amount": "10,00", "variation_percent": "doze"}`},
		{"exponent amount", `{"session_id": "x", "amount": "1e2000000", "variation_percent": 1}`},
		{"exponent percent", `{"session_id": "x", "amount": "10,00", "variation_percent": 1e2000000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postDistribution(t, h, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}

	s := decode[SessionDTO](t, get(t, h, "/api/sessions/x"))
	assert.Equal(t, "standard", s.Pattern)
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestSessionRuns(t *testing.T) {
	for name, sessions := range backends(t) {
		t.Run(name, func(t *testing.T) {
			h := newTestServer(t, sessions)
			body := `{"session_id": "hist", "amount": "1.000,00", "variation_percent": 0}`

			postDistribution(t, h, body, nil)
			postDistribution(t, h, body, nil)
			postDistribution(t, h, `{"session_id": "other", "amount": "5,00"}`, nil)

			runs := decode[[]DistributionDTO](t, get(t, h, "/api/sessions/hist/runs"))
			require.Len(t, runs, 2)
			assert.Equal(t, "inverted", runs[0].Pattern)
			assert.Equal(t, "standard", runs[1].Pattern)

			// Zero variation: both patterns give the same numbers.
			for i := range runs[0].Periods {
				assert.Equal(t, runs[0].Periods[i].Total, runs[1].Periods[i].Total)
			}
			assert.Equal(t, "333,34", runs[0].Periods[2].Total)

			s := decode[SessionDTO](t, get(t, h, "/api/sessions/hist"))
			assert.Equal(t, "standard", s.Pattern)
			assert.Equal(t, "Invertido: Mês 2 Alto / Mês 3 Baixo", s.NextPatternLabel)
		})
	}
}

// =============================================================================
// REFERENCE
// =============================================================================

func TestGetRates(t *testing.T) {
	h := newTestServer(t, store.NewMemory())

	rec := get(t, h, "/api/rates")
	require.Equal(t, http.StatusOK, rec.Code)

	rates := decode[RatesDTO](t, rec)
	assert.Equal(t, "PIS", rates.NameA)
	assert.Equal(t, "1.65", rates.RateA.String())
	assert.Equal(t, "COFINS", rates.NameB)
	assert.Equal(t, "0.01", rates.Tolerance.String())
}

func TestFormatAmount(t *testing.T) {
	h := newTestServer(t, store.NewMemory())

	rec := get(t, h, "/api/format?amount=1234567,8")
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[FormatDTO](t, rec)
	assert.Equal(t, "1.234.567,80", dto.Formatted)
	assert.Equal(t, "1234567.8", dto.Value.String())

	rec = get(t, h, "/api/format?amount=oops")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, h, "/api/format?amount=1e2000000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndIndex(t *testing.T) {
	h := newTestServer(t, store.NewMemory())

	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/distributions")
}
