/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a browser frontend

ROUTE GROUPS:
  /api/distributions   Run a distribution
  /api/sessions/*      Toggle state and run history
  /api/rates           Configured rates
  /api/format          Locale converter
  /healthz             Liveness
  /                    Endpoint index

SECURITY NOTE:
  No authentication middleware. Session IDs are not secrets; they only
  scope the toggle so concurrent users do not flip each other's pattern.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/distributions", h.Distribute)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Get("/runs", h.ListRuns)
		})

		r.Get("/rates", h.GetRates)
		r.Get("/format", h.FormatAmount)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Distribuidor de Crédito</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Distribuidor de Crédito API</h1>
<h2>API Endpoints</h2>
<ul>
<li><code>POST /api/distributions</code> - {"amount": "1.126.260,90", "variation_percent": 12.3}</li>
<li><code>GET /api/sessions/{id}</code> - toggle state</li>
<li><code>GET /api/sessions/{id}/runs</code> - runs since start</li>
<li><a href="/api/rates">/api/rates</a> - tax rates</li>
<li><a href="/api/format?amount=1.126.260,90">/api/format</a> - amount converter</li>
</ul>
</body>
</html>`))
	})

	return r
}
