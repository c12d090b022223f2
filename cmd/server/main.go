/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the credit distribution HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (YAML file, then environment, then flags)
  3. Initialize the session store
  4. Create service, handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: config.yaml, optional)
  -port    HTTP server port (overrides config)
  -store   Session store backend: memory or sqlite (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (shutdown_timeout)
  3. Close the session store
  4. Exit

ENVIRONMENT:
  PORT, CORS_ORIGINS, SHUTDOWN_TIMEOUT, LOG_LEVEL, STORE, STORE_NAME,
  NAME_A, RATE_A, NAME_B, RATE_B, TOLERANCE

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - distribution/service.go: Session-scoped calculations
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/credit-engine/api"
	"github.com/warp/credit-engine/config"
	"github.com/warp/credit-engine/distribution"
	"github.com/warp/credit-engine/distribution/store"
	"github.com/warp/credit-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "config.yaml", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	backend := flag.String("store", "", "Session store backend: memory or sqlite (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Initialize store
	var sessions distribution.SessionStore
	switch cfg.Store.Backend {
	case "sqlite":
		sq, err := sqlite.New(cfg.Store.Name)
		if err != nil {
			logger.Error("failed to initialize database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sq.Close()
		sessions = sq
	default:
		sessions = store.NewMemory()
	}

	calc, err := cfg.Calculator()
	if err != nil {
		logger.Error("invalid rates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	svc := distribution.NewService(calc, sessions, logger)
	router := api.NewRouter(api.NewHandler(svc, logger), cfg.Server.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("addr", server.Addr),
			slog.String("store", cfg.Store.Backend),
			slog.String("rate_a", calc.Rates.RateA.String()),
			slog.String("rate_b", calc.Rates.RateB.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down server", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
