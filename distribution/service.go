package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service runs calculations against session-scoped toggle state.
type Service struct {
	calc   *Calculator
	store  SessionStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a calculator to a session store. A nil logger uses slog.Default().
func NewService(calc *Calculator, store SessionStore, logger *slog.Logger) *Service {
	if calc == nil {
		calc = NewCalculator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{calc: calc, store: store, logger: logger, now: time.Now}
}

// Calculator returns the calculator the service runs.
func (s *Service) Calculator() *Calculator {
	return s.calc
}

// Distribute runs one calculation for sessionID. The session's toggle flips
// only when the call is accepted and its run is recorded.
func (s *Service) Distribute(ctx context.Context, sessionID, amountText string, variationPercent decimal.Decimal) (Run, error) {
	if sessionID == "" {
		return Run{}, ErrSessionRequired
	}

	var run Run
	err := s.store.Update(ctx, sessionID, func(current Pattern) (Pattern, *Run, error) {
		result, next, err := s.calc.Distribute(current, amountText, variationPercent)
		if err != nil {
			return current, nil, err
		}
		run = Run{
			ID:               uuid.New().String(),
			SessionID:        sessionID,
			VariationPercent: variationPercent,
			Result:           result,
			CreatedAt:        s.now().UTC(),
		}
		return next, &run, nil
	})
	if err != nil {
		if IsClientError(err) {
			s.logger.Info("distribution rejected",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			return Run{}, err
		}
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	result := run.Result
	if err := result.Check(s.calc.EffectiveTolerance()); err != nil {
		s.logger.Warn("distribution does not reconcile",
			slog.String("session_id", sessionID),
			slog.String("run_id", run.ID),
			slog.String("residual", result.Residual.String()))
	} else {
		s.logger.Debug("distribution computed",
			slog.String("session_id", sessionID),
			slog.String("run_id", run.ID),
			slog.String("pattern", string(result.Pattern)))
	}
	return run, nil
}

// Pattern returns the session's stored toggle state.
func (s *Service) Pattern(ctx context.Context, sessionID string) (Pattern, error) {
	if sessionID == "" {
		return "", ErrSessionRequired
	}
	return s.store.Get(ctx, sessionID)
}

// Runs returns the session's recorded runs.
func (s *Service) Runs(ctx context.Context, sessionID string) ([]Run, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	return s.store.ListRuns(ctx, sessionID)
}
