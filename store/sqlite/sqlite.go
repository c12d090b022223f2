/*
Package sqlite provides a SQLite-backed distribution.SessionStore.

PURPOSE:
  Keeps per-session toggle state and the runs recorded in this process in
  SQLite, so the server can answer history queries with SQL instead of
  walking maps.

IN-MEMORY ONLY:
  The database is always opened with mode=memory. State lives as long as the
  process (more precisely, as long as the Store is open) and is never written
  to disk. A restart starts every session from the initial pattern.

KEY TABLES:
  sessions: one row per session, current pattern
  runs:     the last distribution.MaxRunsPerSession accepted calculations
            per session, periods stored as JSON

CONCURRENCY:
  The pool is limited to one connection, which also keeps the in-memory
  database alive. Update runs its read-modify-write inside a transaction
  under a mutex, so concurrent flips on one session are serialized. The run
  and the new pattern commit together or not at all.

USAGE:
  store, err := sqlite.New("credit-engine")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := distribution.NewService(calc, store, logger)

SEE ALSO:
  - distribution/store.go: Interface definition
  - distribution/store/memory.go: Map-backed implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/credit-engine/distribution"
)

// Store implements distribution.SessionStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens a private in-memory database identified by name. Stores opened
// with the same name in one process share their data.
func New(name string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", url.PathEscape(name))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database. The in-memory data is gone afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		pattern TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		variation_percent TEXT NOT NULL,
		pattern TEXT NOT NULL,
		total TEXT NOT NULL,
		sum TEXT NOT NULL,
		residual TEXT NOT NULL,
		periods_json TEXT NOT NULL,
		rates_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_session_seq
		ON runs(session_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION STATE
// =============================================================================

// Get returns the stored pattern, or the initial pattern for unknown sessions.
func (s *Store) Get(ctx context.Context, sessionID string) (distribution.Pattern, error) {
	return getPattern(ctx, s.db, sessionID)
}

func getPattern(ctx context.Context, db interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, sessionID string) (distribution.Pattern, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT pattern FROM sessions WHERE id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return distribution.InitialPattern, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}

	p := distribution.Pattern(raw)
	if !p.Valid() {
		return "", fmt.Errorf("session %s: %w: %q", sessionID, distribution.ErrInvalidPattern, raw)
	}
	return p, nil
}

// Update runs fn against the current pattern inside a transaction. The
// returned run, if any, is inserted in the same transaction.
func (s *Store) Update(ctx context.Context, sessionID string, fn distribution.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	current, err := getPattern(ctx, sqlTx, sessionID)
	if err != nil {
		return err
	}

	next, run, err := fn(current)
	if err != nil {
		return err
	}
	if !next.Valid() {
		return distribution.ErrInvalidPattern
	}

	if run != nil {
		if err := insertRun(ctx, sqlTx, sessionID, *run); err != nil {
			return err
		}
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO sessions (id, pattern, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET pattern = excluded.pattern, updated_at = excluded.updated_at
	`, sessionID, string(next), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return sqlTx.Commit()
}

// =============================================================================
// RUNS
// =============================================================================

// insertRun records an accepted calculation and prunes the session's oldest
// runs past distribution.MaxRunsPerSession.
func insertRun(ctx context.Context, sqlTx *sql.Tx, sessionID string, run distribution.Run) error {
	periodsJSON, err := json.Marshal(run.Result.Periods)
	if err != nil {
		return fmt.Errorf("failed to encode periods: %w", err)
	}
	ratesJSON, err := json.Marshal(run.Result.Rates)
	if err != nil {
		return fmt.Errorf("failed to encode rates: %w", err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO runs
		(id, session_id, seq, variation_percent, pattern, total, sum, residual,
		 periods_json, rates_json, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs WHERE session_id = ?),
		        ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		sessionID,
		sessionID,
		run.VariationPercent.String(),
		string(run.Result.Pattern),
		run.Result.Total.String(),
		run.Result.Sum.String(),
		run.Result.Residual.String(),
		string(periodsJSON),
		string(ratesJSON),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return distribution.ErrDuplicateRun
		}
		return fmt.Errorf("failed to append run: %w", err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		DELETE FROM runs
		WHERE session_id = ?
		  AND seq <= (SELECT MAX(seq) FROM runs WHERE session_id = ?) - ?
	`, sessionID, sessionID, distribution.MaxRunsPerSession)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	return nil
}

// ListRuns returns a session's runs, oldest first.
func (s *Store) ListRuns(ctx context.Context, sessionID string) ([]distribution.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, variation_percent, pattern, total, sum, residual,
		       periods_json, rates_json, created_at
		FROM runs
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []distribution.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(rows *sql.Rows) (distribution.Run, error) {
	var run distribution.Run
	var pct, pattern, total, sum, residual string
	var periodsJSON, ratesJSON, createdAtRaw string
	if err := rows.Scan(&run.ID, &run.SessionID, &pct, &pattern, &total, &sum, &residual,
		&periodsJSON, &ratesJSON, &createdAtRaw); err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}

	var err error
	if run.VariationPercent, err = decimal.NewFromString(pct); err != nil {
		return run, fmt.Errorf("run %s: bad variation_percent: %w", run.ID, err)
	}
	run.Result.Pattern = distribution.Pattern(pattern)
	if run.Result.Total, err = decimal.NewFromString(total); err != nil {
		return run, fmt.Errorf("run %s: bad total: %w", run.ID, err)
	}
	if run.Result.Sum, err = decimal.NewFromString(sum); err != nil {
		return run, fmt.Errorf("run %s: bad sum: %w", run.ID, err)
	}
	if run.Result.Residual, err = decimal.NewFromString(residual); err != nil {
		return run, fmt.Errorf("run %s: bad residual: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(periodsJSON), &run.Result.Periods); err != nil {
		return run, fmt.Errorf("run %s: bad periods: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(ratesJSON), &run.Result.Rates); err != nil {
		return run, fmt.Errorf("run %s: bad rates: %w", run.ID, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtRaw); err != nil {
		return run, fmt.Errorf("run %s: bad created_at: %w", run.ID, err)
	}
	return run, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique)
	}
	return false
}
