/*
store.go - Session state interface

PURPOSE:
  When the calculator sits behind a concurrent interface (HTTP), the toggle
  must not be a process global: two clicks racing would both read the same
  state. Each session owns its toggle, and updates go through Update, which
  is an atomic read-modify-write. The run an accepted call produces is
  recorded in the same write, so a failed record never leaves the toggle
  flipped.

KEY INTERFACES:
  SessionStore: toggle state per session + runs recorded in this process

LIFETIME:
  Implementations keep data in memory only. Nothing survives a restart.
  Each session keeps its last MaxRunsPerSession runs; older ones are dropped.

IMPLEMENTATIONS:
  - distribution/store/memory.go: map + sync.RWMutex
  - store/sqlite/sqlite.go: in-memory SQLite

SEE ALSO:
  - service.go: Uses SessionStore
*/
package distribution

import "context"

// MaxRunsPerSession is how many runs a session keeps, newest last.
const MaxRunsPerSession = 100

// UpdateFunc computes the next pattern from the current one. A non-nil run
// is recorded together with the new pattern.
type UpdateFunc func(current Pattern) (Pattern, *Run, error)

// SessionStore persists per-session toggle state and run history.
type SessionStore interface {
	// Get returns the stored pattern. Unknown sessions report InitialPattern.
	Get(ctx context.Context, sessionID string) (Pattern, error)

	// Update atomically replaces the session's pattern with fn's result and
	// appends the run fn returns, if any. Either both are written or
	// neither is: an error from fn, an invalid pattern or a duplicate run ID
	// leaves the session untouched.
	Update(ctx context.Context, sessionID string, fn UpdateFunc) error

	// ListRuns returns a session's runs, oldest first.
	ListRuns(ctx context.Context, sessionID string) ([]Run, error)
}
