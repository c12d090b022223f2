// Package store provides SessionStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/credit-engine/distribution"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (default for CLI and tests)
// =============================================================================

// Memory is a map-backed distribution.SessionStore. One lock guards patterns
// and runs together, so an Update writes both or neither.
type Memory struct {
	mu       sync.RWMutex
	patterns map[string]distribution.Pattern
	runs     map[string][]distribution.Run
	runIDs   map[string]bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		patterns: make(map[string]distribution.Pattern),
		runs:     make(map[string][]distribution.Run),
		runIDs:   make(map[string]bool),
	}
}

// Get returns the session's pattern, or the initial pattern if it never ran.
func (m *Memory) Get(_ context.Context, sessionID string) (distribution.Pattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(sessionID), nil
}

func (m *Memory) getLocked(sessionID string) distribution.Pattern {
	if p, ok := m.patterns[sessionID]; ok {
		return p
	}
	return distribution.InitialPattern
}

// Update holds the write lock across fn, so concurrent flips on one session
// are serialized. Nothing is written until every check has passed.
func (m *Memory) Update(_ context.Context, sessionID string, fn distribution.UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, run, err := fn(m.getLocked(sessionID))
	if err != nil {
		return err
	}
	if !next.Valid() {
		return distribution.ErrInvalidPattern
	}
	if run != nil {
		if m.runIDs[run.ID] {
			return distribution.ErrDuplicateRun
		}
		m.appendLocked(sessionID, *run)
	}
	m.patterns[sessionID] = next
	return nil
}

// appendLocked records run and drops the oldest runs past the per-session cap.
func (m *Memory) appendLocked(sessionID string, run distribution.Run) {
	runs := append(m.runs[sessionID], run)
	if over := len(runs) - distribution.MaxRunsPerSession; over > 0 {
		for _, old := range runs[:over] {
			delete(m.runIDs, old.ID)
		}
		runs = append([]distribution.Run(nil), runs[over:]...)
	}
	m.runs[sessionID] = runs
	m.runIDs[run.ID] = true
}

// ListRuns returns a copy of the session's runs, oldest first.
func (m *Memory) ListRuns(_ context.Context, sessionID string) ([]distribution.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]distribution.Run, len(m.runs[sessionID]))
	copy(result, m.runs[sessionID])
	return result, nil
}
