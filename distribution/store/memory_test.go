package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/credit-engine/distribution"
)

func flip(p distribution.Pattern) (distribution.Pattern, *distribution.Run, error) {
	return p.Next(), nil, nil
}

func record(run distribution.Run) distribution.UpdateFunc {
	return func(p distribution.Pattern) (distribution.Pattern, *distribution.Run, error) {
		return p.Next(), &run, nil
	}
}

func TestMemory_UnknownSessionIsInitial(t *testing.T) {
	m := NewMemory()
	p, err := m.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, distribution.InitialPattern, p)
}

func TestMemory_UpdateErrorLeavesStateUntouched(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.Update(ctx, "s1", func(p distribution.Pattern) (distribution.Pattern, *distribution.Run, error) {
		return p.Next(), &distribution.Run{ID: "r1"}, boom
	})
	require.ErrorIs(t, err, boom)

	p, _ := m.Get(ctx, "s1")
	assert.Equal(t, distribution.PatternStandard, p)
	runs, _ := m.ListRuns(ctx, "s1")
	assert.Empty(t, runs)
}

func TestMemory_UpdateRejectsInvalidPattern(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.Update(ctx, "s1", func(distribution.Pattern) (distribution.Pattern, *distribution.Run, error) {
		return "sideways", &distribution.Run{ID: "r1"}, nil
	})
	assert.ErrorIs(t, err, distribution.ErrInvalidPattern)

	runs, _ := m.ListRuns(ctx, "s1")
	assert.Empty(t, runs)
}

func TestMemory_ConcurrentFlipsAreSerialized(t *testing.T) {
	// GIVEN: 100 concurrent flips on one session
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Update(ctx, "shared", flip)
		}()
	}
	wg.Wait()

	// THEN: an even number of flips returns to the initial state
	p, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, distribution.PatternStandard, p)
}

func TestMemory_RunsArePerSessionAndCopied(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Update(ctx, "a", record(distribution.Run{ID: "r1", SessionID: "a"})))
	require.NoError(t, m.Update(ctx, "a", record(distribution.Run{ID: "r2", SessionID: "a"})))
	require.NoError(t, m.Update(ctx, "b", record(distribution.Run{ID: "r3", SessionID: "b"})))

	runs, err := m.ListRuns(ctx, "a")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r1", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)

	runs[0].ID = "mutated"
	again, _ := m.ListRuns(ctx, "a")
	assert.Equal(t, "r1", again[0].ID)
}

func TestMemory_DuplicateRunLeavesPatternUnflipped(t *testing.T) {
	// GIVEN: run r1 already recorded on session a
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Update(ctx, "a", record(distribution.Run{ID: "r1", SessionID: "a"})))

	// WHEN: session b tries to record the same run ID
	err := m.Update(ctx, "b", record(distribution.Run{ID: "r1", SessionID: "b"}))

	// THEN: the record fails and b's toggle did not move
	assert.ErrorIs(t, err, distribution.ErrDuplicateRun)

	runs, _ := m.ListRuns(ctx, "b")
	assert.Empty(t, runs)
	p, _ := m.Get(ctx, "b")
	assert.Equal(t, distribution.InitialPattern, p)
}

func TestMemory_RunHistoryIsCapped(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	total := distribution.MaxRunsPerSession + 5
	for i := 0; i < total; i++ {
		require.NoError(t, m.Update(ctx, "s", record(distribution.Run{ID: fmt.Sprintf("r%d", i), SessionID: "s"})))
	}

	runs, err := m.ListRuns(ctx, "s")
	require.NoError(t, err)
	require.Len(t, runs, distribution.MaxRunsPerSession)
	assert.Equal(t, "r5", runs[0].ID)
	assert.Equal(t, fmt.Sprintf("r%d", total-1), runs[len(runs)-1].ID)

	// Dropped IDs are forgotten, kept ones still count as duplicates.
	assert.NoError(t, m.Update(ctx, "s", record(distribution.Run{ID: "r0", SessionID: "s"})))
	assert.ErrorIs(t, m.Update(ctx, "s", record(distribution.Run{ID: "r50", SessionID: "s"})), distribution.ErrDuplicateRun)
}
