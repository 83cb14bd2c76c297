package coordinator_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/coordinator"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

func TestBeginIssuesIncreasingGenerations(t *testing.T) {
	c := coordinator.New()
	require.Equal(t, uint64(0), c.Current())

	h1 := c.Begin(model.PurposeInitial)
	h2 := c.Begin(model.PurposeRefresh)
	h3 := c.Begin(model.PurposeRecheck)

	assert.Equal(t, uint64(1), h1.Generation())
	assert.Equal(t, uint64(2), h2.Generation())
	assert.Equal(t, uint64(3), h3.Generation())
	assert.Equal(t, uint64(3), c.Current())
	assert.Equal(t, model.PurposeRefresh, h2.Purpose())
	assert.NotEqual(t, h1.RequestID(), h2.RequestID())
}

func TestNewerBeginSupersedesImmediately(t *testing.T) {
	c := coordinator.New()
	h1 := c.Begin(model.PurposeInitial)
	require.True(t, h1.IsCurrent())

	_, superseded := h1.SupersededBy()
	assert.False(t, superseded)

	h2 := c.Begin(model.PurposeRefresh)
	assert.False(t, h1.IsCurrent())
	assert.True(t, h2.IsCurrent())

	by, superseded := h1.SupersededBy()
	assert.True(t, superseded)
	assert.Equal(t, h2.Generation(), by)
}

func TestCompleteAppliesOnlyCurrent(t *testing.T) {
	c := coordinator.New()
	var applied []uint64

	h1 := c.Begin(model.PurposeInitial)
	h2 := c.Begin(model.PurposeRefresh)

	// g2 finishes first, g1 straggles in afterwards.
	ok2 := c.Complete(h2, func() { applied = append(applied, h2.Generation()) })
	ok1 := c.Complete(h1, func() { applied = append(applied, h1.Generation()) })

	assert.True(t, ok2)
	assert.False(t, ok1)
	assert.Equal(t, []uint64{2}, applied)
}

func TestCompleteDropsSlowFirstResultWhenSecondStillRunning(t *testing.T) {
	c := coordinator.New()
	h1 := c.Begin(model.PurposeInitial)
	_ = c.Begin(model.PurposePageEnter)

	called := false
	assert.False(t, c.Complete(h1, func() { called = true }))
	assert.False(t, called, "a superseded completion must never run its apply")
}

func TestCompleteRejectsForeignHandle(t *testing.T) {
	a := coordinator.New()
	b := coordinator.New()
	h := a.Begin(model.PurposeInitial)
	_ = b.Begin(model.PurposeInitial)

	assert.False(t, b.Complete(h, func() {}))
	assert.False(t, b.Complete(nil, func() {}))
}

func TestZeroValueCoordinator(t *testing.T) {
	var c coordinator.Coordinator
	h := c.Begin(model.PurposeInitial)
	assert.Equal(t, uint64(1), h.Generation())
	assert.True(t, c.Complete(h, nil))
}

func TestConcurrentBeginNeverReusesGeneration(t *testing.T) {
	c := coordinator.New()
	const n = 200

	var mu sync.Mutex
	seen := make(map[uint64]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := c.Begin(model.PurposeRecheck)
			mu.Lock()
			defer mu.Unlock()
			seen[h.Generation()] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Equal(t, uint64(n), c.Current())
}
