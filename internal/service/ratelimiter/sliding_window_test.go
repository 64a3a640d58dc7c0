package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(tabLimits map[string]int) (*SlidingWindow, *time.Time) {
	l := New(Config{
		Window:          time.Minute,
		Retention:       30 * time.Minute,
		TabLimits:       tabLimits,
		DefaultTabLimit: 20,
	})
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := &now
	l.SetClock(func() time.Time { return *clock })
	return l, clock
}

func TestAllow_TabLimitExhausted(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{"completion": 10})

	for i := 0; i < 10; i++ {
		d := l.Allow("completion", "tab-1")
		require.True(t, d.Allowed, "request %d should be allowed", i+1)
	}

	d := l.Allow("completion", "tab-1")
	require.False(t, d.Allowed)
	assert.Equal(t, ScopeTab, d.Scope)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestAllow_IndependentTabs(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{"explanation": 5})

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("explanation", "tab-1").Allowed)
	}
	require.False(t, l.Allow("explanation", "tab-1").Allowed)

	// A second tab still has its own budget.
	d := l.Allow("explanation", "tab-2")
	assert.True(t, d.Allowed)
}

func TestAllow_GlobalCeiling(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{"hint": 5})

	// Global ceiling is 2x the tab limit: 10 across all tabs.
	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("hint", "tab-1").Allowed)
		require.True(t, l.Allow("hint", "tab-2").Allowed)
	}

	d := l.Allow("hint", "tab-3")
	require.False(t, d.Allowed)
	assert.Equal(t, ScopeGlobal, d.Scope)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestAllow_DeniedRequestConsumesNothing(t *testing.T) {
	l, clock := newTestLimiter(map[string]int{"optimization": 2})

	require.True(t, l.Allow("optimization", "tab-1").Allowed)
	require.True(t, l.Allow("optimization", "tab-1").Allowed)
	for i := 0; i < 10; i++ {
		require.False(t, l.Allow("optimization", "tab-1").Allowed)
	}

	// After the window slides past the grants, capacity returns in full.
	*clock = clock.Add(61 * time.Second)
	require.True(t, l.Allow("optimization", "tab-1").Allowed)
	require.True(t, l.Allow("optimization", "tab-1").Allowed)
}

func TestAllow_WindowSlides(t *testing.T) {
	l, clock := newTestLimiter(map[string]int{"completion": 2})

	require.True(t, l.Allow("completion", "tab-1").Allowed)
	*clock = clock.Add(30 * time.Second)
	require.True(t, l.Allow("completion", "tab-1").Allowed)
	require.False(t, l.Allow("completion", "tab-1").Allowed)

	// The first grant ages out at t+60s; the second is still counted.
	*clock = clock.Add(31 * time.Second)
	require.True(t, l.Allow("completion", "tab-1").Allowed)
	require.False(t, l.Allow("completion", "tab-1").Allowed)
}

func TestAllow_DefaultLimitForUnknownType(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{"completion": 10})

	for i := 0; i < 20; i++ {
		require.True(t, l.Allow("chat", "tab-1").Allowed)
	}
	require.False(t, l.Allow("chat", "tab-1").Allowed)
}

func TestRetryAfter_TracksOldestEntry(t *testing.T) {
	l, clock := newTestLimiter(map[string]int{"completion": 1})

	require.True(t, l.Allow("completion", "tab-1").Allowed)
	*clock = clock.Add(45 * time.Second)

	d := l.Allow("completion", "tab-1")
	require.False(t, d.Allowed)
	assert.Equal(t, 15*time.Second, d.RetryAfter)
}

func TestCleanupTab(t *testing.T) {
	l, _ := newTestLimiter(map[string]int{"hint": 2})

	require.True(t, l.Allow("hint", "tab-1").Allowed)
	require.True(t, l.Allow("hint", "tab-1").Allowed)
	require.False(t, l.Allow("hint", "tab-1").Allowed)

	l.CleanupTab("tab-1")

	// Tab windows are gone but the global window still counts the grants,
	// so the shared ceiling is unaffected.
	d := l.Allow("hint", "tab-1")
	assert.True(t, d.Allowed)
	assert.Len(t, l.global["hint"], 3)
}

func TestCleanup_DropsStaleWindows(t *testing.T) {
	l, clock := newTestLimiter(map[string]int{"hint": 5})

	require.True(t, l.Allow("hint", "tab-1").Allowed)
	require.True(t, l.Allow("hint", "tab-2").Allowed)

	*clock = clock.Add(31 * time.Minute)
	l.Cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.tab)
	assert.Empty(t, l.global)
}
