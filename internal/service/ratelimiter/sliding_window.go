// Package ratelimiter implements the dual-scope sliding-window limiter that
// protects shared AI capacity. State is in-memory and process-local; a
// restart resets all counters.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scope names used in denials and metrics.
const (
	ScopeTab    = "tab"
	ScopeGlobal = "global"
)

// globalFactor fixes the global ceiling at a multiple of the tab ceiling.
const globalFactor = 2

// Decision is the outcome of one capacity check.
type Decision struct {
	Allowed bool
	// Scope is the exhausted scope when denied.
	Scope string
	// RetryAfter is the time until the oldest entry in the exhausted
	// window ages out.
	RetryAfter time.Duration
}

// Limiter checks and reserves capacity for one request.
type Limiter interface {
	Allow(requestType, tabID string) Decision
}

// Config holds the limiter's window geometry and per-type limits.
type Config struct {
	// Window is the trailing interval requests are counted over.
	Window time.Duration
	// Retention bounds how long granted timestamps are kept before the
	// periodic sweep drops them; must be >= Window.
	Retention time.Duration
	// TabLimits maps request type to the tab-scope ceiling per window.
	TabLimits map[string]int
	// DefaultTabLimit applies to types absent from TabLimits.
	DefaultTabLimit int
}

// SlidingWindow grants a request only when both the (tab, type) window and
// the type-wide global window have remaining capacity. Granted requests are
// stamped into both windows atomically under one lock.
type SlidingWindow struct {
	cfg Config

	mu     sync.Mutex
	tab    map[string][]time.Time // key: tabID + "|" + requestType
	global map[string][]time.Time // key: requestType

	now func() time.Time
}

// New constructs a SlidingWindow limiter. Zero config fields get sensible
// defaults (1 minute window, 20 requests per type).
func New(cfg Config) *SlidingWindow {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Retention < cfg.Window {
		cfg.Retention = 30 * time.Minute
	}
	if cfg.DefaultTabLimit <= 0 {
		cfg.DefaultTabLimit = 20
	}
	return &SlidingWindow{
		cfg:    cfg,
		tab:    make(map[string][]time.Time),
		global: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// SetClock replaces the time source; test hook.
func (l *SlidingWindow) SetClock(now func() time.Time) { l.now = now }

func (l *SlidingWindow) limitFor(requestType string) int {
	if n, ok := l.cfg.TabLimits[requestType]; ok && n > 0 {
		return n
	}
	return l.cfg.DefaultTabLimit
}

// Allow compacts the relevant windows, checks tab scope then global scope,
// and reserves a slot in both when capacity remains.
func (l *SlidingWindow) Allow(requestType, tabID string) Decision {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)
	tabLimit := l.limitFor(requestType)
	globalLimit := tabLimit * globalFactor

	tabKey := tabID + "|" + requestType

	l.mu.Lock()
	defer l.mu.Unlock()

	tabWin := compact(l.tab[tabKey], cutoff)
	globalWin := compact(l.global[requestType], cutoff)

	if len(tabWin) >= tabLimit {
		l.tab[tabKey] = tabWin
		l.global[requestType] = globalWin
		return Decision{Scope: ScopeTab, RetryAfter: l.retryAfter(tabWin, now)}
	}
	if len(globalWin) >= globalLimit {
		l.tab[tabKey] = tabWin
		l.global[requestType] = globalWin
		return Decision{Scope: ScopeGlobal, RetryAfter: l.retryAfter(globalWin, now)}
	}

	l.tab[tabKey] = append(tabWin, now)
	l.global[requestType] = append(globalWin, now)
	return Decision{Allowed: true}
}

// retryAfter computes when the oldest granted entry falls out of the window.
func (l *SlidingWindow) retryAfter(win []time.Time, now time.Time) time.Duration {
	if len(win) == 0 {
		return time.Second
	}
	d := l.cfg.Window - now.Sub(win[0])
	if d < time.Second {
		d = time.Second
	}
	return d
}

// compact drops entries older than the cutoff. Entries are appended in time
// order, so the suffix after the first fresh entry is kept wholesale.
func compact(win []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(win) && !win[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return win
	}
	return append(win[:0:0], win[i:]...)
}

// Cleanup purges entries older than the retention horizon and drops empty
// windows, bounding memory independent of request volume.
func (l *SlidingWindow) Cleanup() {
	cutoff := l.now().Add(-l.cfg.Retention)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, win := range l.tab {
		win = compact(win, cutoff)
		if len(win) == 0 {
			delete(l.tab, k)
			continue
		}
		l.tab[k] = win
	}
	for k, win := range l.global {
		win = compact(win, cutoff)
		if len(win) == 0 {
			delete(l.global, k)
			continue
		}
		l.global[k] = win
	}
}

// CleanupTab drops all windows for one caller immediately. Called on tab
// close; global windows are left alone so the shared ceiling stays honest.
func (l *SlidingWindow) CleanupTab(tabID string) {
	prefix := tabID + "|"

	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.tab {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(l.tab, k)
		}
	}
}

// Run executes the periodic cleanup sweep until the context is cancelled.
func (l *SlidingWindow) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Cleanup()
			slog.Debug("rate limiter sweep completed",
				slog.Int("tab_windows", l.windowCount(&l.tab)),
				slog.Int("global_windows", l.windowCount(&l.global)))
		}
	}
}

func (l *SlidingWindow) windowCount(m *map[string][]time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(*m)
}
