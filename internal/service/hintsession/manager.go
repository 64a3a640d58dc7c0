// Package hintsession maintains progressive-disclosure hint sessions: one
// state machine per (tab, problem) that advances through ordered hint levels,
// expires when idle and is evicted under a per-tab cap.
package hintsession

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// Config holds the session manager knobs.
type Config struct {
	// MaxLevel is the terminal hint level.
	MaxLevel int
	// TTL is the idle expiry threshold, checked lazily on every access.
	TTL time.Duration
	// PerTabCap bounds live sessions per tab; least-recently-updated
	// excess sessions are evicted after each write.
	PerTabCap int
	// EvolutionCap bounds the trailing code-evolution log per session.
	EvolutionCap int
}

// Manager is the keyed session store. All mutation happens under one lock;
// expiry is lazy (no background timer owns session lifetime).
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*session

	now func() time.Time
}

type session struct {
	id        string
	tabID     string
	title     string
	level     int
	hints     []domain.HintEntry
	initial   domain.CodeContext
	concepts  map[string]struct{}
	evolution []domain.CodeSnapshot
	score     float64
	createdAt time.Time
	updatedAt time.Time
}

// New constructs a Manager.
func New(cfg Config) *Manager {
	if cfg.MaxLevel <= 0 {
		cfg.MaxLevel = 4
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.PerTabCap <= 0 {
		cfg.PerTabCap = 5
	}
	if cfg.EvolutionCap <= 0 {
		cfg.EvolutionCap = 10
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// SetClock replaces the time source; test hook.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

func normalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

func sessionKey(tabID, title string) string {
	return tabID + "|" + normalizeTitle(title)
}

// Advance moves the session for (tabID, title) to its next level and returns
// it. Absent, expired and structurally corrupt sessions are discarded and
// re-enter at level 1; the initial code context is frozen at that point.
func (m *Manager) Advance(tabID, title string, initial domain.CodeContext) int {
	key := sessionKey(tabID, title)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[key]
	if s != nil && (m.expired(s, now) || !sequential(s.hints)) {
		if !sequential(s.hints) {
			slog.Warn("discarding corrupt hint session",
				slog.String("tab_id", tabID),
				slog.String("problem", s.title))
		}
		delete(m.sessions, key)
		s = nil
	}
	if s == nil {
		s = &session{
			id:        uuid.NewString(),
			tabID:     tabID,
			title:     normalizeTitle(title),
			level:     1,
			initial:   initial,
			concepts:  make(map[string]struct{}),
			createdAt: now,
		}
		m.sessions[key] = s
	} else if s.level < m.cfg.MaxLevel {
		s.level++
	}
	s.updatedAt = now
	return s.level
}

// RecordHint appends a hint entry after successful generation. The
// sequential-level invariant is enforced at write time: the entry's level
// must equal len(existing hints) + 1.
func (m *Manager) RecordHint(tabID, title string, level int, content string, cur domain.CodeContext) error {
	key := sessionKey(tabID, title)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[key]
	if s == nil || m.expired(s, now) {
		delete(m.sessions, key)
		return fmt.Errorf("no active hint session for %q", title)
	}
	if level != len(s.hints)+1 {
		return fmt.Errorf("hint level %d breaks sequence (have %d hints)", level, len(s.hints))
	}

	s.hints = append(s.hints, domain.HintEntry{
		Level:     level,
		Content:   content,
		Kind:      deriveKind(level, content),
		HasCode:   hasCodeShape(content),
		CreatedAt: now,
	})
	for _, c := range ExtractConcepts(content) {
		s.concepts[c] = struct{}{}
	}
	m.recordEvolution(s, cur, now)
	s.updatedAt = now
	s.score = m.progressScore(s, now)

	m.evictLocked(tabID, now)
	return nil
}

// recordEvolution appends a code snapshot when the caller's code changed
// since the last recorded one, keeping the log bounded.
func (m *Manager) recordEvolution(s *session, cur domain.CodeContext, now time.Time) {
	if strings.TrimSpace(cur.Code) == "" {
		return
	}
	last := s.initial.Code
	if n := len(s.evolution); n > 0 {
		last = s.evolution[n-1].Code
	}
	if cur.Code == last {
		return
	}
	s.evolution = append(s.evolution, domain.CodeSnapshot{
		Code:     cur.Code,
		Language: cur.Language,
		TakenAt:  now,
	})
	if len(s.evolution) > m.cfg.EvolutionCap {
		s.evolution = s.evolution[len(s.evolution)-m.cfg.EvolutionCap:]
	}
}

// progressScore is a weighted sum with capped contributions so it cannot
// grow without bound.
func (m *Manager) progressScore(s *session, now time.Time) float64 {
	levelPart := 40 * float64(s.level) / float64(m.cfg.MaxLevel)
	conceptPart := 5 * float64(min(len(s.concepts), 5))
	evolPart := 3 * float64(min(len(s.evolution), 5))
	minutes := now.Sub(s.createdAt).Minutes()
	if minutes > 30 {
		minutes = 30
	}
	durationPart := minutes / 30 * 20
	return levelPart + conceptPart + evolPart + durationPart
}

// GetContext returns the session's read view for prompt construction, or
// false when the session is absent or expired.
func (m *Manager) GetContext(tabID, title string) (domain.SessionContext, bool) {
	key := sessionKey(tabID, title)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[key]
	if s == nil {
		return domain.SessionContext{}, false
	}
	if m.expired(s, now) || !sequential(s.hints) {
		delete(m.sessions, key)
		return domain.SessionContext{}, false
	}

	concepts := make([]string, 0, len(s.concepts))
	for c := range s.concepts {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)

	recent := s.evolution
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	return domain.SessionContext{
		ProblemTitle:    s.title,
		Level:           s.level,
		MaxLevel:        m.cfg.MaxLevel,
		Hints:           append([]domain.HintEntry(nil), s.hints...),
		Initial:         s.initial,
		Concepts:        concepts,
		RecentEvolution: append([]domain.CodeSnapshot(nil), recent...),
		ProgressScore:   s.score,
		Duration:        now.Sub(s.createdAt),
	}, true
}

// Reset deletes the session outright; the next advance starts fresh at
// level 1.
func (m *Manager) Reset(tabID, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(tabID, title))
}

// DropTab removes every session belonging to one tab (tab-close lifecycle).
func (m *Manager) DropTab(tabID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.sessions {
		if s.tabID == tabID {
			delete(m.sessions, key)
		}
	}
}

// ActiveSessions reports the number of live sessions (gauge).
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// evictLocked drops expired sessions for the tab, then least-recently-
// updated sessions beyond the per-tab cap. Caller holds the lock.
func (m *Manager) evictLocked(tabID string, now time.Time) {
	var live []*session
	for key, s := range m.sessions {
		if s.tabID != tabID {
			continue
		}
		if m.expired(s, now) {
			delete(m.sessions, key)
			continue
		}
		live = append(live, s)
	}
	if len(live) <= m.cfg.PerTabCap {
		return
	}
	sort.Slice(live, func(i, j int) bool { return live[i].updatedAt.Before(live[j].updatedAt) })
	for _, s := range live[:len(live)-m.cfg.PerTabCap] {
		delete(m.sessions, sessionKey(s.tabID, s.title))
	}
}

func (m *Manager) expired(s *session, now time.Time) bool {
	return now.Sub(s.updatedAt) > m.cfg.TTL
}

// sequential verifies the strict-ordering invariant: entry i has level i+1.
func sequential(hints []domain.HintEntry) bool {
	for i, h := range hints {
		if h.Level != i+1 {
			return false
		}
	}
	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
