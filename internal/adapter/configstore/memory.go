// Package configstore provides the in-memory per-tab settings store.
// Settings live for the process lifetime only; persistence across restarts
// is out of scope.
package configstore

import (
	"context"
	"sync"

	"github.com/fairyhunter13/ai-code-mentor/internal/domain"
)

// Memory implements domain.SettingsStore.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]domain.Settings
}

// NewMemory constructs an empty store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]domain.Settings)}
}

// Save stores the tab's settings, replacing any previous value.
func (m *Memory) Save(_ context.Context, tabID string, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[tabID] = s
	return nil
}

// Get returns the tab's settings and whether any were saved.
func (m *Memory) Get(_ context.Context, tabID string) (domain.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[tabID]
	return s, ok, nil
}

// Drop removes the tab's settings (tab-close lifecycle).
func (m *Memory) Drop(tabID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, tabID)
}
