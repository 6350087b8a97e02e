package calendarsession

import (
	"sync"
)

// Manager keeps one calendar Session per signed-in user, keyed by login session token.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the session for key, creating it with create if absent.
// PRE: create is non-nil
func (m *Manager) Get(key string, create func() *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}
	s := create()
	m.sessions[key] = s
	return s
}

// Remove discards the session for key (on logout).
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
