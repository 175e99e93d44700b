package session

import (
	"sync"
	"time"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/template"
)

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 24 * time.Hour

// Manager keeps sessions in memory.
type Manager struct {
	registry *template.Registry
	opts     []Option
	ttl      time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a manager creating sessions with opts. A ttl of zero
// means [DefaultIdleTTL].
func NewManager(reg *template.Registry, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Manager{
		registry: reg,
		opts:     opts,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session editing templateID.
func (m *Manager) Create(templateID string) (*Session, error) {
	s, err := New(m.registry, templateID, m.opts...)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || m.expired(s, time.Now()) {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	return s, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of stored sessions, expired ones included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes idle sessions and returns how many were removed. Sessions
// with a running export are kept.
func (m *Manager) Cleanup() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s, now) && !s.Exporting() {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.UpdatedAt()) > m.ttl
}
