package session

import (
	"sync"
	"time"

	"optio-backend/application/cache"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns every live session and the cache they share
type Manager struct {
	cache  *cache.ReadThrough
	start  valueobjects.NexusID
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions begin at start
func NewManager(c *cache.ReadThrough, start valueobjects.NexusID, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cache:    c,
		start:    start,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Cache returns the shared read-through cache
func (m *Manager) Cache() *cache.ReadThrough {
	return m.cache
}

// Create starts a new session at the start nexus
func (m *Manager) Create() *Session {
	s := newSession(uuid.New().String(), m.start, m.cache, m.now)

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("sessionID", s.ID),
		zap.Uint64("startNexus", m.start.Uint64()),
		zap.Int("sessions", count),
	)
	return s
}

// Get returns the session with the given ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("session").
			WithDetails(map[string]interface{}{"sessionId": id})
	}
	return s, nil
}

// Delete ends a session; unknown IDs are ignored
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.logger.Info("Session deleted", zap.String("sessionID", id))
	}
}

// All returns a snapshot of the live sessions
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ViewingNexus returns the sessions whose current nexus is id
func (m *Manager) ViewingNexus(id valueobjects.NexusID) []*Session {
	var out []*Session
	for _, s := range m.All() {
		if s.CurrentNexus() == id {
			out = append(out, s)
		}
	}
	return out
}

// Expire deletes sessions idle for longer than maxIdle and returns how many went
func (m *Manager) Expire(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxIdle)

	var expired []string
	for _, s := range m.All() {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s.ID)
		}
	}
	for _, id := range expired {
		m.Delete(id)
	}
	return len(expired)
}
