package session

import (
	"sync"
	"time"
)

// Store keeps user sessions between updates. The workflow machine is the only
// writer and serializes events per user, so implementations only have to
// survive concurrent access across different users.
type Store interface {
	// Get returns the session for a user, if one exists.
	Get(userID int64) (*UserSession, bool)
	// Create replaces any existing session with a fresh one at the
	// document type selection step and returns it.
	Create(userID int64) *UserSession
	// Put persists mutations made to a session obtained from Get or Create.
	Put(s *UserSession)
	// Remove deletes the session. Removing an absent session is a no-op.
	Remove(userID int64)
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*UserSession
}

// NewMemoryStore constructs the in-memory Store used by default and in tests.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]*UserSession),
	}
}

func (m *memoryStore) Get(userID int64) (*UserSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	return s, ok
}

func (m *memoryStore) Create(userID int64) *UserSession {
	now := time.Now()
	s := &UserSession{
		UserID:         userID,
		DocumentType:   DocumentNone,
		State:          StateSelectingDocumentType,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
	return s
}

func (m *memoryStore) Put(s *UserSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
}

func (m *memoryStore) Remove(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
