package repository

import (
	"context"
	"sync"

	"archie-shopify-app-core/internal/domain"
	"archie-shopify-app-core/internal/ports"
)

// MemorySessionStorage keeps sessions in process memory. Sessions are copied on the way in
// and out so callers never share state with the store.
type MemorySessionStorage struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemorySessionStorage creates an empty in-memory session storage
func NewMemorySessionStorage() *MemorySessionStorage {
	return &MemorySessionStorage{
		sessions: make(map[string]*domain.Session),
	}
}

var _ ports.SessionStorage = (*MemorySessionStorage)(nil)

// Store saves or replaces a session
func (m *MemorySessionStorage) Store(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = domain.CloneSession(session, session.ID)
	return nil
}

// Load retrieves a session by id
func (m *MemorySessionStorage) Load(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return domain.CloneSession(session, session.ID), nil
}

// Delete removes a session by id
func (m *MemorySessionStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions
func (m *MemorySessionStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
