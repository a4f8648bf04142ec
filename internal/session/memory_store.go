package session

import (
	"context"
	"sync"

	"storefront/internal/domain"
)

// MemoryStore keeps sessions in-process (single instance only).
type MemoryStore struct {
	mu   sync.RWMutex
	sess map[string]domain.Session
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sess: make(map[string]domain.Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sess[id]
	return s, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess[s.ID] = s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, id)
	return nil
}
