package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore is a process-local Store for development and tests
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an in-memory store; ttl <= 0 keeps entries forever
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrNotFound
	}
	state := entry.state
	return &state, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{state: *state}
	if state.UpdatedAt.IsZero() {
		entry.state.UpdatedAt = m.now().UTC()
	}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) MarkEmailVerified(ctx context.Context, email string, at time.Time) error {
	return markVerified(ctx, m, email, at)
}

func (m *MemoryStore) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	return isVerified(ctx, m, email)
}
