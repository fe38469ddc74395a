package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/smartdevs17/multichain-watcher/internal/models"
)

// MemoryStorage keeps address sets in process memory. Nothing survives a restart.
type MemoryStorage struct {
	mu   sync.RWMutex
	sets map[models.ScopeKey][]string

	// FailPersist, when set, is returned by every Persist call
	FailPersist error
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sets: make(map[models.ScopeKey][]string)}
}

func (m *MemoryStorage) Connect(ctx context.Context) error { return nil }
func (m *MemoryStorage) Close() error                      { return nil }
func (m *MemoryStorage) Ping(ctx context.Context) error    { return nil }
func (m *MemoryStorage) Migrate(ctx context.Context) error { return nil }

// Load returns a copy of the scope's addresses
func (m *MemoryStorage) Load(ctx context.Context, scope models.ScopeKey) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.sets[scope]))
	copy(out, m.sets[scope])
	return out, nil
}

// Persist stores a sorted copy of addresses
func (m *MemoryStorage) Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPersist != nil {
		return m.FailPersist
	}
	stored := make([]string, len(addresses))
	copy(stored, addresses)
	sort.Strings(stored)
	m.sets[scope] = stored
	return nil
}
