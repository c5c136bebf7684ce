package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by backends when no record exists for a session id.
var ErrNotFound = errors.New("session not found")

// Backend is the persistence contract: get a record by id or save a full
// snapshot. The store consults it only on cache misses and after updates.
type Backend interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, state *State) error
}

// MemoryBackend is a thread-safe in-memory Backend, used by tests and the
// interactive CLI. Records are stored as deep copies so callers can never
// mutate the backing store through a returned snapshot.
type MemoryBackend struct {
	mu    sync.RWMutex
	store map[string]*State
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{store: make(map[string]*State)}
}

// Get returns a deep copy of the stored record or ErrNotFound.
func (b *MemoryBackend) Get(ctx context.Context, id string) (*State, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Save stores a deep copy of the record.
func (b *MemoryBackend) Save(ctx context.Context, id string, state *State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store[id] = state.Clone()
	return nil
}

// List returns the ids of all stored sessions.
func (b *MemoryBackend) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.store))
	for id := range b.store {
		ids = append(ids, id)
	}
	return ids
}
