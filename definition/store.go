package definition

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by stores when no definition exists for an id.
var ErrNotFound = errors.New("agent definition not found")

// ErrReadOnlyStore is returned when a write is attempted against a store
// that only supports lookups.
var ErrReadOnlyStore = errors.New("definition store is read-only")

// Store is the lookup capability the resolver depends on. Persistence of
// definitions is owned by an external collaborator; this interface is the
// engine's whole view of it.
type Store interface {
	// Get returns an immutable snapshot of the definition for id, or an
	// error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*AgentDefinition, error)
}

// InMemoryStore is a thread-safe Store for tests, examples and embedded use.
// Put bumps the stored definition's Version so caches can detect change.
type InMemoryStore struct {
	mu   sync.RWMutex
	defs map[string]*AgentDefinition
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{defs: map[string]*AgentDefinition{}}
}

// Get implements Store. The returned definition is a deep copy.
func (s *InMemoryStore) Get(_ context.Context, id string) (*AgentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return def.Clone(), nil
}

// Put stores a copy of def under def.ID, incrementing Version past the
// previously stored revision.
func (s *InMemoryStore) Put(def *AgentDefinition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("definition requires a non-empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := def.Clone()
	if prev, ok := s.defs[def.ID]; ok {
		c.Version = prev.Version + 1
	} else if c.Version == 0 {
		c.Version = 1
	}
	s.defs[def.ID] = c

	return nil
}

// Delete removes the definition for id. Deleting an unknown id is a no-op.
func (s *InMemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defs, id)
}

// List returns the ids of all stored definitions.
func (s *InMemoryStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.defs))
	for id := range s.defs {
		ids = append(ids, id)
	}
	return ids
}
