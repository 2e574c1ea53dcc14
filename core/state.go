package core

import (
	"encoding/json"
	"maps"
	"sync"
)

// State is the shared key/value store a state-graph run evaluates its edge
// predicates against. Individual accesses are synchronized here; the
// compound update-then-evaluate sequence of a graph step is serialized by
// the ExecutionContext step lock, so sibling branches sharing a state never
// interleave inside a step's bookkeeping.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates an empty state container.
func NewState() *State {
	return &State{values: map[string]any{}}
}

// Get returns the value and existence flag for a key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a single key/value pair.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Apply merges all pairs from delta into the state.
func (s *State) Apply(delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, delta)
}

// Snapshot returns a shallow copy of the current values, safe for iteration
// while the state keeps evolving.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// JSON serializes the current values for predicate evaluation.
func (s *State) JSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.values)
}

// Len returns the number of stored keys.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
