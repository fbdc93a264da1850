package graph

import "sync"

// State is the shared key/value store threaded through every invocation of a
// run. Writes by one step are visible to all later steps in the same run.
//
// The execution model is single-writer (one invocation at a time, see Run),
// so the engine itself never contends on the lock; it exists so that
// out-of-run readers (schedulers, tool surfaces, tests) can inspect the
// state safely while a run is in flight.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates an empty State.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// NewStateFrom creates a State seeded with the given values.
func NewStateFrom(values map[string]any) *State {
	s := NewState()
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Get returns the value stored under key and whether it was present.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value stored under key, or nil when absent.
func (s *State) Value(key string) any {
	v, _ := s.Get(key)
	return v
}

// Set stores value under key, replacing any previous value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Has reports whether key is present.
func (s *State) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Delete removes key from the state.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Len returns the number of stored keys.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Values returns a shallow copy of the stored values. Used as the
// environment for expression-based conditions.
func (s *State) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
