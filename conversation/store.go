package conversation

import (
	"sort"
	"sync"
)

// Store is a volatile registry of live handlers keyed by conversation id.
// It is safe for concurrent access.
type Store struct {
	mu       sync.RWMutex
	handlers map[string]*Handler
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{handlers: make(map[string]*Handler)}
}

// Put stores h under its conversation id, replacing any previous handler.
func (s *Store) Put(h *Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[h.ID()] = h
}

// Get returns the handler of a conversation.
func (s *Store) Get(id string) (*Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.handlers[id]

	return h, ok
}

// List returns the stored conversation ids in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Delete closes and removes the handler of a conversation. It reports
// whether a handler was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	h, ok := s.handlers[id]
	delete(s.handlers, id)
	s.mu.Unlock()

	if ok {
		h.Close()
	}

	return ok
}
