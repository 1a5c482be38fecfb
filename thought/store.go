// Package thought provides the process-wide, append-only store of agent
// reasoning steps.
package thought

import (
	"errors"
	"sync"

	"github.com/hupe1980/agentrelay/core"
)

// InMemoryStore keeps thoughts in memory, sharded by conversation id. Each
// shard has its own lock, so conversations never contend with each other
// and readers receive snapshot copies.
type InMemoryStore struct {
	mu     sync.RWMutex
	shards map[string]*shard
}

type shard struct {
	mu       sync.RWMutex
	thoughts []core.Thought
}

var _ core.ThoughtStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{shards: make(map[string]*shard)}
}

// Append adds t to the log of its conversation.
func (s *InMemoryStore) Append(t core.Thought) error {
	if t.ConversationID == "" {
		return &core.ValidationError{Field: "conversation_id", Message: "conversation id is required"}
	}

	if t.Text == "" {
		return errors.New("thought text must not be empty")
	}

	if t.ID == "" {
		t.ID = core.NewID()
	}

	sh := s.shard(t.ConversationID, true)

	sh.mu.Lock()
	sh.thoughts = append(sh.thoughts, t)
	sh.mu.Unlock()

	return nil
}

// ListFor returns all thoughts of a conversation in append order.
func (s *InMemoryStore) ListFor(conversationID string) []core.Thought {
	sh := s.shard(conversationID, false)
	if sh == nil {
		return []core.Thought{}
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make([]core.Thought, len(sh.thoughts))
	copy(out, sh.thoughts)

	return out
}

// Tail returns the last k thoughts written by agent in a conversation, oldest
// first. An empty agent matches every agent.
func (s *InMemoryStore) Tail(conversationID string, agent core.AgentID, k int) []core.Thought {
	if k <= 0 {
		return []core.Thought{}
	}

	sh := s.shard(conversationID, false)
	if sh == nil {
		return []core.Thought{}
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make([]core.Thought, 0, k)

	for i := len(sh.thoughts) - 1; i >= 0 && len(out) < k; i-- {
		if agent == "" || sh.thoughts[i].AgentID == agent {
			out = append(out, sh.thoughts[i])
		}
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// Count returns the number of thoughts of a conversation.
func (s *InMemoryStore) Count(conversationID string) int {
	sh := s.shard(conversationID, false)
	if sh == nil {
		return 0
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return len(sh.thoughts)
}

func (s *InMemoryStore) shard(conversationID string, create bool) *shard {
	s.mu.RLock()
	sh, ok := s.shards[conversationID]
	s.mu.RUnlock()

	if ok || !create {
		return sh
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sh, ok = s.shards[conversationID]; !ok {
		sh = &shard{}
		s.shards[conversationID] = sh
	}

	return sh
}
