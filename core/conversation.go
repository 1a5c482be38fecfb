package core

import (
	"fmt"
	"sync"
	"time"
)

// Conversation is the ordered, append-only envelope sequence of one user
// session. It is safe for concurrent access.
//
// Contract:
//   - Append rejects envelopes of other conversations and closed conversations
//   - Envelopes returns a defensive copy
//   - Close is idempotent and freezes the sequence
type Conversation struct {
	id        string
	envelopes []Envelope
	created   time.Time
	updated   time.Time
	closed    bool
	mu        sync.RWMutex
}

// NewConversation creates an empty conversation. An empty id is replaced by a
// generated one.
func NewConversation(id string) *Conversation {
	if id == "" {
		id = NewID()
	}

	now := time.Now().UTC()

	return &Conversation{id: id, envelopes: []Envelope{}, created: now, updated: now}
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.id }

// Created returns the creation timestamp.
func (c *Conversation) Created() time.Time { return c.created }

// Updated returns the timestamp of the last append.
func (c *Conversation) Updated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.updated
}

// Append adds an envelope to the end of the sequence.
func (c *Conversation) Append(env Envelope) error {
	if env.IsZero() {
		return &ValidationError{Field: "envelope", Message: "envelope is empty"}
	}

	if env.ConversationID() != c.id {
		return &ValidationError{
			Field:   "conversation_id",
			Value:   env.ConversationID(),
			Message: fmt.Sprintf("envelope belongs to another conversation than %s", c.id),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConversationClosed
	}

	c.envelopes = append(c.envelopes, env)
	c.updated = time.Now().UTC()

	return nil
}

// Envelopes returns a copy of the full sequence.
func (c *Conversation) Envelopes() []Envelope {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Envelope, len(c.envelopes))
	copy(out, c.envelopes)

	return out
}

// Len returns the number of envelopes.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.envelopes)
}

// Last returns the most recent envelope.
func (c *Conversation) Last() (Envelope, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.envelopes) == 0 {
		return Envelope{}, false
	}

	return c.envelopes[len(c.envelopes)-1], true
}

// Messages returns the routed messages only, skipping tool dispatch records.
func (c *Conversation) Messages() []Envelope {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Envelope, 0, len(c.envelopes))
	for _, env := range c.envelopes {
		if _, ok := env.Content().(Text); ok {
			out = append(out, env)
		}
	}

	return out
}

// Close freezes the conversation. Subsequent appends fail.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
}

// Closed reports whether the conversation has been frozen.
func (c *Conversation) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.closed
}
