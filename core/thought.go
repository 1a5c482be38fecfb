package core

import "time"

// Thought is an audit entry of agent-internal reasoning. Thoughts never
// influence routing.
type Thought struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AgentID        AgentID   `json:"agent_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewThought creates a thought stamped with a fresh id and the current time.
func NewThought(conversationID string, agent AgentID, text string) Thought {
	return Thought{
		ID:             NewID(),
		ConversationID: conversationID,
		AgentID:        agent,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
}

// ThoughtStore is an append-only log of thoughts keyed by conversation id.
type ThoughtStore interface {
	Append(t Thought) error
	ListFor(conversationID string) []Thought
	Tail(conversationID string, agent AgentID, k int) []Thought
}
