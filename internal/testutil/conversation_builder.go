package testutil

import (
	"github.com/hupe1980/agentrelay/core"
)

// ConversationBuilder helps construct conversations with fluent chaining for tests.
// Example:
//
//	conv := NewConversationBuilder("conv-1").Say(core.User, core.Head, "hi").Build()
type ConversationBuilder struct {
	id        string
	envelopes []core.Envelope
}

// NewConversationBuilder creates a new builder for a conversation with the given id.
func NewConversationBuilder(id string) *ConversationBuilder {
	if id == "" {
		id = core.NewID()
	}

	return &ConversationBuilder{id: id}
}

// Say appends a text envelope from sender to recipient (chainable).
func (b *ConversationBuilder) Say(from, to core.AgentID, text string) *ConversationBuilder {
	b.envelopes = append(b.envelopes, NewEnvelopeBuilder(b.id).From(from).To(to).Text(text).Build())
	return b
}

// Envelopes appends prebuilt envelopes (chainable).
func (b *ConversationBuilder) Envelopes(envs ...core.Envelope) *ConversationBuilder {
	b.envelopes = append(b.envelopes, envs...)
	return b
}

// Build returns a conversation holding the appended envelopes. It panics
// when an envelope belongs to another conversation.
func (b *ConversationBuilder) Build() *core.Conversation {
	conv := core.NewConversation(b.id)

	for _, env := range b.envelopes {
		if err := conv.Append(env); err != nil {
			panic(err)
		}
	}

	return conv
}
