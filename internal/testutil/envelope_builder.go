package testutil

import (
	"github.com/hupe1980/agentrelay/core"
)

// EnvelopeBuilder provides a fluent helper for constructing envelopes in tests.
// Example:
//
//	env := NewEnvelopeBuilder("conv-1").From(core.User).To(core.Head).Text("hi").Build()
//
// Chain only the parts you need; defaults are User → Head with empty text.
type EnvelopeBuilder struct {
	conversationID string
	sender         core.AgentID
	recipient      core.AgentID
	content        core.Content
	final          bool
}

// NewEnvelopeBuilder creates a builder for the given conversation.
func NewEnvelopeBuilder(conversationID string) *EnvelopeBuilder {
	return &EnvelopeBuilder{conversationID: conversationID, sender: core.User, recipient: core.Head, content: core.Text{}}
}

// From sets the sender (chainable).
func (b *EnvelopeBuilder) From(id core.AgentID) *EnvelopeBuilder { b.sender = id; return b }

// To sets the recipient (chainable).
func (b *EnvelopeBuilder) To(id core.AgentID) *EnvelopeBuilder { b.recipient = id; return b }

// Text sets a text payload (chainable).
func (b *EnvelopeBuilder) Text(t string) *EnvelopeBuilder { b.content = core.Text{Text: t}; return b }

// ToolCall sets a tool call payload (chainable).
func (b *EnvelopeBuilder) ToolCall(id, name string, args map[string]any) *EnvelopeBuilder {
	b.content = core.ToolCall{ID: id, Name: name, Arguments: args}
	return b
}

// ToolResult sets a successful tool result payload (chainable).
func (b *EnvelopeBuilder) ToolResult(callID, name string, data any) *EnvelopeBuilder {
	b.content = core.ToolResult{CallID: callID, Name: name, OK: true, Data: data}
	return b
}

// Final marks the envelope as terminal (chainable).
func (b *EnvelopeBuilder) Final() *EnvelopeBuilder { b.final = true; return b }

// Build constructs the envelope and panics on validation errors.
func (b *EnvelopeBuilder) Build() core.Envelope {
	var opts []func(o *core.EnvelopeOptions)
	if b.final {
		opts = append(opts, core.WithFinal)
	}

	env, err := core.NewEnvelope(b.conversationID, b.sender, b.recipient, b.content, opts...)
	if err != nil {
		panic(err)
	}

	return env
}
