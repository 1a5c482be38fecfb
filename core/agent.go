package core

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/agentrelay/logging"
)

// Agent defines the contract every agent variant implements.
//
// Handle consumes the envelope addressed to the agent and returns the reply
// envelope. Tool dispatch performed while handling is recorded on the Turn,
// so that each ToolCall envelope is followed by exactly one ToolResult
// envelope before Handle returns.
type Agent interface {
	ID() AgentID
	Description() string
	Handle(turn *Turn, in Envelope) (Envelope, error)
}

// Turn carries the scope of one dispatch of an envelope to an agent.
type Turn struct {
	ctx          context.Context
	conversation *Conversation
	agent        AgentID

	mu      sync.Mutex
	revoked bool

	*loggerAdapter
}

// ErrTurnRevoked is returned by Record once the handler has abandoned the
// dispatch.
var ErrTurnRevoked = errors.New("turn revoked")

// NewTurn binds a dispatch to a conversation and the handling agent.
func NewTurn(ctx context.Context, conv *Conversation, agent AgentID, logger logging.Logger) *Turn {
	return &Turn{ctx: ctx, conversation: conv, agent: agent, loggerAdapter: newLoggerAdapter(logger)}
}

// Context returns the cancellation context of the dispatch.
func (t *Turn) Context() context.Context { return t.ctx }

// ConversationID returns the id of the conversation being handled.
func (t *Turn) ConversationID() string { return t.conversation.ID() }

// Agent returns the id of the handling agent.
func (t *Turn) Agent() AgentID { return t.agent }

// History returns a snapshot of the conversation so far.
func (t *Turn) History() []Envelope { return t.conversation.Envelopes() }

// Envelope creates an envelope sent by the handling agent.
func (t *Turn) Envelope(recipient AgentID, content Content, optFns ...func(o *EnvelopeOptions)) (Envelope, error) {
	return NewEnvelope(t.conversation.ID(), t.agent, recipient, content, optFns...)
}

// Record appends an intermediate envelope (tool dispatch) to the conversation.
// It fails with ErrTurnRevoked after Revoke.
func (t *Turn) Record(env Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.revoked {
		return ErrTurnRevoked
	}

	return t.conversation.Append(env)
}

// Revoke stops the turn from recording. When Revoke returns no further
// envelope of this turn reaches the conversation.
func (t *Turn) Revoke() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.revoked = true
}

// ToolContext creates the context for a single tool call.
func (t *Turn) ToolContext(callID string) *ToolContext {
	return NewToolContext(t.ctx, t.conversation.ID(), t.agent, callID, t.Logger())
}
