package core

import (
	"context"

	"github.com/hupe1980/agentrelay/logging"
)

// ToolContext provides a constrained surface for tool implementations: the
// cancellation context plus identifiers for auditing.
type ToolContext struct {
	ctx            context.Context
	conversationID string
	agent          AgentID
	callID         string

	*loggerAdapter
}

// NewToolContext constructs a tool context for one call.
func NewToolContext(ctx context.Context, conversationID string, agent AgentID, callID string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ToolContext{
		ctx:            ctx,
		conversationID: conversationID,
		agent:          agent,
		callID:         callID,
		loggerAdapter:  newLoggerAdapter(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// WithContext returns a copy bound to ctx.
func (tc *ToolContext) WithContext(ctx context.Context) *ToolContext {
	cp := *tc
	cp.ctx = ctx

	return &cp
}

// ConversationID returns the conversation the call belongs to.
func (tc *ToolContext) ConversationID() string { return tc.conversationID }

// AgentID returns the agent issuing the call.
func (tc *ToolContext) AgentID() AgentID { return tc.agent }

// CallID returns the tool call identifier.
func (tc *ToolContext) CallID() string { return tc.callID }
