// Package core provides the foundational domain types, interfaces and execution
// contexts used by agentrelay. It defines the core abstractions for:
//
//   - Envelopes (immutable routed messages between agents and the user)
//   - Conversations (append-only envelope sequences)
//   - Agents (polymorphic handlers for one category of user intent)
//   - Thoughts (audit entries of agent-internal reasoning)
//   - Turn / ToolContext (scoped execution for agents and tools)
//
// Implementation concerns (routing, persistence, concrete agents, tools) live
// in sibling packages and depend on the small interfaces declared here.
package core
