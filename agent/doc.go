// Package agent contains the agent variants of a relay conversation: the
// model driven Head, Rag, Memory and Analyst agents and the deterministic
// MockAgent.
//
// Every agent implements core.Agent. Handle receives the envelope addressed
// to the agent together with a *core.Turn and returns the reply envelope.
// Tool dispatch performed while handling is recorded on the turn as a
// ToolCall envelope followed by its ToolResult envelope.
//
// Execution model:
//   - ModelAgent renders the conversation into model messages, forces a tool
//     call on every generation and loops until hand_over is called
//   - tool failures are fed back to the model as {ok:false} results
//   - the loop is bounded by MaxIterations; an exhausted budget produces a
//     reply describing the failure instead of an error
package agent
