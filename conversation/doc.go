// Package conversation implements the routing state machine that drives one
// user session through the agent team.
//
// A Handler owns one core.Conversation. Each Send wraps the user text in an
// envelope addressed to the entry agent and dispatches envelopes until one
// addressed to the user is produced:
//
//	AwaitingUserInput -> Dispatching -> AwaitingAgentResponse
//	    -> (Dispatching | Finalizing) -> AwaitingUserInput ... -> Done
//
// Unrecovered agent failures end the conversation with a terminal error
// envelope. Conversations running concurrently each own their Handler.
package conversation
