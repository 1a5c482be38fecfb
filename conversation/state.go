package conversation

// State is a phase of the routing state machine.
type State int

const (
	// AwaitingUserInput waits for the next Send.
	AwaitingUserInput State = iota
	// Dispatching delivers the current envelope to its recipient.
	Dispatching
	// AwaitingAgentResponse blocks until the recipient replies.
	AwaitingAgentResponse
	// Finalizing completes a user turn.
	Finalizing
	// Done is terminal.
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingUserInput:
		return "AwaitingUserInput"
	case Dispatching:
		return "Dispatching"
	case AwaitingAgentResponse:
		return "AwaitingAgentResponse"
	case Finalizing:
		return "Finalizing"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}
