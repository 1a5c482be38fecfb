package agent

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// BaseAgent bundles identity and logging shared by all agent variants.
// Embed it in concrete agents and supply a Handle method to satisfy
// core.Agent.
type BaseAgent struct {
	id          core.AgentID
	description string
	logger      logging.Logger
}

// NewBaseAgent constructs a BaseAgent. A nil logger discards output.
func NewBaseAgent(id core.AgentID, description string, logger logging.Logger) BaseAgent {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	if description == "" {
		description = "Agent " + string(id)
	}

	return BaseAgent{id: id, description: description, logger: logger}
}

// ID returns the agent identifier.
func (b *BaseAgent) ID() core.AgentID { return b.id }

// Description returns a short summary of the agent's responsibility. It is
// shown to the other agents in the team introduction.
func (b *BaseAgent) Description() string { return b.description }

// Logger returns the agent logger.
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// reply builds the envelope answering in. Replies to User are final.
func (b *BaseAgent) reply(turn *core.Turn, recipient core.AgentID, text string) (core.Envelope, error) {
	if recipient == core.User {
		return turn.Envelope(recipient, core.Text{Text: text}, core.WithFinal)
	}

	return turn.Envelope(recipient, core.Text{Text: text})
}
