package agent

import (
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/util"
)

// Instruction is the system instruction of a model agent: fixed text or a
// function evaluated on every turn.
type Instruction struct {
	text    string
	resolve func(turn *core.Turn) (string, error)
}

// NewInstructionFromText creates a fixed instruction.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromFunc creates an instruction computed per turn.
func NewInstructionFromFunc(fn func(turn *core.Turn) (string, error)) Instruction {
	return Instruction{resolve: fn}
}

// NewInstructionFromTemplate renders text per turn. The template sees
// .agent, .conversation_id and .date (UTC, YYYY-MM-DD).
func NewInstructionFromTemplate(text string) Instruction {
	return NewInstructionFromFunc(func(turn *core.Turn) (string, error) {
		state := map[string]any{"date": time.Now().UTC().Format(time.DateOnly)}
		if turn != nil {
			state["agent"] = string(turn.Agent())
			state["conversation_id"] = turn.ConversationID()
		}

		return util.RenderTemplate(text, state)
	})
}

// Resolve returns the instruction text for turn.
func (i Instruction) Resolve(turn *core.Turn) (string, error) {
	if i.resolve == nil {
		return i.text, nil
	}

	return i.resolve(turn)
}
