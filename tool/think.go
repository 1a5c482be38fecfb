package tool

import (
	"strings"

	"github.com/hupe1980/agentrelay/core"
)

// ThinkName is the name of the reasoning audit tool.
const ThinkName = "think"

type thinkArgs struct {
	Thought string `json:"thought" description:"A short reasoning step worth remembering for this conversation."`
}

// NewThinkTool records a thought of the calling agent in store.
func NewThinkTool(store core.ThoughtStore) *FunctionTool {
	return NewTypedTool(ThinkName, "Write down a reasoning step. Thoughts are private to the team and never sent to the user.",
		func(tc *core.ToolContext, args thinkArgs) (any, error) {
			text := strings.TrimSpace(args.Thought)
			if text == "" {
				return nil, &core.ToolInvocationError{Tool: ThinkName, Code: core.CodeValidation, Message: "thought must not be empty"}
			}

			if err := store.Append(core.NewThought(tc.ConversationID(), tc.AgentID(), text)); err != nil {
				return nil, err
			}

			return "thought recorded", nil
		})
}
