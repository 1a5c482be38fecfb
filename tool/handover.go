package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentrelay/core"
)

// HandOverName is the name of the routing tool. Models end their turn by
// calling it.
const HandOverName = "hand_over"

// HandOver is the validated routing decision returned by the hand_over tool.
type HandOver struct {
	Recipient core.AgentID `json:"recipient"`
	Message   string       `json:"message"`
}

// NewHandOverTool creates the hand_over tool. recipients restricts the
// allowed targets; User is always allowed. The calling agent cannot hand
// over to itself.
func NewHandOverTool(recipients ...core.AgentID) *FunctionTool {
	if len(recipients) == 0 {
		recipients = core.AgentIDs()
	}

	names := []any{string(core.User)}
	allowed := map[core.AgentID]bool{core.User: true}

	for _, id := range recipients {
		if id == core.User || allowed[id] {
			continue
		}

		names = append(names, string(id))
		allowed[id] = true
	}

	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{
				"type":        "string",
				"description": "Agent receiving the message. Use User to answer the user directly.",
				"enum":        names,
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Complete message for the recipient.",
			},
		},
		"required": []any{"recipient", "message"},
	}

	return NewFunctionTool(HandOverName, "Hand the conversation over to another agent or answer the user.", params,
		func(tc *core.ToolContext, raw map[string]any) (any, error) {
			recipient, _ := raw["recipient"].(string)
			message, _ := raw["message"].(string)

			id, err := core.ParseAgentID(recipient)
			if err != nil || !allowed[id] {
				return nil, &core.ToolInvocationError{
					Tool:    HandOverName,
					Code:    core.CodeValidation,
					Message: fmt.Sprintf("unknown recipient %q", recipient),
					Err:     err,
				}
			}

			if id == tc.AgentID() {
				return nil, &core.ToolInvocationError{
					Tool:    HandOverName,
					Code:    core.CodeValidation,
					Message: fmt.Sprintf("%s cannot hand over to itself", id),
				}
			}

			if strings.TrimSpace(message) == "" {
				return nil, &core.ToolInvocationError{
					Tool:    HandOverName,
					Code:    core.CodeValidation,
					Message: "message must not be empty",
				}
			}

			return HandOver{Recipient: id, Message: message}, nil
		})
}
