package agent

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

// dispatch records the ToolCall envelope, invokes the tool and records the
// matching ToolResult envelope. Tool failures come back as failed results;
// only recording errors abort the turn.
func dispatch(turn *core.Turn, registry *tool.Registry, callID, name string, args map[string]any, decodeErr error) (core.ToolResult, error) {
	if callID == "" {
		callID = core.NewID()
	}

	call := core.ToolCall{ID: callID, Name: name, Arguments: args}

	callEnv, err := turn.Envelope(turn.Agent(), call)
	if err != nil {
		return core.ToolResult{}, err
	}

	if err := turn.Record(callEnv); err != nil {
		return core.ToolResult{}, err
	}

	var result core.ToolResult

	switch {
	case decodeErr != nil:
		result = core.NewToolFailure(call, &core.ToolInvocationError{
			Tool:    name,
			Code:    core.CodeValidation,
			Message: decodeErr.Error(),
			Err:     decodeErr,
		})
	case registry == nil:
		result = core.NewToolFailure(call, &core.UnknownToolError{Name: name})
	default:
		result, _ = registry.Invoke(turn.ToolContext(callID), name, args)
	}

	resultEnv, err := turn.Envelope(turn.Agent(), result)
	if err != nil {
		return core.ToolResult{}, err
	}

	if err := turn.Record(resultEnv); err != nil {
		return core.ToolResult{}, err
	}

	return result, nil
}
