// Package tool implements the tool calling subsystem that lets agents invoke
// structured capabilities (retrieval, memory, code execution, hand-over) with
// schema validated arguments and a uniform error taxonomy.
package tool

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive snake_case names and descriptions
//   - Define a JSON schema for parameters (validated by the Registry)
//   - Respect the cancellation context of the ToolContext
//   - Be safe for concurrent use by multiple conversations
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to decide when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already validated arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Definition converts a tool into the model-facing declaration.
func Definition(t Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}
