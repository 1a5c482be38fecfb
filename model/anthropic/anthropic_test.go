package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/model"
)

func TestBuildMessages_ToolResultsFollowToolUse(t *testing.T) {
	msgs := buildMessages([]model.Message{
		model.UserMessage("TO Head:\nhello"),
		model.ToolCallMessage(
			model.ToolCall{ID: "a", Name: "think", Arguments: `{"thought":"x"}`},
			model.ToolCall{ID: "b", Name: "get_file_tree"},
		),
		model.ToolResultMessage("a", `{"ok":true}`),
		model.ToolResultMessage("b", `{"ok":true}`),
		model.AssistantMessage("FROM Rag TO Head:\n done"),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Len(t, msgs[1].Content, 2)
	assert.Equal(t, "user", string(msgs[2].Role))
	assert.Len(t, msgs[2].Content, 2)
	assert.Equal(t, "assistant", string(msgs[3].Role))
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Name:        "hand_over",
		Description: "pass on",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"recipient": map[string]any{"type": "string"}},
			"required":   []any{"recipient"},
		},
	}})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "hand_over", tools[0].OfTool.Name)
	assert.Equal(t, []string{"recipient"}, tools[0].OfTool.InputSchema.Required)
}
