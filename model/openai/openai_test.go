package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/model"
)

func TestBuildMessages(t *testing.T) {
	req := model.Request{
		Instructions: "be brief",
		Messages: []model.Message{
			model.UserMessage("TO Head:\nhi"),
			model.ToolCallMessage(model.ToolCall{ID: "c1", Name: "think", Arguments: `{"thought":"x"}`}),
			model.ToolResultMessage("c1", `{"ok":true}`),
			model.AssistantMessage("FROM Rag TO Head:\n found"),
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 5)

	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "think", msgs[2].OfAssistant.ToolCalls[0].Function.Name)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c1", msgs[3].OfTool.ToolCallID)
	assert.NotNil(t, msgs[4].OfAssistant)
}

func TestBuildParams_Tools(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test"; o.Model = "gpt-test" })

	req := model.Request{
		Tools: []model.ToolDefinition{{
			Name:        "hand_over",
			Description: "pass the conversation on",
			Parameters:  map[string]any{"type": "object"},
		}},
		ToolChoice: model.ToolChoiceRequired,
	}

	params := m.buildParams(req, nil)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "hand_over", params.Tools[0].Function.Name)
	assert.Equal(t, "required", params.ToolChoice.OfAuto.Value)
	assert.Equal(t, "gpt-test", m.Info().Name)
}

func TestToToolCallParams_EmptyArguments(t *testing.T) {
	out := toToolCallParams([]model.ToolCall{{ID: "1", Name: "get_file_tree"}})
	require.Len(t, out, 1)
	assert.Equal(t, "{}", out[0].Function.Arguments)
}
