package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("c1", User, Head, Text{Text: "hello"})
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID())
	assert.Equal(t, "c1", env.ConversationID())
	assert.Equal(t, User, env.Sender())
	assert.Equal(t, Head, env.Recipient())
	assert.Equal(t, "hello", env.Text())
	assert.False(t, env.IsFinal())
	assert.False(t, env.CreatedAt().IsZero())
}

func TestNewEnvelope_UnknownRecipient(t *testing.T) {
	_, err := NewEnvelope("c1", Head, AgentID("Planner"), Text{Text: "x"})
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "recipient", vErr.Field)
}

func TestNewEnvelope_UnknownSender(t *testing.T) {
	_, err := NewEnvelope("c1", AgentID(""), Head, Text{Text: "x"})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "sender", vErr.Field)
}

func TestNewEnvelope_MissingContent(t *testing.T) {
	_, err := NewEnvelope("c1", Head, Rag, nil)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "content", vErr.Field)
}

func TestNewEnvelope_Final(t *testing.T) {
	env, err := NewEnvelope("c1", Head, User, Text{Text: "done"}, WithFinal)
	require.NoError(t, err)
	assert.True(t, IsFinal(env))

	_, err = NewEnvelope("c1", Head, Rag, Text{Text: "done"}, WithFinal)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "final", vErr.Field)
}

func TestEnvelope_RecipientAlwaysKnown(t *testing.T) {
	for _, id := range append(AgentIDs(), User) {
		env, err := NewEnvelope("c", Head, id, Text{Text: "x"})
		require.NoError(t, err)
		assert.True(t, env.Recipient().Valid())
	}

	for _, id := range []AgentID{"", "head", "Planner", "user"} {
		_, err := NewEnvelope("c", Head, id, Text{Text: "x"})
		assert.Error(t, err, id)
	}
}

func TestParseAgentID(t *testing.T) {
	cases := map[string]AgentID{
		"Head":         Head,
		"HeadAgent":    Head,
		"RAGAgent":     Rag,
		"rag":          Rag,
		"MemoryAgent":  Memory,
		"AnalystAgent": Analyst,
		" mock ":       Mock,
		"User":         User,
	}
	for in, want := range cases {
		got, err := ParseAgentID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAgentID("Planner")
	assert.Error(t, err)
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	env, err := NewEnvelope("c1", Analyst, Analyst, ToolCall{ID: "t1", Name: "run_code", Arguments: map[string]any{"code": "print(1)"}})
	require.NoError(t, err)

	b, err := json.Marshal(env)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "tool_call", out["kind"])
	assert.Equal(t, "Analyst", out["sender"])
}

func TestToolResult_JSON(t *testing.T) {
	call := ToolCall{ID: "1", Name: "think"}

	ok := NewToolResult(call, map[string]any{"stored": true})
	assert.JSONEq(t, `{"ok":true,"data":{"stored":true}}`, ok.JSON())

	failed := NewToolFailure(call, errors.New("boom"))
	assert.JSONEq(t, `{"ok":false,"error":"boom"}`, failed.JSON())
	assert.Equal(t, "1", failed.CallID)
}

func TestEnvelope_ContentIsImmutable(t *testing.T) {
	args := map[string]any{"code": "print(2+2)", "opts": map[string]any{"n": 1}, "list": []any{"a"}}

	env, err := NewEnvelope("c1", Analyst, Analyst, ToolCall{ID: "t1", Name: "run_code", Arguments: args})
	require.NoError(t, err)

	before := env.Content().(ToolCall).ArgumentsJSON()

	args["code"] = "import os"
	args["opts"].(map[string]any)["n"] = 2
	args["list"].([]any)[0] = "b"

	read := env.Content().(ToolCall).Arguments
	read["extra"] = 1
	read["opts"].(map[string]any)["n"] = 3

	assert.Equal(t, before, env.Content().(ToolCall).ArgumentsJSON())
	assert.JSONEq(t, `{"code":"print(2+2)","opts":{"n":1},"list":["a"]}`, env.Content().(ToolCall).ArgumentsJSON())

	data := map[string]any{"stdout": "4"}
	res, err := NewEnvelope("c1", Analyst, Analyst, ToolResult{CallID: "t1", Name: "run_code", OK: true, Data: data})
	require.NoError(t, err)

	data["stdout"] = "5"
	res.Content().(ToolResult).Data.(map[string]any)["stdout"] = "6"

	assert.Equal(t, "4", res.Content().(ToolResult).Data.(map[string]any)["stdout"])
}
