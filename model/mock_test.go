package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_ScriptThenCanned(t *testing.T) {
	m := NewMockModel("mock")
	m.Script(HandOverResponse("User", "hi"))
	m.AddResponse("ping", "pong")

	resp, err := m.Generate(context.Background(), Request{Messages: []Message{UserMessage("ping")}})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "hand_over", resp.ToolCalls[0].Name)

	args, err := resp.ToolCalls[0].DecodeArguments()
	require.NoError(t, err)
	assert.Equal(t, "User", args["recipient"])

	resp, err = m.Generate(context.Background(), Request{Messages: []Message{UserMessage("ping")}})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text)

	resp, err = m.Generate(context.Background(), Request{Messages: []Message{UserMessage("other")}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Text)

	assert.Len(t, m.Requests(), 3)
}

func TestMockModel_NoMessages(t *testing.T) {
	_, err := NewMockModel("mock").Generate(context.Background(), Request{})
	assert.Error(t, err)
}

func TestToolCall_DecodeArguments(t *testing.T) {
	args, err := ToolCall{Name: "x"}.DecodeArguments()
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ToolCall{Name: "x", Arguments: "{not json"}.DecodeArguments()
	assert.Error(t, err)
}

type slowModel struct{}

func (slowModel) Generate(ctx context.Context, _ Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-time.After(time.Second):
		return Response{Text: "late"}, nil
	}
}

func (slowModel) Info() Info { return Info{Name: "slow"} }

func TestWithTimeout(t *testing.T) {
	m := WithTimeout(slowModel{}, 10*time.Millisecond)

	_, err := m.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "timed out")

	assert.Equal(t, slowModel{}, WithTimeout(slowModel{}, 0))
}
