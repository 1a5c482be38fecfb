package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/code"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/testutil"
	"github.com/hupe1980/agentrelay/tool"
)

func TestMockAgent_DefaultReply(t *testing.T) {
	m := NewMockAgent()
	assert.Equal(t, core.Mock, m.ID())

	conv := core.NewConversation("c1")
	out, err := deliver(t, m, conv, userMessage(conv, core.Mock, "ping"))
	require.NoError(t, err)
	assert.Equal(t, core.User, out.Recipient())
	assert.True(t, out.IsFinal())
	assert.Equal(t, "Mock received: ping", out.Text())
}

func TestMockAgent_SpecialistReportsToHead(t *testing.T) {
	m := NewMockAgent(func(o *MockAgentOptions) { o.ID = core.Rag })

	conv := core.NewConversation("c1")
	in := testutil.NewEnvelopeBuilder("c1").From(core.Head).To(core.Rag).Text("find x").Build()
	out, err := deliver(t, m, conv, in)
	require.NoError(t, err)
	assert.Equal(t, core.Head, out.Recipient())
	assert.False(t, out.IsFinal())
}

func TestMockAgent_RulesMatchInOrder(t *testing.T) {
	m := NewMockAgent(func(o *MockAgentOptions) {
		o.ID = core.Head
		o.Rules = []MockRule{
			{From: core.Analyst, Reply: "Answer: {{.input}}", To: core.User},
			{Contains: "PLOT", Reply: "{{.input}}", To: core.Analyst},
			{Contains: "", Reply: "hello"},
		}
	})

	conv := core.NewConversation("c1")

	out, err := deliver(t, m, conv, userMessage(conv, core.Head, "please plot this"))
	require.NoError(t, err)
	assert.Equal(t, core.Analyst, out.Recipient())
	assert.Equal(t, "please plot this", out.Text())

	in := testutil.NewEnvelopeBuilder("c1").From(core.Analyst).To(core.Head).Text("done").Build()
	out, err = deliver(t, m, conv, in)
	require.NoError(t, err)
	assert.Equal(t, core.User, out.Recipient())
	assert.Equal(t, "Answer: done", out.Text())

	out, err = deliver(t, m, conv, userMessage(conv, core.Head, "hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Text())
}

func TestMockAgent_ToolRule(t *testing.T) {
	sessions := code.NewManager(func(o *code.ManagerOptions) {
		o.BaseDir = t.TempDir()
		o.Factory = testutil.NewFakeExecutorFactory(nil)
	})
	t.Cleanup(func() { _ = sessions.CloseAll(context.Background()) })

	reg := tool.NewRegistry().MustRegister(tool.NewCodeTools(sessions)...)

	m := NewMockAgent(func(o *MockAgentOptions) {
		o.ID = core.Analyst
		o.Tools = reg
		o.Rules = []MockRule{{
			Tool: tool.RunCodeName,
			ArgsFunc: func(in core.Envelope) map[string]any {
				return map[string]any{"code": "print(" + in.Text() + ")"}
			},
			Reply: "Result: {{.result}}",
		}}
	})

	conv := core.NewConversation("c1")
	in := testutil.NewEnvelopeBuilder("c1").From(core.Head).To(core.Analyst).Text("2+2").Build()
	out, err := deliver(t, m, conv, in)
	require.NoError(t, err)
	assert.Equal(t, core.Head, out.Recipient())
	assert.Equal(t, "Result: 4", out.Text())

	envs := conv.Envelopes()
	require.Len(t, envs, 3)
	call := envs[1].Content().(core.ToolCall)
	result := envs[2].Content().(core.ToolResult)
	assert.Equal(t, call.ID, result.CallID)
	assert.True(t, result.OK)
}

func TestMockAgent_ToolFailureIsReported(t *testing.T) {
	m := NewMockAgent(func(o *MockAgentOptions) {
		o.ID = core.Analyst
		o.Tools = tool.NewRegistry()
		o.Rules = []MockRule{{Tool: "missing", Reply: "ok {{.result}}"}}
	})

	conv := core.NewConversation("c1")
	in := testutil.NewEnvelopeBuilder("c1").From(core.Head).To(core.Analyst).Text("run").Build()
	out, err := deliver(t, m, conv, in)
	require.NoError(t, err)
	assert.Equal(t, "Analyst could not run missing: tool missing not found", out.Text())
}
