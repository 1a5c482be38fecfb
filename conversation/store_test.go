package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
)

type stubAgent struct{ id core.AgentID }

func (s stubAgent) ID() core.AgentID    { return s.id }
func (s stubAgent) Description() string { return "stub" }
func (s stubAgent) Handle(turn *core.Turn, _ core.Envelope) (core.Envelope, error) {
	return turn.Envelope(core.User, core.Text{Text: "ok"})
}

func newStubHandler(t *testing.T, id string) *Handler {
	t.Helper()

	h, err := NewHandler([]core.Agent{stubAgent{id: core.Head}}, func(o *Options) { o.ConversationID = id })
	require.NoError(t, err)

	return h
}

func TestStore(t *testing.T) {
	s := NewStore()

	b := newStubHandler(t, "b")
	s.Put(b)
	s.Put(newStubHandler(t, "a"))

	assert.Equal(t, []string{"a", "b"}, s.List())

	got, ok := s.Get("b")
	require.True(t, ok)
	assert.Same(t, b, got)

	assert.True(t, s.Delete("b"))
	assert.False(t, s.Delete("b"))
	assert.Equal(t, Done, b.State())

	_, ok = s.Get("b")
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AwaitingAgentResponse", AwaitingAgentResponse.String())
	assert.Equal(t, "Unknown", State(42).String())
}
