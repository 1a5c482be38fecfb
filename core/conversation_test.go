package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEnvelope(t *testing.T, conv string, from, to AgentID, text string) Envelope {
	t.Helper()

	env, err := NewEnvelope(conv, from, to, Text{Text: text})
	require.NoError(t, err)

	return env
}

func TestConversation_AppendOrdered(t *testing.T) {
	conv := NewConversation("c1")

	require.NoError(t, conv.Append(mustEnvelope(t, "c1", User, Head, "a")))
	require.NoError(t, conv.Append(mustEnvelope(t, "c1", Head, Rag, "b")))

	envs := conv.Envelopes()
	require.Len(t, envs, 2)
	assert.Equal(t, "a", envs[0].Text())
	assert.Equal(t, "b", envs[1].Text())

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last.Text())
}

func TestConversation_RejectsForeignEnvelope(t *testing.T) {
	conv := NewConversation("c1")

	err := conv.Append(mustEnvelope(t, "other", User, Head, "a"))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, conv.Len())
}

func TestConversation_Closed(t *testing.T) {
	conv := NewConversation("c1")
	conv.Close()

	err := conv.Append(mustEnvelope(t, "c1", User, Head, "a"))
	assert.ErrorIs(t, err, ErrConversationClosed)
	assert.True(t, conv.Closed())
}

func TestConversation_DefensiveCopy(t *testing.T) {
	conv := NewConversation("c1")
	require.NoError(t, conv.Append(mustEnvelope(t, "c1", User, Head, "a")))

	snapshot := conv.Envelopes()
	snapshot[0] = mustEnvelope(t, "c1", User, Head, "mutated")

	assert.Equal(t, "a", conv.Envelopes()[0].Text())
}

func TestConversation_MessagesSkipToolDispatch(t *testing.T) {
	conv := NewConversation("c1")
	call, err := NewEnvelope("c1", Rag, Rag, ToolCall{ID: "1", Name: "rag_search"})
	require.NoError(t, err)

	require.NoError(t, conv.Append(mustEnvelope(t, "c1", User, Head, "q")))
	require.NoError(t, conv.Append(call))

	assert.Len(t, conv.Messages(), 1)
	assert.Equal(t, 2, conv.Len())
}

func TestConversation_ConcurrentAppend(t *testing.T) {
	conv := NewConversation("c1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conv.Append(mustEnvelope(t, "c1", User, Head, "x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, conv.Len())
}
