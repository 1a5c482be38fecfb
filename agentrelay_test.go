package agentrelay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/config"
	"github.com/hupe1980/agentrelay/conversation"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/testutil"
	"github.com/hupe1980/agentrelay/model"
)

func newOfflineRelay(t *testing.T) *Relay {
	t.Helper()

	r, err := New(func(o *Options) {
		o.Offline = true
		o.Tokenizer = testutil.NewWordTokenizer()
		o.ChunkSize = 20
		o.ChunkOverlap = 5
		o.CodeSessionDir = t.TempDir()
		o.Executors = testutil.NewFakeExecutorFactory(nil)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })

	return r
}

func TestNew_RequiresModelOnline(t *testing.T) {
	_, err := New(func(o *Options) { o.Tokenizer = testutil.NewWordTokenizer() })
	assert.Error(t, err)
}

func TestNew_ProfileOverridesReachPrompt(t *testing.T) {
	llm := model.NewMockModel("mock")

	r, err := New(func(o *Options) {
		o.Model = llm
		o.Tokenizer = testutil.NewWordTokenizer()
		o.CodeSessionDir = t.TempDir()
		o.Executors = testutil.NewFakeExecutorFactory(nil)
		o.Instructions = map[core.AgentID]string{core.Head: "You are {{.agent}} in {{.conversation_id}}."}
		o.Descriptions = map[core.AgentID]string{core.Memory: "Keeps the customer history."}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })

	h, err := r.NewConversation("conv-x")
	require.NoError(t, err)

	out, err := h.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, core.Head, out.Sender())
	h.Wait()

	var headPrompt string

	for _, req := range llm.Requests() {
		if strings.HasPrefix(req.Instructions, "You are Head in conv-x.") {
			headPrompt = req.Instructions
		}
	}

	require.NotEmpty(t, headPrompt)
	assert.Contains(t, headPrompt, "Keeps the customer history.")
	assert.NotContains(t, headPrompt, agent.MemoryDescription)
}

func TestOffline_TwoPlusTwo(t *testing.T) {
	r := newOfflineRelay(t)

	h, err := r.NewConversation("")
	require.NoError(t, err)

	out, err := h.Send(context.Background(), "2+2?")
	require.NoError(t, err)
	assert.True(t, out.IsFinal())
	assert.Equal(t, "The result is 4.", out.Text())
	assert.Equal(t, 3, h.Turns())
	assert.Equal(t, 1, r.Sessions().Len())
}

func TestOffline_HelpFallback(t *testing.T) {
	r := newOfflineRelay(t)

	h, err := r.NewConversation("c1")
	require.NoError(t, err)

	out, err := h.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, offlineHelp, out.Text())
	assert.Equal(t, 1, h.Turns())

	_, err = r.NewConversation("c1")
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestOffline_MemoryRoundTrip(t *testing.T) {
	r := newOfflineRelay(t)

	h, err := r.NewConversation("")
	require.NoError(t, err)

	out, err := h.Send(context.Background(), "please remember that my favourite colour is green")
	require.NoError(t, err)
	assert.Equal(t, "Noted.", out.Text())
	assert.Equal(t, 1, r.Memories().Count())

	out, err = h.Send(context.Background(), "what do you know about my favourite colour")
	require.NoError(t, err)
	assert.Contains(t, out.Text(), "green")
}

func TestOffline_DocumentSearch(t *testing.T) {
	r := newOfflineRelay(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("The quarterly report shows revenue growth in the northern region."), 0o600))

	n, err := r.Ingest(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Positive(t, r.Documents().Count())

	h, err := r.NewConversation("")
	require.NoError(t, err)

	out, err := h.Send(context.Background(), "search the documents for revenue growth")
	require.NoError(t, err)
	assert.Contains(t, out.Text(), "northern region")
}

func TestEndConversation(t *testing.T) {
	r := newOfflineRelay(t)

	h, err := r.NewConversation("c1")
	require.NoError(t, err)

	_, err = h.Send(context.Background(), "calculate 3+4")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, r.Conversations())

	require.NoError(t, r.EndConversation(context.Background(), "c1"))
	assert.Equal(t, conversation.Done, h.State())
	assert.Empty(t, r.Conversations())
	assert.Equal(t, 0, r.Sessions().Len())

	assert.Error(t, r.EndConversation(context.Background(), "c1"))
}

func TestNewFromConfig_Offline(t *testing.T) {
	cfg := &config.Config{
		Offline:        true,
		ChunkSize:      50,
		ChunkOverlap:   5,
		RAGTopK:        2,
		MemoryTopK:     2,
		MaxTurns:       8,
		PythonBin:      "python3",
		CodeSessionDir: t.TempDir(),
		MemoryCSVPath:  filepath.Join(t.TempDir(), "memories.csv"),
	}

	r, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })

	assert.Len(t, r.Agents(), 4)

	h, err := r.NewConversation("")
	require.NoError(t, err)

	out, err := h.Send(context.Background(), "remember I like tea")
	require.NoError(t, err)
	assert.Equal(t, "Noted.", out.Text())

	_, err = os.Stat(cfg.MemoryCSVPath)
	assert.NoError(t, err)
}
