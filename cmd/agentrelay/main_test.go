package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay"
	"github.com/hupe1980/agentrelay/internal/testutil"
)

func TestChat(t *testing.T) {
	relay, err := agentrelay.New(func(o *agentrelay.Options) {
		o.Offline = true
		o.Tokenizer = testutil.NewWordTokenizer()
		o.CodeSessionDir = t.TempDir()
		o.Executors = testutil.NewFakeExecutorFactory(nil)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = relay.Close(context.Background()) })

	var out bytes.Buffer

	in := strings.NewReader("2+2?\n\nquit\nnever read\n")
	require.NoError(t, chat(context.Background(), relay, in, &out))

	assert.Contains(t, out.String(), "Head: The result is 4.")
	assert.NotContains(t, out.String(), "never read")
}

func TestChat_EOF(t *testing.T) {
	relay, err := agentrelay.New(func(o *agentrelay.Options) {
		o.Offline = true
		o.Tokenizer = testutil.NewWordTokenizer()
		o.CodeSessionDir = t.TempDir()
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = relay.Close(context.Background()) })

	var out bytes.Buffer
	require.NoError(t, chat(context.Background(), relay, strings.NewReader("hello\n"), &out))
	assert.Contains(t, out.String(), "Running offline")
}

func TestRun_MissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "openai")

	err := run(context.Background(), nil, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}
