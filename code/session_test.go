package code_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/code"
	"github.com/hupe1980/agentrelay/internal/testutil"
)

func newManager(t *testing.T) *code.Manager {
	t.Helper()

	m := code.NewManager(func(o *code.ManagerOptions) {
		o.BaseDir = t.TempDir()
		o.Factory = testutil.NewFakeExecutorFactory(nil)
	})

	t.Cleanup(func() { _ = m.CloseAll(context.Background()) })

	return m
}

func TestSession_WorkspaceName(t *testing.T) {
	m := newManager(t)

	s, err := m.Session(context.Background(), "conv-1")
	require.NoError(t, err)

	base := filepath.Base(s.Dir())
	assert.True(t, strings.HasPrefix(base, code.WorkspacePrefix))
	assert.Len(t, strings.TrimPrefix(base, code.WorkspacePrefix), 8)
	assert.Equal(t, s.ID(), strings.TrimPrefix(base, code.WorkspacePrefix))
	assert.Equal(t, "conv-1", s.ConversationID())
}

func TestSession_ExecuteRecordsHistory(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	s, err := m.Session(ctx, "conv-1")
	require.NoError(t, err)

	res, err := s.Execute(ctx, "print(2+2)")
	require.NoError(t, err)
	assert.Equal(t, "4\n", res.Stdout)
	assert.False(t, res.Failed())

	_, err = s.Execute(ctx, "x = 3")
	require.NoError(t, err)

	res, err = s.Execute(ctx, "print(x)")
	require.NoError(t, err)
	assert.Equal(t, "3\n", res.Stdout)

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "print(2+2)", history[0].Code)
	assert.Equal(t, "3\n", history[2].Result.Stdout)
}

func TestSession_ArtifactsAndFileTree(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	s, err := m.Session(ctx, "conv-1")
	require.NoError(t, err)

	res, err := s.Execute(ctx, "open('plot.png','w').write('png')")
	require.NoError(t, err)
	assert.Equal(t, []string{"plot.png"}, res.Artifacts)

	res, err = s.Execute(ctx, "print(1+1)")
	require.NoError(t, err)
	assert.Empty(t, res.Artifacts)

	tree, err := s.FileTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"plot.png"}, tree)
}

func TestSession_Reset(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	s, err := m.Session(ctx, "conv-1")
	require.NoError(t, err)

	_, err = s.Execute(ctx, "x = 1\nopen('a.txt','w').write('a')")
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.History())

	tree, err := s.FileTree(ctx)
	require.NoError(t, err)
	assert.Empty(t, tree)

	res, err := s.Execute(ctx, "print(x)")
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "NameError")
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	a, err := m.Session(ctx, "conv-a")
	require.NoError(t, err)

	b, err := m.Session(ctx, "conv-b")
	require.NoError(t, err)

	again, err := m.Session(ctx, "conv-a")
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.Equal(t, 2, m.Len())

	_, err = a.Execute(ctx, "secret = 42\nopen('only_a.txt','w').write('a')")
	require.NoError(t, err)

	res, err := b.Execute(ctx, "print(secret)")
	require.NoError(t, err)
	assert.True(t, res.Failed())

	tree, err := b.FileTree(ctx)
	require.NoError(t, err)
	assert.NotContains(t, tree, "only_a.txt")
}

func TestManager_Close(t *testing.T) {
	ctx := context.Background()

	var executors []*testutil.FakeExecutor

	m := code.NewManager(func(o *code.ManagerOptions) {
		o.BaseDir = t.TempDir()
		o.Factory = testutil.NewFakeExecutorFactory(func(fe *testutil.FakeExecutor) { executors = append(executors, fe) })
	})

	s, err := m.Session(ctx, "conv-1")
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx, "conv-1"))
	assert.Equal(t, 0, m.Len())
	require.Len(t, executors, 1)
	assert.True(t, executors[0].Closed)

	_, err = s.Execute(ctx, "print(1+1)")
	assert.ErrorIs(t, err, code.ErrExecutorClosed)
}

func TestResult_Summary(t *testing.T) {
	r := code.Result{Stdout: "4\n", Error: "boom", Artifacts: []string{"a.png"}}
	assert.Equal(t, "4\nerror: boom\nartifacts: a.png", r.Summary())
}

func TestPythonExecutor(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p := code.NewPythonExecutor("python3", t.TempDir())
	defer p.Close()

	res, err := p.Execute(ctx, "x = 40\nprint(x + 2)")
	require.NoError(t, err)
	assert.Equal(t, "42\n", res.Stdout)

	res, err = p.Execute(ctx, "print(x)")
	require.NoError(t, err)
	assert.Equal(t, "40\n", res.Stdout)

	res, err = p.Execute(ctx, "1/0")
	require.NoError(t, err)
	assert.Contains(t, res.Error, "ZeroDivisionError")
}

func TestPythonExecutor_UserCodeCannotReadProtocol(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p := code.NewPythonExecutor("python3", t.TempDir())
	defer p.Close()

	res, err := p.Execute(ctx, "import sys\nprint(repr(sys.stdin.read()))")
	require.NoError(t, err)
	assert.Equal(t, "''\n", res.Stdout)

	res, err = p.Execute(ctx, "input()")
	require.NoError(t, err)
	assert.Contains(t, res.Error, "EOFError")

	res, err = p.Execute(ctx, "print(6 * 7)")
	require.NoError(t, err)
	assert.Equal(t, "42\n", res.Stdout)
}
