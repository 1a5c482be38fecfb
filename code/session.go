package code

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/hupe1980/agentrelay/logging"
)

// WorkspacePrefix prefixes every session workspace directory name.
const WorkspacePrefix = "codesession_"

// Session is an isolated execution workspace bound to one conversation.
//
// Every execution runs in the session's own directory through its own
// executor. Files that appear or change during an execution are reported as
// artifacts of that execution.
type Session struct {
	id             string
	conversationID string
	dir            string
	factory        ExecutorFactory
	fs             afs.Service
	logger         logging.Logger

	mu       sync.Mutex
	executor Executor
	history  []Entry
	closed   bool
}

func newSession(ctx context.Context, baseDir, conversationID string, factory ExecutorFactory, logger logging.Logger) (*Session, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	s := &Session{
		id:             id,
		conversationID: conversationID,
		dir:            filepath.Join(baseDir, WorkspacePrefix+id),
		factory:        factory,
		fs:             afs.New(),
		logger:         logger,
	}

	if err := s.fs.Create(ctx, s.dir, file.DefaultDirOsMode, true); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", s.dir, err)
	}

	executor, err := factory(s.dir)
	if err != nil {
		_ = s.fs.Delete(ctx, s.dir)
		return nil, err
	}

	s.executor = executor

	return s, nil
}

// ID returns the 8 hex digit session id.
func (s *Session) ID() string { return s.id }

// ConversationID returns the owning conversation.
func (s *Session) ConversationID() string { return s.conversationID }

// Dir returns the workspace directory.
func (s *Session) Dir() string { return s.dir }

// Execute runs code in the session interpreter and records it in the history.
func (s *Session) Execute(ctx context.Context, code string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, ErrExecutorClosed
	}

	before, _ := s.snapshot(ctx)

	res, err := s.executor.Execute(ctx, code)
	if err != nil {
		s.logger.Warn("code.execute.failed", "session", s.id, "error", err.Error())
		return Result{}, err
	}

	after, _ := s.snapshot(ctx)
	res.Artifacts = changed(before, after)

	s.history = append(s.history, Entry{Code: code, Result: res, ExecutedAt: time.Now().UTC()})
	s.logger.Debug("code.execute.completed", "session", s.id, "duration_ms", res.Duration.Milliseconds(), "artifacts", len(res.Artifacts))

	return res, nil
}

// History returns a copy of all executions since the last reset.
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.history))
	copy(out, s.history)

	return out
}

// FileTree lists the workspace relative to its root. Directories carry a
// trailing slash.
func (s *Session) FileTree(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tree []string

	err := s.walk(ctx, s.dir, "", func(rel string, o storage.Object) {
		if o.IsDir() {
			rel += "/"
		}

		tree = append(tree, rel)
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(tree)

	return tree, nil
}

// Reset restarts the interpreter, clears the history and empties the workspace.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrExecutorClosed
	}

	if err := s.executor.Close(); err != nil {
		s.logger.Warn("code.reset.close_failed", "session", s.id, "error", err.Error())
	}

	if err := s.fs.Delete(ctx, s.dir); err != nil {
		return fmt.Errorf("clear workspace %s: %w", s.dir, err)
	}

	if err := s.fs.Create(ctx, s.dir, file.DefaultDirOsMode, true); err != nil {
		return fmt.Errorf("create workspace %s: %w", s.dir, err)
	}

	executor, err := s.factory(s.dir)
	if err != nil {
		return err
	}

	s.executor = executor
	s.history = nil

	s.logger.Info("code.session.reset", "session", s.id)

	return nil
}

// Close stops the interpreter and removes the workspace.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if err := s.executor.Close(); err != nil {
		return err
	}

	return s.fs.Delete(ctx, s.dir)
}

func (s *Session) snapshot(ctx context.Context) (map[string]time.Time, error) {
	files := map[string]time.Time{}

	err := s.walk(ctx, s.dir, "", func(rel string, o storage.Object) {
		if !o.IsDir() {
			files[rel] = o.ModTime()
		}
	})

	return files, err
}

func (s *Session) walk(ctx context.Context, dir, rel string, visit func(rel string, o storage.Object)) error {
	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return err
	}

	for _, o := range objects {
		if sameLocation(o.URL(), dir) {
			continue
		}

		childRel := path.Join(rel, o.Name())
		visit(childRel, o)

		if o.IsDir() {
			if err := s.walk(ctx, url.Join(dir, o.Name()), childRel, visit); err != nil {
				return err
			}
		}
	}

	return nil
}

func sameLocation(a, b string) bool {
	return strings.TrimRight(url.Path(a), "/") == strings.TrimRight(url.Path(b), "/")
}

func changed(before, after map[string]time.Time) []string {
	var out []string

	for name, mod := range after {
		if prev, ok := before[name]; !ok || !prev.Equal(mod) {
			out = append(out, name)
		}
	}

	sort.Strings(out)

	return out
}
