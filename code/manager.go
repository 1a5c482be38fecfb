package code

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/agentrelay/logging"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// BaseDir holds all session workspaces.
	BaseDir string
	// Factory starts the executor of a new session.
	Factory ExecutorFactory
	Logger  logging.Logger
}

// Manager hands out one Session per conversation id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     ManagerOptions
}

// NewManager creates a manager. By default sessions live under the system
// temp directory and run python3.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		BaseDir: filepath.Join(os.TempDir(), "agentrelay"),
		Factory: PythonFactory("python3"),
		Logger:  logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Factory == nil {
		opts.Factory = PythonFactory("python3")
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Manager{sessions: map[string]*Session{}, opts: opts}
}

// Session returns the session of conversationID, creating it on first use.
func (m *Manager) Session(ctx context.Context, conversationID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[conversationID]; ok {
		return s, nil
	}

	s, err := newSession(ctx, m.opts.BaseDir, conversationID, m.opts.Factory, m.opts.Logger)
	if err != nil {
		return nil, err
	}

	m.sessions[conversationID] = s
	m.opts.Logger.Info("code.session.created", "session", s.ID(), "conversation_id", conversationID, "dir", s.Dir())

	return s, nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Close closes and forgets the session of conversationID.
func (m *Manager) Close(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	s, ok := m.sessions[conversationID]
	delete(m.sessions, conversationID)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	return s.Close(ctx)
}

// CloseAll closes every session.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	var errs []error

	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
