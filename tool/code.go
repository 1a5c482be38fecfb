package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrelay/code"
	"github.com/hupe1980/agentrelay/core"
)

// Code session tool names.
const (
	RunCodeName          = "run_code"
	CodeHistoryName      = "get_code_history"
	FileTreeName         = "get_file_tree"
	ResetCodeSessionName = "reset_code_session"
)

// SessionProvider resolves the code session of a conversation.
type SessionProvider interface {
	Session(ctx context.Context, conversationID string) (*code.Session, error)
}

type runCodeArgs struct {
	Code string `json:"code" description:"Python source to run. State persists between calls; print what you need to see."`
}

type noArgs struct{}

// NewCodeTools returns run_code, get_code_history, get_file_tree and
// reset_code_session bound to the caller's conversation session.
func NewCodeTools(sessions SessionProvider) []Tool {
	session := func(tc *core.ToolContext) (*code.Session, error) {
		return sessions.Session(tc.Context(), tc.ConversationID())
	}

	runCode := NewTypedTool(RunCodeName, "Run python code in the conversation's persistent workspace and return its output.",
		func(tc *core.ToolContext, args runCodeArgs) (any, error) {
			s, err := session(tc)
			if err != nil {
				return nil, err
			}

			res, err := s.Execute(tc.Context(), args.Code)
			if err != nil {
				return nil, err
			}

			if res.Failed() {
				return nil, &core.ToolInvocationError{
					Tool:    RunCodeName,
					Code:    core.CodeExecution,
					Message: res.Summary(),
				}
			}

			return res, nil
		})

	history := NewTypedTool(CodeHistoryName, "List the code executed in this session and its output.",
		func(tc *core.ToolContext, _ noArgs) (any, error) {
			s, err := session(tc)
			if err != nil {
				return nil, err
			}

			return s.History(), nil
		})

	fileTree := NewTypedTool(FileTreeName, "List the files in the session workspace.",
		func(tc *core.ToolContext, _ noArgs) (any, error) {
			s, err := session(tc)
			if err != nil {
				return nil, err
			}

			return s.FileTree(tc.Context())
		})

	reset := NewTypedTool(ResetCodeSessionName, "Restart the interpreter and clear the workspace.",
		func(tc *core.ToolContext, _ noArgs) (any, error) {
			s, err := session(tc)
			if err != nil {
				return nil, err
			}

			if err := s.Reset(tc.Context()); err != nil {
				return nil, fmt.Errorf("reset session %s: %w", s.ID(), err)
			}

			return "session reset", nil
		})

	return []Tool{runCode, history, fileTree, reset}
}
