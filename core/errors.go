package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConversationClosed is returned when appending to a finished conversation.
	ErrConversationClosed = errors.New("conversation is closed")
	// ErrUnknownAgent is returned when an envelope is routed to an agent that is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrBudgetExhausted is returned when a turn or iteration budget is used up.
	ErrBudgetExhausted = errors.New("budget exhausted")
)

// Tool invocation error codes.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeTimeout    = "TIMEOUT"
)

// ValidationError reports a malformed envelope, recipient or parameter.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// UnknownToolError is returned when a tool name is not registered.
type UnknownToolError struct {
	Name string `json:"name"`
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %s not found", e.Name)
}

// ToolInvocationError reports a capability-level failure. Transient marks
// failures that a bounded retry policy may repeat.
type ToolInvocationError struct {
	Tool      string `json:"tool"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Transient bool   `json:"transient,omitempty"`
	Err       error  `json:"-"`
}

func (e *ToolInvocationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// NewToolInvocationError creates a ToolInvocationError wrapping err.
func NewToolInvocationError(tool, code string, err error) *ToolInvocationError {
	return &ToolInvocationError{Tool: tool, Code: code, Message: err.Error(), Err: err}
}

// transientError marks an error as retryable.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// Transient wraps err so that tool retry policies treat it as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return transientError{err: err}
}

// IsTransient reports whether err (or any error it wraps) was marked transient.
func IsTransient(err error) bool {
	var te transientError
	if errors.As(err, &te) {
		return true
	}

	var tie *ToolInvocationError
	if errors.As(err, &tie) {
		return tie.Transient
	}

	return false
}

// AgentFailure wraps an unrecovered agent-level failure.
type AgentFailure struct {
	Agent AgentID `json:"agent"`
	Err   error   `json:"-"`
}

func (e *AgentFailure) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.Agent, e.Err)
}

func (e *AgentFailure) Unwrap() error { return e.Err }
