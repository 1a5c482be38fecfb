// Package code provides isolated, per-conversation code execution sessions.
//
// A Session owns a private workspace directory and a long-lived interpreter,
// so variables defined by one execution stay visible to the next. Sessions of
// different conversations never share a workspace or an interpreter.
package code

import (
	"context"
	"strings"
	"time"
)

// Result is the outcome of one execution. Error holds the interpreter's
// exception report when the code itself failed; infrastructure failures are
// returned as Go errors instead.
type Result struct {
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr,omitempty"`
	Error     string        `json:"error,omitempty"`
	Artifacts []string      `json:"artifacts,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the executed code raised.
func (r Result) Failed() bool { return r.Error != "" }

// Summary renders the result as plain text for model consumption.
func (r Result) Summary() string {
	var sb strings.Builder

	if out := strings.TrimRight(r.Stdout, "\n"); out != "" {
		sb.WriteString(out)
	}

	if r.Stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString("stderr: ")
		sb.WriteString(strings.TrimRight(r.Stderr, "\n"))
	}

	if r.Error != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString("error: ")
		sb.WriteString(strings.TrimRight(r.Error, "\n"))
	}

	if len(r.Artifacts) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString("artifacts: ")
		sb.WriteString(strings.Join(r.Artifacts, ", "))
	}

	return sb.String()
}

// Executor runs code snippets against a persistent interpreter state.
type Executor interface {
	// Execute runs the given code snippet.
	Execute(ctx context.Context, code string) (Result, error)

	// Close releases the interpreter.
	Close() error
}

// ExecutorFactory starts an executor whose working directory is dir.
type ExecutorFactory func(dir string) (Executor, error)

// Entry is one item of a session's execution history.
type Entry struct {
	Code       string    `json:"code"`
	Result     Result    `json:"result"`
	ExecutedAt time.Time `json:"executed_at"`
}
