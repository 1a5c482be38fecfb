package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/util"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
)

// RetryPolicy bounds retries of tool calls that fail with an error marked
// transient (see core.Transient). Other failures are never retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first. Values
	// below 1 are treated as 1.
	MaxAttempts int
	// Backoff is the pause between attempts; it doubles after each retry.
	Backoff time.Duration
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Timeout bounds every invocation. Zero disables the bound.
	Timeout time.Duration
	// Retry applies to transient failures only.
	Retry RetryPolicy
	// Logger receives invocation logs.
	Logger logging.Logger
}

// Registry maps unique tool names to tools. It validates arguments against
// each tool's schema, applies the invocation timeout and retry policy, and
// converts every failure into the core error taxonomy. Registration happens
// at start-up; invocation is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	opts  RegistryOptions
}

type entry struct {
	tool   Tool
	schema *util.Schema
}

// NewRegistry constructs an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Timeout: 30 * time.Second,
		Retry:   RetryPolicy{MaxAttempts: 1, Backoff: 250 * time.Millisecond},
		Logger:  logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Registry{tools: make(map[string]entry), opts: opts}
}

// Register adds tools. Names must be unique; the first duplicate aborts
// registration of the remaining tools.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return &core.ValidationError{Field: "name", Message: "tool name must not be empty"}
		}

		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("tool %s already registered", name)
		}

		schema, err := util.CompileSchema(name, t.Parameters())
		if err != nil {
			return err
		}

		r.tools[name] = entry{tool: t, schema: schema}
	}

	return nil
}

// MustRegister is like Register but panics on error. Intended for static wiring.
func (r *Registry) MustRegister(tools ...Tool) *Registry {
	if err := r.Register(tools...); err != nil {
		panic(err)
	}

	return r
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Definitions returns the model-facing declarations in name order.
func (r *Registry) Definitions() []model.ToolDefinition {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, Definition(r.tools[name].tool))
	}

	return defs
}

// Invoke runs the named tool. The returned ToolResult is always populated:
// on failure it carries the error text and err is one of
// *core.UnknownToolError or *core.ToolInvocationError.
func (r *Registry) Invoke(tc *core.ToolContext, name string, args map[string]any) (core.ToolResult, error) {
	call := core.ToolCall{ID: tc.CallID(), Name: name, Arguments: args}
	logger := tc.Logger()

	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		err := &core.UnknownToolError{Name: name}
		logger.Warn("tool.call.unknown", "tool", name, "call_id", tc.CallID())

		return core.NewToolFailure(call, err), err
	}

	if err := e.schema.Validate(args); err != nil {
		tErr := &core.ToolInvocationError{
			Tool:    name,
			Code:    core.CodeValidation,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Err:     err,
		}
		logger.Warn("tool.call.validation_failed", "tool", name, "error", err.Error())

		return core.NewToolFailure(call, tErr), tErr
	}

	start := time.Now()
	backoff := r.opts.Retry.Backoff

	var (
		result   any
		err      error
		attempts int
	)

	for attempts = 1; ; attempts++ {
		result, err = r.call(tc, e.tool, args)
		if err == nil || !core.IsTransient(err) || attempts >= r.opts.Retry.MaxAttempts {
			break
		}

		logger.Warn("tool.call.retry", "tool", name, "attempt", attempts, "error", err.Error())

		if !sleep(tc.Context(), backoff) {
			err = r.wrap(name, tc.Context().Err())
			break
		}

		backoff *= 2
	}

	logging.ToolCall(logger, name, time.Since(start), attempts, err)

	if err != nil {
		return core.NewToolFailure(call, err), err
	}

	return core.NewToolResult(call, result), nil
}

// call executes one attempt bounded by the registry timeout. Panics are
// recovered into a ToolInvocationError.
func (r *Registry) call(tc *core.ToolContext, t Tool, args map[string]any) (any, error) {
	ctx := tc.Context()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		var out outcome

		defer func() {
			if rec := recover(); rec != nil {
				tc.Logger().Error("tool.call.panic", "tool", t.Name(), "recover", rec, "stack", string(debug.Stack()))
				out = outcome{err: &core.ToolInvocationError{
					Tool:    t.Name(),
					Code:    core.CodeExecution,
					Message: fmt.Sprintf("panic: %v", rec),
				}}
			}
			done <- out
		}()

		out.result, out.err = t.Call(tc.WithContext(ctx), args)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, r.wrap(t.Name(), out.err)
		}

		return out.result, nil
	case <-ctx.Done():
		return nil, r.wrap(t.Name(), ctx.Err())
	}
}

// wrap normalizes err into a *core.ToolInvocationError.
func (r *Registry) wrap(name string, err error) error {
	var tErr *core.ToolInvocationError
	if errors.As(err, &tErr) {
		return tErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &core.ToolInvocationError{
			Tool:      name,
			Code:      core.CodeTimeout,
			Message:   fmt.Sprintf("timed out after %s", r.opts.Timeout),
			Transient: true,
			Err:       err,
		}
	}

	return &core.ToolInvocationError{
		Tool:      name,
		Code:      core.CodeExecution,
		Message:   err.Error(),
		Transient: core.IsTransient(err),
		Err:       err,
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
