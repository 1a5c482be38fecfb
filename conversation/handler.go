package conversation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// Options configure a Handler.
type Options struct {
	// ConversationID names the conversation. Generated when empty.
	ConversationID string
	Logger         logging.Logger
	// Thoughts receives an audit entry for every agent failure.
	Thoughts core.ThoughtStore
	// MaxTurns bounds the dispatches of one user turn. Zero means unlimited.
	MaxTurns int
	// TurnTimeout bounds one user turn. Zero means no timeout.
	TurnTimeout time.Duration
	// Entry receives every user message.
	Entry core.AgentID
	// Observer is handed every user message in the background. Its tool
	// dispatch and reply stay out of the conversation.
	Observer core.Agent
	// OnTransition is called on every state change.
	OnTransition func(from, to State)
	// DrainTimeout is how long a timed out dispatch waits for the agent to
	// wind down before the turn is abandoned.
	DrainTimeout time.Duration
}

// Handler drives one conversation. Send calls are serialized; the handler
// is safe for concurrent use.
type Handler struct {
	agents map[core.AgentID]core.Agent
	conv   *core.Conversation
	opts   Options
	logger logging.Logger

	sendMu  sync.Mutex
	stateMu sync.RWMutex
	state   State
	turns   int

	observers sync.WaitGroup
}

// NewHandler creates a handler dispatching to agents. Agent ids must be
// unique and the entry agent must be present.
func NewHandler(agents []core.Agent, optFns ...func(o *Options)) (*Handler, error) {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		MaxTurns:    16,
		TurnTimeout:  2 * time.Minute,
		Entry:        core.Head,
		DrainTimeout: time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	byID := make(map[core.AgentID]core.Agent, len(agents))

	for _, a := range agents {
		if !a.ID().IsAgent() {
			return nil, &core.ValidationError{Field: "agent", Value: a.ID(), Message: "not a dispatchable agent id"}
		}

		if _, dup := byID[a.ID()]; dup {
			return nil, &core.ValidationError{Field: "agent", Value: a.ID(), Message: "duplicate agent id"}
		}

		byID[a.ID()] = a
	}

	if _, ok := byID[opts.Entry]; !ok {
		return nil, fmt.Errorf("entry agent %s: %w", opts.Entry, core.ErrUnknownAgent)
	}

	conv := core.NewConversation(opts.ConversationID)

	return &Handler{
		agents: byID,
		conv:   conv,
		opts:   opts,
		logger: logging.Scoped(opts.Logger, conv.ID(), ""),
		state:  AwaitingUserInput,
	}, nil
}

// ID returns the conversation id.
func (h *Handler) ID() string { return h.conv.ID() }

// Conversation returns the underlying conversation.
func (h *Handler) Conversation() *core.Conversation { return h.conv }

// State returns the current state.
func (h *Handler) State() State {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()

	return h.state
}

// Turns returns the number of dispatches of the last user turn.
func (h *Handler) Turns() int {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()

	return h.turns
}

// Send runs one user turn and returns the final envelope addressed to the
// user. On an unrecovered agent failure it returns the terminal error
// envelope together with a *core.AgentFailure; the conversation is Done
// afterwards.
func (h *Handler) Send(ctx context.Context, text string) (core.Envelope, error) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	if h.State() == Done {
		return core.Envelope{}, core.ErrConversationClosed
	}

	if strings.TrimSpace(text) == "" {
		return core.Envelope{}, &core.ValidationError{Field: "text", Message: "message must not be empty"}
	}

	in, err := core.NewEnvelope(h.conv.ID(), core.User, h.opts.Entry, core.Text{Text: text})
	if err != nil {
		return core.Envelope{}, err
	}

	if err := h.conv.Append(in); err != nil {
		return core.Envelope{}, err
	}

	h.logger.Info("handler.turn.start", "entry", h.opts.Entry, "envelope_id", in.ID())
	h.observe(ctx, in)

	if h.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.TurnTimeout)

		defer cancel()
	}

	budget := core.NewBudget("turn", h.opts.MaxTurns)
	current := in

	for {
		h.transition(Dispatching)

		if err := budget.Spend(); err != nil {
			return h.fail(current.Recipient(), err)
		}

		h.setTurns(budget.Count())

		agent, ok := h.agents[current.Recipient()]
		if !ok {
			return h.fail(current.Recipient(), fmt.Errorf("no agent registered for %s: %w", current.Recipient(), core.ErrUnknownAgent))
		}

		h.transition(AwaitingAgentResponse)

		out, err := h.dispatch(ctx, agent, current)
		if err != nil {
			return h.fail(agent.ID(), err)
		}

		if out.Recipient() == core.User && !out.IsFinal() {
			out, err = finalize(out)
			if err != nil {
				return h.fail(agent.ID(), err)
			}
		}

		if err := h.conv.Append(out); err != nil {
			return h.fail(agent.ID(), err)
		}

		logging.Route(h.logger, string(out.Sender()), string(out.Recipient()), budget.Count(), out.IsFinal())

		if out.IsFinal() {
			h.transition(Finalizing)
			h.logger.Info("handler.turn.completed", "turns", budget.Count())
			h.transition(AwaitingUserInput)

			return out, nil
		}

		current = out
	}
}

type outcome struct {
	env core.Envelope
	err error
}

// dispatch hands env to agent, bounded by ctx. Panics and invalid replies
// become errors.
func (h *Handler) dispatch(ctx context.Context, agent core.Agent, env core.Envelope) (core.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return core.Envelope{}, err
	}

	done := make(chan outcome, 1)
	turn := core.NewTurn(ctx, h.conv, agent.ID(), logging.Scoped(h.opts.Logger, h.conv.ID(), string(agent.ID())))

	go func() {
		var out outcome

		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("handler.agent.panic", "agent", agent.ID(), "recover", rec, "stack", string(debug.Stack()))
				out = outcome{err: fmt.Errorf("panic: %v", rec)}
			}
			done <- out
		}()

		out.env, out.err = agent.Handle(turn, env)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return core.Envelope{}, out.err
		}

		if out.env.IsZero() {
			return core.Envelope{}, errors.New("agent returned no envelope")
		}

		if out.env.Sender() != agent.ID() {
			return core.Envelope{}, &core.ValidationError{Field: "sender", Value: out.env.Sender(), Message: "reply must be sent by the handling agent"}
		}

		if out.env.ConversationID() != h.conv.ID() {
			return core.Envelope{}, &core.ValidationError{Field: "conversation_id", Value: out.env.ConversationID(), Message: "reply belongs to another conversation"}
		}

		if _, ok := out.env.Content().(core.Text); !ok {
			return core.Envelope{}, &core.ValidationError{Field: "content", Message: "reply must carry text"}
		}

		return out.env, nil
	case <-ctx.Done():
		h.abandon(turn, done)
		return core.Envelope{}, ctx.Err()
	}
}

// abandon gives a cancelled agent DrainTimeout to return, revokes its turn
// and answers every tool call it left open with a failed result.
func (h *Handler) abandon(turn *core.Turn, done <-chan outcome) {
	timer := time.NewTimer(h.opts.DrainTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		h.logger.Warn("handler.agent.abandoned", "agent", turn.Agent(), "drain_timeout", h.opts.DrainTimeout)
	}

	turn.Revoke()

	for _, call := range openCalls(h.conv.Envelopes()) {
		tc := call.Content().(core.ToolCall)
		result := core.NewToolFailure(tc, &core.ToolInvocationError{
			Tool:    tc.Name,
			Code:    core.CodeTimeout,
			Message: "turn ended before the tool returned",
		})

		env, err := core.NewEnvelope(h.conv.ID(), call.Sender(), call.Recipient(), result)
		if err == nil {
			err = h.conv.Append(env)
		}

		if err != nil {
			h.logger.Warn("handler.tool_result.append_failed", "call_id", tc.ID, "error", err.Error())
		}
	}
}

// openCalls returns the ToolCall envelopes without a ToolResult, in order.
func openCalls(envs []core.Envelope) []core.Envelope {
	answered := map[string]bool{}

	for _, env := range envs {
		if r, ok := env.Content().(core.ToolResult); ok {
			answered[r.CallID] = true
		}
	}

	var open []core.Envelope

	for _, env := range envs {
		if c, ok := env.Content().(core.ToolCall); ok && !answered[c.ID] {
			open = append(open, env)
		}
	}

	return open
}

// fail records the terminal error envelope and ends the conversation.
func (h *Handler) fail(agent core.AgentID, cause error) (core.Envelope, error) {
	failure := &core.AgentFailure{Agent: agent, Err: cause}
	h.logger.Error("handler.agent.failed", "agent", agent, "error", cause.Error())

	if h.opts.Thoughts != nil {
		if err := h.opts.Thoughts.Append(core.NewThought(h.conv.ID(), agent, "failed: "+cause.Error())); err != nil {
			h.logger.Warn("handler.thought.append_failed", "error", err.Error())
		}
	}

	sender := agent
	if !sender.Valid() || sender == core.User {
		sender = h.opts.Entry
	}

	env, err := core.NewEnvelope(h.conv.ID(), sender, core.User,
		core.Text{Text: fmt.Sprintf("The request could not be completed: %v", failure)}, core.WithFinal)
	if err == nil {
		if appendErr := h.conv.Append(env); appendErr != nil {
			h.logger.Warn("handler.error_envelope.append_failed", "error", appendErr.Error())
		}
	}

	h.close()

	return env, failure
}

// observe runs the observer on a snapshot of the conversation. It must not
// block the user turn and outlives the caller's cancellation up to the turn
// timeout.
func (h *Handler) observe(ctx context.Context, in core.Envelope) {
	obs := h.opts.Observer
	if obs == nil || obs.ID() == h.opts.Entry {
		return
	}

	scratch := core.NewConversation(h.conv.ID())
	for _, env := range h.conv.Messages() {
		if env.ID() == in.ID() {
			continue
		}

		_ = scratch.Append(env)
	}

	obsIn, err := core.NewEnvelope(h.conv.ID(), core.User, obs.ID(), in.Content())
	if err != nil {
		return
	}

	_ = scratch.Append(obsIn)

	octx := context.WithoutCancel(ctx)

	var cancel context.CancelFunc = func() {}
	if h.opts.TurnTimeout > 0 {
		octx, cancel = context.WithTimeout(octx, h.opts.TurnTimeout)
	}

	logger := logging.Scoped(h.opts.Logger, h.conv.ID(), string(obs.ID()))

	h.observers.Add(1)

	go func() {
		defer h.observers.Done()
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("handler.observer.panic", "agent", obs.ID(), "recover", rec)
			}
		}()

		out, err := obs.Handle(core.NewTurn(octx, scratch, obs.ID(), logger), obsIn)
		if err != nil {
			logger.Warn("handler.observer.failed", "agent", obs.ID(), "error", err.Error())
			return
		}

		logger.Debug("handler.observer.completed", "agent", obs.ID(), "reply", out.Text())
	}()
}

// Wait blocks until background observers have finished.
func (h *Handler) Wait() { h.observers.Wait() }

// Close ends the conversation. It is idempotent.
func (h *Handler) Close() {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.close()
}

func (h *Handler) close() {
	if h.State() == Done {
		return
	}

	h.conv.Close()
	h.transition(Done)
	h.logger.Info("handler.closed", "envelopes", h.conv.Len())
}

func (h *Handler) transition(to State) {
	h.stateMu.Lock()
	from := h.state
	h.state = to
	h.stateMu.Unlock()

	if from != to && h.opts.OnTransition != nil {
		h.opts.OnTransition(from, to)
	}
}

func (h *Handler) setTurns(n int) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	h.turns = n
}

// finalize marks a user-bound reply as final, keeping its identity.
func finalize(env core.Envelope) (core.Envelope, error) {
	return core.NewEnvelope(env.ConversationID(), env.Sender(), env.Recipient(), env.Content(), func(o *core.EnvelopeOptions) {
		o.Final = true
		o.ID = env.ID()
		o.CreatedAt = env.CreatedAt()
	})
}
