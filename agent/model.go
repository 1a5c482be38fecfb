package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

// MemoryRecaller returns memories relevant to a query.
type MemoryRecaller interface {
	Recall(ctx context.Context, query string, k int) ([]string, error)
}

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description   string
	Instruction   Instruction
	Team          []Member
	Tools         *tool.Registry
	ToolChoice    model.ToolChoice
	Thoughts      core.ThoughtStore
	ThoughtK      int
	Memory        MemoryRecaller
	MemoryK       int
	MaxIterations int
	Logger        logging.Logger

	// ToolOptions configure registries built by the specialist
	// constructors. Ignored when Tools is set.
	ToolOptions []func(o *tool.RegistryOptions)
	// SearchK is the default result count of search tools.
	SearchK int
}

// ModelAgent drives a language model through a tool calling loop.
//
// Each generation sees the instruction, the team introduction, the
// conversation rules, the agent's latest thoughts and memories relevant to
// the incoming message. Every tool call is dispatched through the registry
// and recorded on the turn. The loop ends when the model calls hand_over or
// answers in plain text, which is sent back to the sender.
type ModelAgent struct {
	BaseAgent
	llm           model.Model
	instruction   Instruction
	team          []Member
	tools         *tool.Registry
	toolChoice    model.ToolChoice
	thoughts      core.ThoughtStore
	thoughtK      int
	memory        MemoryRecaller
	memoryK       int
	maxIterations int
}

var _ core.Agent = (*ModelAgent)(nil)

// NewModelAgent creates a model backed agent. Without a registry the agent
// gets one holding only hand_over.
func NewModelAgent(id core.AgentID, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:   NewInstructionFromText(fmt.Sprintf("You are the %s agent, a helpful assistant.", id)),
		Team:          DefaultTeam(),
		ToolChoice:    model.ToolChoiceRequired,
		ThoughtK:      3,
		MemoryK:       3,
		MaxIterations: 8,
		SearchK:       5,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = opts.Logger }).
			MustRegister(tool.NewHandOverTool())
	}

	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 1
	}

	return &ModelAgent{
		BaseAgent:     NewBaseAgent(id, opts.Description, opts.Logger),
		llm:           llm,
		instruction:   opts.Instruction,
		team:          opts.Team,
		tools:         opts.Tools,
		toolChoice:    opts.ToolChoice,
		thoughts:      opts.Thoughts,
		thoughtK:      opts.ThoughtK,
		memory:        opts.Memory,
		memoryK:       opts.MemoryK,
		maxIterations: opts.MaxIterations,
	}
}

// Tools returns the registry the agent dispatches through.
func (a *ModelAgent) Tools() *tool.Registry { return a.tools }

// SetTeam replaces the roster shown in the team introduction.
func (a *ModelAgent) SetTeam(team []Member) { a.team = team }

// Handle implements core.Agent.
func (a *ModelAgent) Handle(turn *core.Turn, in core.Envelope) (core.Envelope, error) {
	logger := turn.Logger()
	ctx := turn.Context()

	logger.Debug("agent.handle.start", "agent", a.ID(), "from", in.Sender(), "envelope_id", in.ID())

	instructions, err := a.resolveInstructions(turn, in)
	if err != nil {
		return core.Envelope{}, err
	}

	messages := RenderHistory(turn.History())
	if len(messages) == 0 {
		messages = append(messages, renderEnvelope(in))
	}

	defs := a.tools.Definitions()

	var lastFailure error

	budget := core.NewBudget("iterations", a.maxIterations)

	for budget.Spend() == nil {
		iter := budget.Count()
		start := time.Now()
		resp, err := a.llm.Generate(ctx, model.Request{
			Instructions: instructions,
			Messages:     messages,
			Tools:        defs,
			ToolChoice:   a.toolChoice,
		})

		logging.LLMCall(logger, a.llm.Info().Name, tokenCount(resp), time.Since(start), err)

		if err != nil {
			return core.Envelope{}, fmt.Errorf("%s model call: %w", a.ID(), err)
		}

		if len(resp.ToolCalls) == 0 {
			text := strings.TrimSpace(resp.Text)
			if text == "" {
				lastFailure = errors.New("model returned neither text nor a tool call")
				messages = append(messages, model.UserMessage("Respond with a tool call."))

				continue
			}

			logger.Debug("agent.handle.text", "agent", a.ID(), "iteration", iter)

			return a.reply(turn, in.Sender(), text)
		}

		messages = append(messages, model.ToolCallMessage(resp.ToolCalls...))

		var handover *tool.HandOver

		for _, call := range resp.ToolCalls {
			args, decodeErr := call.DecodeArguments()

			result, err := dispatch(turn, a.tools, call.ID, call.Name, args, decodeErr)
			if err != nil {
				return core.Envelope{}, err
			}

			messages = append(messages, model.ToolResultMessage(call.ID, result.JSON()))

			if !result.OK {
				lastFailure = fmt.Errorf("%s: %s", call.Name, result.Error)
				continue
			}

			if ho, ok := result.Data.(tool.HandOver); ok && handover == nil {
				handover = &ho
			}
		}

		if handover != nil {
			logger.Info("agent.handover", "agent", a.ID(), "to", handover.Recipient, "iteration", iter)

			return a.reply(turn, handover.Recipient, handover.Message)
		}
	}

	logger.Warn("agent.iterations.exhausted", "agent", a.ID(), "max_iterations", a.maxIterations)

	msg := fmt.Sprintf("%s could not complete the request within %d steps.", a.ID(), a.maxIterations)
	if lastFailure != nil {
		msg = fmt.Sprintf("%s Last error: %v", msg, lastFailure)
	}

	return a.reply(turn, in.Sender(), msg)
}

func (a *ModelAgent) resolveInstructions(turn *core.Turn, in core.Envelope) (string, error) {
	text, err := a.instruction.Resolve(turn)
	if err != nil {
		return "", fmt.Errorf("%s instruction: %w", a.ID(), err)
	}

	var thoughts []core.Thought
	if a.thoughts != nil && a.thoughtK > 0 {
		thoughts = a.thoughts.Tail(turn.ConversationID(), a.ID(), a.thoughtK)
	}

	var memories []string

	if a.memory != nil && a.memoryK > 0 {
		memories, err = a.memory.Recall(turn.Context(), in.Text(), a.memoryK)
		if err != nil {
			turn.Logger().Warn("agent.memory.recall_failed", "agent", a.ID(), "error", err.Error())
		}
	}

	return buildInstructions(text, a.team, thoughts, memories)
}

// RenderHistory converts routed text envelopes into model messages. User
// messages become user turns; messages between agents become assistant
// turns. Tool dispatch records are skipped since agents never see each
// other's tool calls.
func RenderHistory(envs []core.Envelope) []model.Message {
	out := make([]model.Message, 0, len(envs))

	for _, env := range envs {
		if _, ok := env.Content().(core.Text); !ok {
			continue
		}

		out = append(out, renderEnvelope(env))
	}

	return out
}

func renderEnvelope(env core.Envelope) model.Message {
	if env.Sender() == core.User {
		return model.UserMessage(fmt.Sprintf("TO %s:\n%s", env.Recipient(), env.Text()))
	}

	return model.AssistantMessage(fmt.Sprintf("FROM %s TO %s:\n%s", env.Sender(), env.Recipient(), env.Text()))
}

func tokenCount(resp model.Response) int {
	if resp.Usage == nil {
		return 0
	}

	return resp.Usage.TotalTokens
}
