package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/util"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/tool"
)

// MockRule maps an incoming message to a canned reply.
//
// Contains is matched case-insensitively against the message text; an empty
// Contains matches everything. From restricts the rule to one sender. If
// Tool is set the rule issues one tool call through the registry before
// replying. Reply is a text/template rendered with .input (incoming text),
// .result (tool output) and .error (tool failure). To defaults to the reply
// target of the agent.
type MockRule struct {
	From     core.AgentID
	Contains string
	Reply    string
	To       core.AgentID
	Tool     string
	Args     map[string]any
	// ArgsFunc derives tool arguments from the incoming envelope. It takes
	// precedence over Args.
	ArgsFunc func(in core.Envelope) map[string]any
}

// MockAgentOptions configures a MockAgent.
type MockAgentOptions struct {
	ID          core.AgentID
	Description string
	Rules       []MockRule
	Default     string
	Tools       *tool.Registry
	Logger      logging.Logger
}

// MockAgent answers with deterministic canned replies. It exercises the
// routing state machine and tool dispatch without a language model.
type MockAgent struct {
	BaseAgent
	rules    []MockRule
	fallback string
	tools    *tool.Registry
}

var _ core.Agent = (*MockAgent)(nil)

// NewMockAgent creates a MockAgent. The id defaults to core.Mock.
func NewMockAgent(optFns ...func(o *MockAgentOptions)) *MockAgent {
	opts := MockAgentOptions{
		ID:      core.Mock,
		Default: "{{.id}} received: {{.input}}",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Deterministic stand-in for the %s agent.", opts.ID)
	}

	return &MockAgent{
		BaseAgent: NewBaseAgent(opts.ID, opts.Description, opts.Logger),
		rules:     opts.Rules,
		fallback:  opts.Default,
		tools:     opts.Tools,
	}
}

// Handle implements core.Agent.
func (a *MockAgent) Handle(turn *core.Turn, in core.Envelope) (core.Envelope, error) {
	state := map[string]any{"id": string(a.ID()), "input": in.Text(), "sender": string(in.Sender())}
	reply := a.fallback
	to := a.defaultRecipient(in)

	if rule, ok := a.match(in); ok {
		reply = rule.Reply

		if rule.To != "" {
			to = rule.To
		}

		if rule.Tool != "" {
			args := rule.Args
			if rule.ArgsFunc != nil {
				args = rule.ArgsFunc(in)
			}

			if args == nil {
				args = map[string]any{}
			}

			result, err := dispatch(turn, a.tools, "", rule.Tool, args, nil)
			if err != nil {
				return core.Envelope{}, err
			}

			if result.OK {
				state["result"] = resultText(result.Data)
			} else {
				state["error"] = result.Error
				if !strings.Contains(reply, ".error") {
					reply = "{{.id}} could not run " + rule.Tool + ": {{.error}}"
				}
			}
		}

		turn.Logger().Debug("agent.mock.rule", "agent", a.ID(), "contains", rule.Contains, "to", to)
	}

	text, err := util.RenderTemplate(reply, state)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("%s reply: %w", a.ID(), err)
	}

	return a.reply(turn, to, strings.TrimSpace(text))
}

func (a *MockAgent) match(in core.Envelope) (MockRule, bool) {
	lower := strings.ToLower(in.Text())

	for _, r := range a.rules {
		if r.From != "" && r.From != in.Sender() {
			continue
		}

		if r.Contains == "" || strings.Contains(lower, strings.ToLower(r.Contains)) {
			return r, true
		}
	}

	return MockRule{}, false
}

// defaultRecipient answers the user directly when addressed by the user or
// when acting as coordinator; specialists report back to Head.
func (a *MockAgent) defaultRecipient(in core.Envelope) core.AgentID {
	if in.Sender() == core.User || a.ID() == core.Head {
		return core.User
	}

	return core.Head
}

func resultText(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case interface{ Summary() string }:
		return v.Summary()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(b)
	}
}
