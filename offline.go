package agentrelay

import (
	"regexp"
	"strings"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

var arithmetic = regexp.MustCompile(`[-+*/().\d\s]*\d[-+*/().\d\s]*`)

const offlineHelp = "Running offline. Ask me to calculate something like 2+2, " +
	"to search the documents or to remember a fact about you."

// offlineAgents returns MockAgent stand-ins that route by keyword and still
// exercise the real tools: code sessions, document search and memory.
func (r *Relay) offlineAgents() []core.Agent {
	registry := func(tools ...tool.Tool) *tool.Registry {
		return tool.NewRegistry(r.toolOptions()...).MustRegister(tools...)
	}

	head := agent.NewMockAgent(func(o *agent.MockAgentOptions) {
		o.ID = core.Head
		o.Description = agent.HeadDescription
		o.Logger = r.logger
		o.Default = offlineHelp
		o.Rules = []agent.MockRule{
			{From: core.Analyst, Reply: "{{.input}}", To: core.User},
			{From: core.Rag, Reply: "{{.input}}", To: core.User},
			{From: core.Memory, Reply: "{{.input}}", To: core.User},
			{Contains: "remember", Reply: "{{.input}}", To: core.Memory},
			{Contains: "what do you know", Reply: "{{.input}}", To: core.Memory},
			{Contains: "document", Reply: "{{.input}}", To: core.Rag},
			{Contains: "search", Reply: "{{.input}}", To: core.Rag},
			{Contains: "calculate", Reply: "{{.input}}", To: core.Analyst},
			{Contains: "+", Reply: "{{.input}}", To: core.Analyst},
			{Contains: "*", Reply: "{{.input}}", To: core.Analyst},
		}
	})

	analyst := agent.NewMockAgent(func(o *agent.MockAgentOptions) {
		o.ID = core.Analyst
		o.Description = agent.AnalystDescription
		o.Logger = r.logger
		o.Tools = registry(tool.NewCodeTools(r.sessions)...)
		o.Rules = []agent.MockRule{{
			Tool:     tool.RunCodeName,
			ArgsFunc: expressionCode,
			Reply:    "The result is {{.result}}.",
		}}
	})

	ragAgent := agent.NewMockAgent(func(o *agent.MockAgentOptions) {
		o.ID = core.Rag
		o.Description = agent.RagDescription
		o.Logger = r.logger
		o.Tools = registry(tool.NewRAGSearchTool(r.docs, r.opts.RAGTopK))
		o.Rules = []agent.MockRule{{
			Tool:     tool.RAGSearchName,
			ArgsFunc: func(in core.Envelope) map[string]any { return map[string]any{"query": in.Text()} },
			Reply:    "From the documents:\n{{.result}}",
		}}
	})

	memAgent := agent.NewMockAgent(func(o *agent.MockAgentOptions) {
		o.ID = core.Memory
		o.Description = agent.MemoryDescription
		o.Logger = r.logger
		o.Tools = registry(tool.NewCreateMemoryTool(r.memories), tool.NewSearchMemoryTool(r.memories, r.opts.MemoryTopK))
		o.Rules = []agent.MockRule{
			{
				Contains: "remember",
				Tool:     tool.CreateMemoryName,
				ArgsFunc: func(in core.Envelope) map[string]any {
					return map[string]any{"summary": strings.TrimSpace(in.Text())}
				},
				Reply: "Noted.",
			},
			{
				Tool:     tool.SearchMemoryName,
				ArgsFunc: func(in core.Envelope) map[string]any { return map[string]any{"query": in.Text()} },
				Reply:    "I remember: {{.result}}",
			},
		}
	})

	return []core.Agent{head, ragAgent, memAgent, analyst}
}

// expressionCode turns the arithmetic in a message into a print statement.
func expressionCode(in core.Envelope) map[string]any {
	expr := ""

	for _, m := range arithmetic.FindAllString(in.Text(), -1) {
		if m = strings.TrimSpace(m); len(m) > len(expr) {
			expr = m
		}
	}

	if expr == "" {
		expr = "None"
	}

	return map[string]any{"code": "print(" + expr + ")"}
}
