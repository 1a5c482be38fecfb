package agent

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

// NewHeadAgent creates the coordinator. It may hand over to every agent and
// to the user.
func NewHeadAgent(llm model.Model, thoughts core.ThoughtStore, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	defaults := func(o *ModelAgentOptions) {
		o.Description = HeadDescription
		o.Instruction = NewInstructionFromText(HeadInstruction)
		o.Thoughts = thoughts
	}

	return newSpecialist(core.Head, llm, defaults, optFns, func(o *ModelAgentOptions) []tool.Tool {
		return withThink(o, tool.NewHandOverTool(core.Rag, core.Memory, core.Analyst))
	})
}

// NewRagAgent creates the document retrieval specialist.
func NewRagAgent(llm model.Model, searcher tool.DocumentSearcher, thoughts core.ThoughtStore, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	defaults := func(o *ModelAgentOptions) {
		o.Description = RagDescription
		o.Instruction = NewInstructionFromText(RagInstruction)
		o.Thoughts = thoughts
	}

	return newSpecialist(core.Rag, llm, defaults, optFns, func(o *ModelAgentOptions) []tool.Tool {
		return withThink(o, tool.NewHandOverTool(core.Head), tool.NewRAGSearchTool(searcher, o.SearchK))
	})
}

// NewMemoryAgent creates the long-term memory specialist. Tool calls are
// optional for it: a plain text answer ends its turn, which lets it observe
// user messages and decline to store anything.
func NewMemoryAgent(llm model.Model, store tool.MemoryStore, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	defaults := func(o *ModelAgentOptions) {
		o.Description = MemoryDescription
		o.Instruction = NewInstructionFromText(MemoryInstruction)
		o.ToolChoice = model.ToolChoiceAuto
		o.SearchK = 3
		o.MaxIterations = 4
	}

	return newSpecialist(core.Memory, llm, defaults, optFns, func(o *ModelAgentOptions) []tool.Tool {
		return []tool.Tool{
			tool.NewHandOverTool(core.Head),
			tool.NewCreateMemoryTool(store),
			tool.NewSearchMemoryTool(store, o.SearchK),
		}
	})
}

// NewAnalystAgent creates the code execution specialist.
func NewAnalystAgent(llm model.Model, sessions tool.SessionProvider, thoughts core.ThoughtStore, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	defaults := func(o *ModelAgentOptions) {
		o.Description = AnalystDescription
		o.Instruction = NewInstructionFromText(AnalystInstruction)
		o.Thoughts = thoughts
	}

	return newSpecialist(core.Analyst, llm, defaults, optFns, func(o *ModelAgentOptions) []tool.Tool {
		return withThink(o, append([]tool.Tool{tool.NewHandOverTool(core.Head)}, tool.NewCodeTools(sessions)...)...)
	})
}

// newSpecialist applies defaults, then caller options, then builds the tool
// registry unless the caller supplied one.
func newSpecialist(
	id core.AgentID,
	llm model.Model,
	defaults func(o *ModelAgentOptions),
	optFns []func(o *ModelAgentOptions),
	tools func(o *ModelAgentOptions) []tool.Tool,
) *ModelAgent {
	fns := make([]func(o *ModelAgentOptions), 0, len(optFns)+2)
	fns = append(fns, defaults)
	fns = append(fns, optFns...)
	fns = append(fns, func(o *ModelAgentOptions) {
		if o.Tools != nil {
			return
		}

		regOpts := make([]func(ro *tool.RegistryOptions), 0, len(o.ToolOptions)+1)
		regOpts = append(regOpts, func(ro *tool.RegistryOptions) { ro.Logger = o.Logger })
		regOpts = append(regOpts, o.ToolOptions...)

		o.Tools = tool.NewRegistry(regOpts...).MustRegister(tools(o)...)
	})

	return NewModelAgent(id, llm, fns...)
}

func withThink(o *ModelAgentOptions, tools ...tool.Tool) []tool.Tool {
	if o.Thoughts != nil {
		tools = append(tools, tool.NewThinkTool(o.Thoughts))
	}

	return tools
}
