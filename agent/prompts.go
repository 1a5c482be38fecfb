package agent

import (
	"encoding/json"
	"strings"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/util"
)

// Default instructions of the model backed agents. A profile may replace
// them at start-up.
const (
	HeadInstruction = `You are the Head agent and coordinate a small team of specialists.
Decide for every incoming message who should act next. Answer simple
questions yourself by handing over to User. Delegate document questions
to Rag, long-term facts about the user to Memory and anything that needs
computation, data analysis or plots to Analyst. When a specialist reports
back, turn the report into a clear answer for the user.`

	RagInstruction = `You are the Rag agent. You answer questions from the indexed documents
only. Search with rag_search, read the returned passages and report a short
summary, the source of each passage and the key quotes. If nothing relevant
is found say so plainly and do not fall back to general knowledge.`

	MemoryInstruction = `You are the Memory agent and keep long-term records about the user.
Store facts, preferences, goals and decisions that will matter in later
conversations with create_memory. Skip small talk, passing moods and details
that only matter right now, and never store the same fact twice. When you
are asked what is known about the user, use search_memory and summarize.
If there is nothing worth remembering answer exactly "No memory created".`

	AnalystInstruction = `You are the Analyst agent and the only member of the team with a Python
workspace. The workspace keeps its state between runs, so variables, imports
and files persist. Use run_code for calculations, tabular data and charts.
Print every value you want to report. Save plots as files in the working
directory and never call show(). Report concise, reproducible results.`
)

const teamTemplate = `You work in a team of agents that help one user together.
The team consists of:
{{range .team}}- {{.ID}}: {{.Description}}
{{end}}`

const conversationRules = `Messages travel as envelopes with a sender and a recipient. Conversation
history is rendered as "FROM <sender> TO <recipient>:" for agent messages and
"TO <recipient>:" for messages of the user. Other agents never see your tool
calls or thoughts, so put everything the recipient needs into your message.
You talk to the user or another agent only through the hand_over tool.
Always respond with a tool call. Use think to plan before acting if it
helps, and finish your turn with hand_over.`

const contextTemplate = `{{if .thoughts}}Your recent thoughts:
{{.thoughts}}
{{end}}{{if .memories}}Relevant memories about the user:
{{.memories}}
{{end}}`

// Member describes one agent in the team introduction.
type Member struct {
	ID          core.AgentID `json:"id"`
	Description string       `json:"description"`
}

// Agent descriptions shown in the team introduction.
const (
	HeadDescription    = "Coordinator. Routes work between the specialists and answers the user."
	RagDescription     = "Searches the indexed documents and reports findings with their sources."
	MemoryDescription  = "Stores and recalls long-term facts about the user."
	AnalystDescription = "Runs Python in a persistent workspace for calculations, data analysis and plots."
)

// DefaultTeam returns the roster of the model backed agents.
func DefaultTeam() []Member {
	return []Member{
		{ID: core.Head, Description: HeadDescription},
		{ID: core.Rag, Description: RagDescription},
		{ID: core.Memory, Description: MemoryDescription},
		{ID: core.Analyst, Description: AnalystDescription},
	}
}

// TeamOf builds a roster from constructed agents.
func TeamOf(agents ...core.Agent) []Member {
	out := make([]Member, 0, len(agents))
	for _, a := range agents {
		out = append(out, Member{ID: a.ID(), Description: a.Description()})
	}

	return out
}

// buildInstructions joins the agent instruction with the shared sections.
func buildInstructions(instruction string, team []Member, thoughts []core.Thought, memories []string) (string, error) {
	intro, err := util.RenderTemplate(teamTemplate, map[string]any{"team": team})
	if err != nil {
		return "", err
	}

	ctxText, err := util.RenderTemplate(contextTemplate, map[string]any{
		"thoughts": renderThoughts(thoughts),
		"memories": renderMemories(memories),
	})
	if err != nil {
		return "", err
	}

	sections := []string{strings.TrimSpace(instruction), strings.TrimSpace(intro), conversationRules}
	if s := strings.TrimSpace(ctxText); s != "" {
		sections = append(sections, s)
	}

	return strings.Join(sections, "\n\n#######\n\n"), nil
}

func renderThoughts(thoughts []core.Thought) string {
	if len(thoughts) == 0 {
		return ""
	}

	type entry struct {
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		Content   string `json:"content"`
	}

	entries := make([]entry, 0, len(thoughts))
	for _, t := range thoughts {
		entries = append(entries, entry{ID: t.ID, Timestamp: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), Content: t.Text})
	}

	b, err := json.Marshal(map[string]any{"previous_thoughts": entries})
	if err != nil {
		return ""
	}

	return string(b)
}

func renderMemories(memories []string) string {
	if len(memories) == 0 {
		return ""
	}

	b, err := json.Marshal(map[string]any{"relevant_memories": memories})
	if err != nil {
		return ""
	}

	return string(b)
}
