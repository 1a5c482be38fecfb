// Package agentrelay wires the relay runtime: document retrieval, long-term
// memory, per-conversation code sessions, the agent team and the
// conversation handlers that route envelopes between them.
//
// Minimal offline use:
//
//	relay, err := agentrelay.New(func(o *agentrelay.Options) { o.Offline = true })
//	if err != nil {
//		return err
//	}
//	defer relay.Close(ctx)
//
//	h, _ := relay.NewConversation("")
//	reply, err := h.Send(ctx, "2+2?")
package agentrelay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/code"
	"github.com/hupe1980/agentrelay/conversation"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/memory"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/rag"
	"github.com/hupe1980/agentrelay/retrieval"
	"github.com/hupe1980/agentrelay/thought"
	"github.com/hupe1980/agentrelay/tool"
)

// Options configure a Relay. Zero values fall back to defaults.
type Options struct {
	// Model drives the agents. Required unless Offline is set.
	Model model.Model
	// Embedder vectorizes documents and memories. Defaults to a hash
	// embedder.
	Embedder retrieval.Embedder
	// Tokenizer splits documents. Defaults to tiktoken cl100k_base.
	Tokenizer retrieval.Tokenizer

	ChunkSize    int
	ChunkOverlap int
	RAGTopK      int
	MemoryTopK   int

	RecencyWeight    float64
	ImportanceWeight float64
	// MemoryStorage persists memories. Nil keeps them in process.
	MemoryStorage memory.Storage

	// CodeSessionDir is the parent of all code workspaces.
	CodeSessionDir string
	// Executors starts interpreters. Defaults to python3.
	Executors code.ExecutorFactory

	ToolTimeout  time.Duration
	ToolRetries  int
	ModelTimeout time.Duration
	TurnTimeout  time.Duration
	MaxTurns     int

	// Instructions override the default agent instructions. They are
	// rendered per turn as templates.
	Instructions map[core.AgentID]string
	// Descriptions override the roster entries shown to the team.
	Descriptions map[core.AgentID]string
	// Offline replaces the model backed agents with deterministic
	// stand-ins.
	Offline bool

	Logger logging.Logger
}

// Relay owns the shared services and hands out conversation handlers.
type Relay struct {
	opts     Options
	logger   logging.Logger
	thoughts *thought.InMemoryStore
	docs     *rag.Service
	memories *memory.Service
	sessions *code.Manager
	agents   []core.Agent
	observer core.Agent
	handlers *conversation.Store
}

// New builds the services and the agent team.
func New(optFns ...func(o *Options)) (*Relay, error) {
	opts := Options{
		ChunkSize:        400,
		ChunkOverlap:     50,
		RAGTopK:          5,
		MemoryTopK:       3,
		RecencyWeight:    0.01,
		ImportanceWeight: 0.5,
		ToolTimeout:      30 * time.Second,
		ModelTimeout:     60 * time.Second,
		TurnTimeout:      2 * time.Minute,
		MaxTurns:         16,
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Model == nil && !opts.Offline {
		return nil, errors.New("a model is required unless running offline")
	}

	if opts.Embedder == nil {
		opts.Embedder = retrieval.NewHashEmbedder(0)
	}

	if opts.Tokenizer == nil {
		tok, err := retrieval.NewTiktokenTokenizer("cl100k_base")
		if err != nil {
			return nil, err
		}

		opts.Tokenizer = tok
	}

	if opts.CodeSessionDir == "" {
		opts.CodeSessionDir = filepath.Join(os.TempDir(), "agentrelay")
	}

	chunker, err := retrieval.NewChunker(opts.Tokenizer, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	memories, err := memory.NewService(opts.Embedder, func(o *memory.Options) {
		o.RecencyWeight = opts.RecencyWeight
		o.ImportanceWeight = opts.ImportanceWeight
		o.Storage = opts.MemoryStorage
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("memory service: %w", err)
	}

	r := &Relay{
		opts:     opts,
		logger:   opts.Logger,
		thoughts: thought.NewInMemoryStore(),
		docs: rag.NewService(opts.Embedder, chunker, func(o *rag.Options) {
			o.Logger = opts.Logger
		}),
		memories: memories,
		sessions: code.NewManager(func(o *code.ManagerOptions) {
			o.BaseDir = opts.CodeSessionDir
			o.Factory = opts.Executors
			o.Logger = opts.Logger
		}),
		handlers: conversation.NewStore(),
	}

	if opts.Offline {
		r.agents = r.offlineAgents()
	} else {
		r.agents, r.observer = r.modelAgents()
	}

	r.logger.Info("relay.ready", "offline", opts.Offline, "agents", len(r.agents))

	return r, nil
}

func (r *Relay) toolOptions() []func(o *tool.RegistryOptions) {
	return []func(o *tool.RegistryOptions){func(o *tool.RegistryOptions) {
		o.Timeout = r.opts.ToolTimeout
		o.Retry.MaxAttempts = r.opts.ToolRetries + 1
		o.Logger = r.logger
	}}
}

func (r *Relay) modelAgents() ([]core.Agent, core.Agent) {
	llm := model.WithTimeout(r.opts.Model, r.opts.ModelTimeout)

	configure := func(id core.AgentID, searchK int) func(o *agent.ModelAgentOptions) {
		return func(o *agent.ModelAgentOptions) {
			o.Logger = r.logger
			o.ToolOptions = r.toolOptions()
			o.Memory = r.memories
			o.MemoryK = r.opts.MemoryTopK

			if searchK > 0 {
				o.SearchK = searchK
			}

			if text, ok := r.opts.Instructions[id]; ok && strings.TrimSpace(text) != "" {
				o.Instruction = agent.NewInstructionFromTemplate(text)
			}

			if text, ok := r.opts.Descriptions[id]; ok && strings.TrimSpace(text) != "" {
				o.Description = text
			}
		}
	}

	head := agent.NewHeadAgent(llm, r.thoughts, configure(core.Head, 0))
	ragAgent := agent.NewRagAgent(llm, r.docs, r.thoughts, configure(core.Rag, r.opts.RAGTopK))
	memAgent := agent.NewMemoryAgent(llm, r.memories, configure(core.Memory, r.opts.MemoryTopK))
	analyst := agent.NewAnalystAgent(llm, r.sessions, r.thoughts, configure(core.Analyst, 0))

	team := agent.TeamOf(head, ragAgent, memAgent, analyst)
	for _, a := range []*agent.ModelAgent{head, ragAgent, memAgent, analyst} {
		a.SetTeam(team)
	}

	return []core.Agent{head, ragAgent, memAgent, analyst}, memAgent
}

// Agents returns the agent team.
func (r *Relay) Agents() []core.Agent {
	out := make([]core.Agent, len(r.agents))
	copy(out, r.agents)

	return out
}

// Documents returns the document retrieval service.
func (r *Relay) Documents() *rag.Service { return r.docs }

// Memories returns the long-term memory service.
func (r *Relay) Memories() *memory.Service { return r.memories }

// Thoughts returns the process-wide thought store.
func (r *Relay) Thoughts() *thought.InMemoryStore { return r.thoughts }

// Sessions returns the code session manager.
func (r *Relay) Sessions() *code.Manager { return r.sessions }

// Ingest indexes a document or every supported document below a
// directory and returns the number of documents added.
func (r *Relay) Ingest(ctx context.Context, location string) (int, error) {
	info, err := os.Stat(location)
	if err == nil && info.IsDir() {
		return r.docs.IngestDir(ctx, location)
	}

	if _, err := r.docs.IngestFile(ctx, location); err != nil {
		return 0, err
	}

	return 1, nil
}

// NewConversation starts a conversation. An empty id is generated.
func (r *Relay) NewConversation(id string) (*conversation.Handler, error) {
	if id != "" {
		if _, exists := r.handlers.Get(id); exists {
			return nil, &core.ValidationError{Field: "conversation_id", Value: id, Message: "conversation already exists"}
		}
	}

	h, err := conversation.NewHandler(r.agents, func(o *conversation.Options) {
		o.ConversationID = id
		o.Logger = r.logger
		o.Thoughts = r.thoughts
		o.MaxTurns = r.opts.MaxTurns
		o.TurnTimeout = r.opts.TurnTimeout
		o.Observer = r.observer
	})
	if err != nil {
		return nil, err
	}

	r.handlers.Put(h)

	return h, nil
}

// Conversation returns a live conversation.
func (r *Relay) Conversation(id string) (*conversation.Handler, bool) {
	return r.handlers.Get(id)
}

// Conversations lists the live conversation ids.
func (r *Relay) Conversations() []string { return r.handlers.List() }

// EndConversation closes a conversation and removes its code workspace.
func (r *Relay) EndConversation(ctx context.Context, id string) error {
	if h, ok := r.handlers.Get(id); ok {
		h.Wait()
	}

	if !r.handlers.Delete(id) {
		return fmt.Errorf("conversation %s: not found", id)
	}

	return r.sessions.Close(ctx, id)
}

// Close ends every conversation and releases all code sessions.
func (r *Relay) Close(ctx context.Context) error {
	for _, id := range r.handlers.List() {
		if h, ok := r.handlers.Get(id); ok {
			h.Wait()
		}

		r.handlers.Delete(id)
	}

	return r.sessions.CloseAll(ctx)
}
