package agentrelay

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentrelay/code"
	"github.com/hupe1980/agentrelay/config"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/memory"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/model/anthropic"
	openaimodel "github.com/hupe1980/agentrelay/model/openai"
	"github.com/hupe1980/agentrelay/retrieval"
	openaiembed "github.com/hupe1980/agentrelay/retrieval/openai"
)

// NewFromConfig builds a Relay from a loaded configuration and ingests the
// configured documents. Offline configurations use the hash embedder and
// the stand-in agents.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Relay, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	var (
		llm      model.Model
		embedder retrieval.Embedder
	)

	if cfg.Offline {
		embedder = retrieval.NewHashEmbedder(0)
	} else {
		llm = chatModel(cfg)
		embedder = openaiembed.NewEmbedder(func(o *openaiembed.Options) {
			o.Model = cfg.EmbeddingModel
			o.Dimensions = cfg.EmbeddingDim
			o.APIKey = cfg.OpenAIAPIKey
		})
	}

	instructions := map[core.AgentID]string{}
	descriptions := map[core.AgentID]string{}

	for _, id := range core.AgentIDs() {
		if text, ok := cfg.Profile.Instruction(id); ok {
			instructions[id] = text
		}

		if text, ok := cfg.Profile.Description(id); ok {
			descriptions[id] = text
		}
	}

	var storage memory.Storage
	if cfg.MemoryCSVPath != "" {
		storage = memory.NewCSVStorage(cfg.MemoryCSVPath, logger)
	}

	r, err := New(func(o *Options) {
		o.Model = llm
		o.Embedder = embedder
		o.ChunkSize = cfg.ChunkSize
		o.ChunkOverlap = cfg.ChunkOverlap
		o.RAGTopK = cfg.RAGTopK
		o.MemoryTopK = cfg.MemoryTopK
		o.RecencyWeight = cfg.MemoryRecencyWeight
		o.ImportanceWeight = cfg.MemoryImportanceWeight
		o.MemoryStorage = storage
		o.CodeSessionDir = cfg.CodeSessionDir
		o.Executors = code.PythonFactory(cfg.PythonBin)
		o.ToolTimeout = cfg.ToolTimeout
		o.ToolRetries = cfg.ToolRetries
		o.ModelTimeout = cfg.ModelTimeout
		o.TurnTimeout = cfg.TurnTimeout
		o.MaxTurns = cfg.MaxTurns
		o.Instructions = instructions
		o.Descriptions = descriptions
		o.Offline = cfg.Offline
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	for _, doc := range cfg.Documents() {
		n, err := r.Ingest(ctx, doc)
		if err != nil {
			_ = r.Close(ctx)
			return nil, fmt.Errorf("ingest %s: %w", doc, err)
		}

		logger.Info("relay.ingested", "location", doc, "documents", n, "chunks", r.Documents().Count())
	}

	return r, nil
}

func chatModel(cfg *config.Config) model.Model {
	if cfg.Provider == config.ProviderAnthropic {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		})
	}

	return openaimodel.NewModel(func(o *openaimodel.Options) {
		o.APIKey = cfg.OpenAIAPIKey
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
	})
}
