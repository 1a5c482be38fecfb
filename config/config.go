// Package config loads the process configuration once at start-up from
// command line flags and environment variables, plus an optional YAML
// profile. The resulting Config is treated as immutable.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/hupe1980/agentrelay/logging"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the complete runtime configuration. Every field can be set by
// flag or environment variable.
type Config struct {
	OpenAIAPIKey    string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`
	Provider        string `long:"provider" env:"LLM_PROVIDER" default:"openai" choice:"openai" choice:"anthropic" description:"chat model provider"`
	Model           string `long:"model" env:"LLM_MODEL" description:"chat model name (provider default when empty)"`

	EmbeddingModel string `long:"embedding-model" env:"EMBEDDING_MODEL" default:"text-embedding-3-small" description:"OpenAI embedding model"`
	EmbeddingDim   int    `long:"embedding-dim" env:"EMBEDDING_DIM" default:"1536" description:"embedding dimensions"`
	ChunkSize      int    `long:"chunk-size" env:"CHUNK_SIZE" default:"400" description:"document chunk size in tokens"`
	ChunkOverlap   int    `long:"chunk-overlap" env:"CHUNK_OVERLAP" default:"50" description:"token overlap between chunks"`
	RAGTopK        int    `long:"rag-top-k" env:"RAG_TOP_K" default:"5" description:"document passages per search"`
	DocsDir        string `long:"docs-dir" env:"DOCS_DIR" description:"directory ingested at start-up"`

	MemoryTopK             int     `long:"memory-top-k" env:"MEMORY_TOP_K" default:"3" description:"memories per search"`
	MemoryRecencyWeight    float64 `long:"memory-recency-weight" env:"MEMORY_RECENCY_WEIGHT" default:"0.01" description:"score penalty per day of age"`
	MemoryImportanceWeight float64 `long:"memory-importance-weight" env:"MEMORY_IMPORTANCE_WEIGHT" default:"0.5" description:"score bonus per importance unit"`
	MemoryCSVPath          string  `long:"memory-csv" env:"MEMORY_CSV_PATH" default:"memories.csv" description:"memory persistence file"`

	CodeSessionDir string `long:"codesession-dir" env:"CODESESSION_DIR" description:"parent directory of code workspaces"`
	PythonBin      string `long:"python" env:"PYTHON_BIN" default:"python3" description:"python interpreter"`

	ToolTimeout  time.Duration `long:"tool-timeout" env:"TOOL_TIMEOUT" default:"30s" description:"timeout per tool invocation"`
	ToolRetries  int           `long:"tool-retries" env:"TOOL_RETRIES" default:"0" description:"retries of transient tool failures"`
	ModelTimeout time.Duration `long:"model-timeout" env:"MODEL_TIMEOUT" default:"60s" description:"timeout per model call"`
	TurnTimeout  time.Duration `long:"turn-timeout" env:"TURN_TIMEOUT" default:"2m" description:"timeout per user turn"`
	MaxTurns     int           `long:"max-turns" env:"MAX_TURNS" default:"16" description:"dispatch budget per user turn"`

	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"debug, info, warn or error"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"log output format"`

	ProfilePath string `short:"p" long:"profile" env:"AGENTRELAY_PROFILE" description:"YAML profile with instructions and documents"`
	Offline     bool   `long:"offline" description:"run without credentials using deterministic stand-ins"`

	// Profile is the loaded profile; nil without ProfilePath.
	Profile *Profile `no-flag:"true"`
}

// Load parses args (without the program name) and the environment, loads
// the profile and validates the result. Remaining positional arguments are
// returned. A help request is returned as *flags.Error of type ErrHelp.
func Load(ctx context.Context, args []string) (*Config, []string, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "agentrelay"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	if cfg.ProfilePath != "" {
		cfg.Profile, err = LoadProfile(ctx, cfg.ProfilePath)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, rest, nil
}

// IsHelp reports whether err is a help request of the flag parser.
func IsHelp(err error) bool {
	var fErr *flags.Error
	return errors.As(err, &fErr) && fErr.Type == flags.ErrHelp
}

// Validate checks the configuration. A missing credential for the selected
// provider is fatal unless Offline is set.
func (c *Config) Validate() error {
	var errs []error

	if !c.Offline {
		switch c.Provider {
		case ProviderOpenAI:
			if c.OpenAIAPIKey == "" {
				errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
			}
		case ProviderAnthropic:
			if c.AnthropicAPIKey == "" {
				errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
			}

			if c.OpenAIAPIKey == "" {
				errs = append(errs, errors.New("OPENAI_API_KEY is required for embeddings"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
		}
	}

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}

	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap))
	}

	if c.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim))
	}

	if c.RAGTopK <= 0 || c.MemoryTopK <= 0 {
		errs = append(errs, errors.New("RAG_TOP_K and MEMORY_TOP_K must be positive"))
	}

	if c.ToolRetries < 0 {
		errs = append(errs, fmt.Errorf("TOOL_RETRIES must not be negative, got %d", c.ToolRetries))
	}

	if c.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TURNS must be positive, got %d", c.MaxTurns))
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// LoggerConfig derives the logger configuration. Logs go to stderr so the
// chat transcript on stdout stays clean.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.LogLevel)

	cfg := logging.DefaultLoggerConfig()
	cfg.Level = level
	cfg.Format = c.LogFormat

	return cfg
}

// Documents returns the documents to ingest at start-up: DocsDir first,
// then the profile documents.
func (c *Config) Documents() []string {
	var docs []string
	if c.DocsDir != "" {
		docs = append(docs, c.DocsDir)
	}

	if c.Profile != nil {
		docs = append(docs, c.Profile.Documents...)
	}

	return docs
}
