package tool

import (
	"context"
	"strings"

	"github.com/hupe1980/agentrelay/core"
)

// Memory tool names.
const (
	CreateMemoryName = "create_memory"
	SearchMemoryName = "search_memory"
)

// MemoryStore persists and recalls long-term facts.
type MemoryStore interface {
	Remember(ctx context.Context, text, subject string, importance float64) (string, error)
	Recall(ctx context.Context, query string, k int) ([]string, error)
}

type createMemoryArgs struct {
	Summary    string   `json:"summary" description:"Self-contained fact worth remembering across conversations."`
	Subject    string   `json:"subject,omitempty" description:"Who or what the fact is about."`
	Importance *float64 `json:"importance,omitempty" description:"Importance between 0 and 1. Defaults to 0.5."`
}

type searchMemoryArgs struct {
	Query string `json:"query" description:"What to look up in long-term memory."`
	K     *int   `json:"k,omitempty" description:"Maximum number of memories to return."`
}

// NewCreateMemoryTool stores a fact in long-term memory.
func NewCreateMemoryTool(store MemoryStore) *FunctionTool {
	return NewTypedTool(CreateMemoryName, "Store a fact about the user or the world in long-term memory.",
		func(tc *core.ToolContext, args createMemoryArgs) (any, error) {
			if strings.TrimSpace(args.Summary) == "" {
				return nil, &core.ToolInvocationError{Tool: CreateMemoryName, Code: core.CodeValidation, Message: "summary must not be empty"}
			}

			importance := 0.5
			if args.Importance != nil {
				importance = *args.Importance
			}

			id, err := store.Remember(tc.Context(), args.Summary, args.Subject, importance)
			if err != nil {
				return nil, err
			}

			return map[string]any{"id": id, "stored": args.Summary}, nil
		})
}

// NewSearchMemoryTool recalls the facts most relevant to a query.
func NewSearchMemoryTool(store MemoryStore, defaultK int) *FunctionTool {
	if defaultK <= 0 {
		defaultK = 3
	}

	return NewTypedTool(SearchMemoryName, "Search long-term memory for facts related to the query.",
		func(tc *core.ToolContext, args searchMemoryArgs) (any, error) {
			k := defaultK
			if args.K != nil && *args.K > 0 {
				k = *args.K
			}

			memories, err := store.Recall(tc.Context(), args.Query, k)
			if err != nil {
				return nil, err
			}

			if len(memories) == 0 {
				return "no memories found", nil
			}

			return memories, nil
		})
}
