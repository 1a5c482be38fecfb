package tool

import (
	"context"
	"strings"

	"github.com/hupe1980/agentrelay/core"
)

// RAGSearchName is the name of the document search tool.
const RAGSearchName = "rag_search"

// DocumentSearcher renders the document chunks relevant to a query as a
// context string. Exactly one of k and threshold is positive.
type DocumentSearcher interface {
	SearchContext(ctx context.Context, query string, k int, threshold float64) (string, error)
}

type ragSearchArgs struct {
	Query     string   `json:"query" description:"Search query in natural language."`
	K         *int     `json:"k,omitempty" description:"Number of chunks to return."`
	Threshold *float64 `json:"threshold,omitempty" description:"Minimum similarity between 0 and 1. Ignored when k is given."`
}

// NewRAGSearchTool searches the ingested documents. Without k or threshold
// the defaultK best chunks are returned; k wins when both are given.
func NewRAGSearchTool(searcher DocumentSearcher, defaultK int) *FunctionTool {
	if defaultK <= 0 {
		defaultK = 5
	}

	return NewTypedTool(RAGSearchName, "Search the document collection and return the most relevant passages.",
		func(tc *core.ToolContext, args ragSearchArgs) (any, error) {
			if strings.TrimSpace(args.Query) == "" {
				return nil, &core.ToolInvocationError{Tool: RAGSearchName, Code: core.CodeValidation, Message: "query must not be empty"}
			}

			k, threshold := defaultK, 0.0

			switch {
			case args.K != nil:
				k = *args.K
			case args.Threshold != nil:
				k, threshold = 0, *args.Threshold
			}

			text, err := searcher.SearchContext(tc.Context(), args.Query, k, threshold)
			if err != nil {
				return nil, err
			}

			if text == "" {
				return "no relevant documents found", nil
			}

			return text, nil
		})
}
