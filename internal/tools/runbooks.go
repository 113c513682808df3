package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/remedy/internal/rag"
)

// RunbookSearch lets the model pull operational runbook excerpts relevant
// to the incident under investigation.
type RunbookSearch struct {
	retriever *rag.Retriever
}

type runbookInput struct {
	Query string `json:"query"`
}

// NewRunbookSearch creates a runbook search tool backed by the given retriever.
func NewRunbookSearch(r *rag.Retriever) *RunbookSearch {
	return &RunbookSearch{retriever: r}
}

// Name returns the unique name of the tool, which is used to identify it when the LLM wants to call it.
func (s *RunbookSearch) Name() string { return "search_runbooks" }

// Description returns an llm-friendly description of what the runbook search does and when to use it.
func (s *RunbookSearch) Description() string {
	return `Search the operational runbook knowledge base for procedures relevant to an incident.
Use this to find documented remediation steps, known failure modes, and diagnostic guidance
for the systems involved in the alert. Phrase the query as a description of the problem,
for example "postgres connection pool exhausted" or "nginx returning 502 after deploy".
Returns up to 3 runbook excerpts ranked by relevance, or none when nothing matches.`
}

// Parameters returns the JSON schema for the runbook search input.
func (s *RunbookSearch) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "query": {
                "type": "string",
                "description": "Description of the incident or symptom to search runbooks for."
            }
        },
        "required": ["query"]
    }`)
}

// Execute runs the retrieval pipeline for the given query. Retrieval
// failures surface as an empty excerpt list, never as a tool error.
func (s *RunbookSearch) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input runbookInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if input.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	excerpts := s.retriever.Retrieve(ctx, input.Query)
	if excerpts == nil {
		excerpts = []string{}
	}

	output := map[string]any{
		"count":    len(excerpts),
		"excerpts": excerpts,
	}
	return json.Marshal(output)
}
