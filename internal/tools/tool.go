// Package tools defines the capabilities the pipeline can offer to the
// model, and the concrete runbook-search and command-execution tools.
package tools

import (
	"context"
	"encoding/json"

	"github.com/linnemanlabs/remedy/internal/llm"
)

// Tool is a capability the pipeline can offer to the AI during a stage.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
}

// Set is a fixed collection of tools offered to a single pipeline stage.
// Stages receive their tool set at construction and it never changes.
type Set struct {
	tools map[string]Tool
	defs  []llm.ToolDef
}

// NewSet builds a set from the given tools, keyed by Name.
func NewSet(ts ...Tool) *Set {
	s := &Set{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		if _, dup := s.tools[t.Name()]; dup {
			continue
		}
		s.tools[t.Name()] = t
		s.defs = append(s.defs, llm.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		})
	}
	return s
}

// Get retrieves a tool by name, returns the tool and a boolean indicating if it was found.
func (s *Set) Get(name string) (Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// Defs returns the tool definitions in the model API format.
func (s *Set) Defs() []llm.ToolDef {
	return s.defs
}

// Len returns the number of tools in the set.
func (s *Set) Len() int {
	return len(s.tools)
}
