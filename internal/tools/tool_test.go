package tools

import (
	"context"
	"encoding/json"
	"testing"
)

type stubTool struct {
	name string
	desc string
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return s.desc }
func (s *stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`"ok"`), nil
}

func TestSet_Get(t *testing.T) {
	t.Parallel()

	s := NewSet(&stubTool{name: "my_tool", desc: "does stuff"})

	tool, ok := s.Get("my_tool")
	if !ok {
		t.Fatal("expected tool to be found")
	}
	if tool.Name() != "my_tool" {
		t.Errorf("Name() = %q, want %q", tool.Name(), "my_tool")
	}

	if _, ok := s.Get("nonexistent"); ok {
		t.Fatal("expected ok=false for missing tool")
	}
}

func TestSet_Defs(t *testing.T) {
	t.Parallel()

	s := NewSet(
		&stubTool{name: "tool_a", desc: "desc a"},
		&stubTool{name: "tool_b", desc: "desc b"},
	)

	defs := s.Defs()
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Name != "tool_a" || defs[1].Name != "tool_b" {
		t.Errorf("defs out of declaration order: %q, %q", defs[0].Name, defs[1].Name)
	}
	for _, d := range defs {
		if len(d.InputSchema) == 0 {
			t.Errorf("tool %q has empty InputSchema", d.Name)
		}
	}
	if defs[0].Description != "desc a" {
		t.Errorf("tool_a description = %q, want %q", defs[0].Description, "desc a")
	}
}

func TestSet_DuplicateNamesDropped(t *testing.T) {
	t.Parallel()

	s := NewSet(
		&stubTool{name: "dup", desc: "first"},
		&stubTool{name: "dup", desc: "second"},
	)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	tool, _ := s.Get("dup")
	if tool.Description() != "first" {
		t.Errorf("Description() = %q, want %q (first registration wins)", tool.Description(), "first")
	}
	if len(s.Defs()) != 1 {
		t.Errorf("len(defs) = %d, want 1", len(s.Defs()))
	}
}

func TestSet_Empty(t *testing.T) {
	t.Parallel()

	s := NewSet()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if defs := s.Defs(); len(defs) != 0 {
		t.Errorf("len(defs) = %d, want 0", len(defs))
	}
}
