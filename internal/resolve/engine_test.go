package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/llm"
	"github.com/linnemanlabs/remedy/internal/tools"
)

func testAlert() *alert.Alert {
	return &alert.Alert{
		Description: "postgres connection pool exhausted",
		Severity:    alert.SeverityHigh,
		Metrics:     map[string]any{"connections": 500},
	}
}

func newTestEngine(provider llm.Provider) (*Engine, *stubStageTool, *stubStageTool) {
	search := &stubStageTool{name: "search_runbooks"}
	run := &stubStageTool{name: "run_command"}
	runner := NewRunner(provider, fastPolicy(3), nil, nil)
	engine := NewEngine(runner, tools.NewSet(search), tools.NewSet(run), 0.8, nil, nil)
	return engine, search, run
}

func TestEngineRunExecutes(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: textResponse("database")},
		{resp: textResponse(`{"runbook": "restart the pooler"}`)},
		{resp: textResponse(`{"issue": "pool exhausted", "root_cause": "leaked connections", "impact": "writes blocked", "resolution": "restart pgbouncer", "confidence": 0.9}`)},
		{resp: toolUseResponse("tu-1", "run_command", `{"command":"systemctl restart pgbouncer"}`)},
		{resp: textResponse(`{"executed": true, "command_id": "cmd-1"}`)},
	}}
	engine, _, run := newTestEngine(provider)

	out, err := engine.Run(context.Background(), "inc-1", testAlert())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Status != StatusResolved {
		t.Errorf("status = %s, want resolved", out.Status)
	}
	if !out.Resolution.Executed {
		t.Error("executed = false, want true")
	}
	if out.Resolution.Confidence < 0.95 {
		t.Errorf("confidence = %v, want >= 0.95 after execution", out.Resolution.Confidence)
	}
	if out.Resolution.CommandID != "cmd-1" {
		t.Errorf("command_id = %q", out.Resolution.CommandID)
	}
	if out.Resolution.Issue != "pool exhausted" {
		t.Errorf("issue = %q", out.Resolution.Issue)
	}
	if run.execs != 1 {
		t.Errorf("run_command executed %d times, want 1", run.execs)
	}
	for _, stage := range []string{"classify", "retrieve", "analyze", "execute"} {
		if !strings.Contains(out.Trace, "=== "+stage+" ===") {
			t.Errorf("trace missing stage %q", stage)
		}
	}

	// Execute stage must have been offered the command tool.
	exec := provider.requests[3]
	if len(exec.Tools) != 1 || exec.Tools[0].Name != "run_command" {
		t.Errorf("execute stage tools = %+v", exec.Tools)
	}
}

func TestEngineRunLowConfidenceEscalates(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: textResponse("application")},
		{resp: textResponse(`{}`)},
		{resp: textResponse(`{"issue": "flaky deploy", "confidence": 0.5}`)},
		{resp: textResponse(`{"executed": false, "note": "Skipped due to low confidence"}`)},
	}}
	engine, _, run := newTestEngine(provider)

	out, err := engine.Run(context.Background(), "inc-2", testAlert())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Status != StatusPendingHuman {
		t.Errorf("status = %s, want pending_human", out.Status)
	}
	if out.Resolution.Executed {
		t.Error("executed must be false")
	}
	if out.Resolution.Note != "Skipped due to low confidence" {
		t.Errorf("note = %q", out.Resolution.Note)
	}
	if run.execs != 0 {
		t.Errorf("run_command executed %d times, want 0", run.execs)
	}

	// Below threshold the execute stage gets no tools at all.
	exec := provider.requests[3]
	if len(exec.Tools) != 0 {
		t.Errorf("execute stage tools = %+v, want none", exec.Tools)
	}
}

func TestEngineRunGateOverridesExecutedClaim(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: textResponse("network")},
		{resp: textResponse(`{}`)},
		{resp: textResponse(`{"issue": "packet loss", "confidence": 0.4}`)},
		{resp: textResponse(`{"executed": true, "command_id": "cmd-bogus"}`)},
	}}
	engine, _, _ := newTestEngine(provider)

	out, err := engine.Run(context.Background(), "inc-3", testAlert())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Resolution.Executed {
		t.Error("below-threshold run must never count as executed")
	}
	if out.Status != StatusPendingHuman {
		t.Errorf("status = %s, want pending_human", out.Status)
	}
}

func TestEngineRunMalformedAnalysisUsesDefaults(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: textResponse("database")},
		{resp: textResponse(`{}`)},
		{resp: textResponse(`the model rambled with no structure`)},
		{resp: textResponse(`{"executed": false, "note": "Skipped due to low confidence"}`)},
	}}
	engine, _, _ := newTestEngine(provider)

	out, err := engine.Run(context.Background(), "inc-4", testAlert())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Resolution.Issue != "Unknown" {
		t.Errorf("issue = %q, want default", out.Resolution.Issue)
	}
	if out.Resolution.Confidence != 0.7 {
		t.Errorf("confidence = %v, want default 0.7", out.Resolution.Confidence)
	}
	if out.Status != StatusPendingHuman {
		t.Errorf("status = %s, want pending_human", out.Status)
	}
}

func TestEngineRunTransientExhaustionFallsBack(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{steps: []scriptedStep{
		{err: llm.ErrRateLimited},
		{err: llm.ErrRateLimited},
		{err: llm.ErrRateLimited},
	}}
	engine, _, _ := newTestEngine(provider)

	out, err := engine.Run(context.Background(), "inc-5", testAlert())
	if err != nil {
		t.Fatalf("Run must not propagate transient exhaustion, got %v", err)
	}

	if out.Status != StatusPendingHuman {
		t.Errorf("status = %s, want pending_human", out.Status)
	}
	if out.Resolution.Issue != "LLM unavailable" {
		t.Errorf("issue = %q", out.Resolution.Issue)
	}
	if out.Resolution.RootCause != "Rate limited or service error" {
		t.Errorf("root_cause = %q", out.Resolution.RootCause)
	}
	if out.Resolution.Confidence != 0.0 {
		t.Errorf("confidence = %v, want 0", out.Resolution.Confidence)
	}
	if provider.calls() != 3 {
		t.Errorf("calls = %d, want 3", provider.calls())
	}
}

func TestEngineRunAuthFailurePropagates(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{steps: []scriptedStep{
		{err: llm.ErrAuth},
	}}
	engine, _, _ := newTestEngine(provider)

	_, err := engine.Run(context.Background(), "inc-6", testAlert())
	if !errors.Is(err, llm.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth propagated", err)
	}
}

func TestEngineRunNormalizesClassification(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: textResponse("  Database\n")},
		{resp: textResponse(`{}`)},
		{resp: textResponse(`{"confidence": 0.3}`)},
		{resp: textResponse(`{"executed": false, "note": "skipped"}`)},
	}}
	engine, _, _ := newTestEngine(provider)

	if _, err := engine.Run(context.Background(), "inc-7", testAlert()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The analyze prompt carries the normalized classification.
	analyze := provider.requests[2]
	prompt := analyze.Messages[0].Content[0].Text
	if !strings.Contains(prompt, "Classification: database") {
		t.Errorf("analyze prompt missing normalized classification:\n%s", prompt)
	}
}
