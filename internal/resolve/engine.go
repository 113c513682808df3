package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/llm"
	"github.com/linnemanlabs/remedy/internal/tools"
)

// fallbackResolution is the terminal record synthesized when the
// reasoning service stays unavailable through the whole retry budget.
func fallbackResolution() Resolution {
	return Resolution{
		Issue:      "LLM unavailable",
		RootCause:  "Rate limited or service error",
		Impact:     "Unknown",
		Resolution: "Manual investigation required",
		Confidence: 0.0,
		Executed:   false,
	}
}

// Engine orchestrates the four pipeline stages and applies the
// confidence-gated decision rule to their merged output.
type Engine struct {
	runner        *Runner
	retrieveTools *tools.Set
	executeTools  *tools.Set
	threshold     float64
	logger        log.Logger
	metrics       *Metrics
}

// NewEngine creates a pipeline engine. retrieveTools is the set offered
// to the context stage, executeTools the set offered to the execute
// stage when confidence clears threshold.
func NewEngine(runner *Runner, retrieveTools, executeTools *tools.Set, threshold float64, logger log.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		runner:        runner,
		retrieveTools: retrieveTools,
		executeTools:  executeTools,
		threshold:     threshold,
		logger:        logger,
		metrics:       metrics,
	}
}

// Run executes the pipeline for one alert and returns its terminal
// outcome. Transient upstream exhaustion degrades to the escalation
// fallback; only authentication failures and context cancellation
// surface as errors.
func (e *Engine) Run(ctx context.Context, incidentID string, al *alert.Alert) (*Outcome, error) {
	L := e.logger.With("incident_id", incidentID, "severity", al.Severity)
	var trace strings.Builder

	classification, err := e.runStage(ctx, stageClassify(), classifyPrompt(al), &trace)
	if err != nil {
		return e.stageFailure(ctx, L, incidentID, "classify", err)
	}
	classification = strings.ToLower(strings.TrimSpace(classification))
	L.Info(ctx, "alert classified", "classification", classification)

	runbook, err := e.runStage(ctx, stageRetrieve(e.retrieveTools), retrievePrompt(al, classification), &trace)
	if err != nil {
		return e.stageFailure(ctx, L, incidentID, "retrieve", err)
	}

	analysis, err := e.runStage(ctx, stageAnalyze(), analyzePrompt(al, classification, runbook), &trace)
	if err != nil {
		return e.stageFailure(ctx, L, incidentID, "analyze", err)
	}

	resolution := DefaultResolution()
	applyFields(&resolution, RecoverJSON(analysis))

	permitted := resolution.Confidence > e.threshold
	execution, err := e.runStage(ctx, stageExecute(e.executeTools, permitted), executePrompt(&resolution, permitted), &trace)
	if err != nil {
		return e.stageFailure(ctx, L, incidentID, "execute", err)
	}
	applyFields(&resolution, RecoverJSON(execution))
	if !permitted {
		// The gate is authoritative: a below-threshold run never
		// counts as executed, whatever the model claims.
		resolution.Executed = false
	}

	outcome := &Outcome{
		IncidentID: incidentID,
		Resolution: resolution,
		Trace:      trace.String(),
	}
	finalize(outcome, e.threshold)

	L.Info(ctx, "pipeline complete",
		"status", outcome.Status,
		"confidence", outcome.Resolution.Confidence,
		"executed", outcome.Resolution.Executed,
	)
	return outcome, nil
}

// runStage executes one stage, records its duration, and appends its
// raw output to the run trace.
func (e *Engine) runStage(ctx context.Context, sc StageConfig, prompt string, trace *strings.Builder) (string, error) {
	start := time.Now()
	out, err := e.runner.Run(ctx, sc, prompt)
	e.metrics.observeStage(sc.Name, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(trace, "=== %s ===\n%s\n", sc.Name, out)
	return out, nil
}

// stageFailure maps a stage error to the caller-visible result.
// Authentication failures and cancellation propagate; everything else
// becomes the escalation fallback with an audit-worthy outcome.
func (e *Engine) stageFailure(ctx context.Context, L log.Logger, incidentID, stage string, err error) (*Outcome, error) {
	if llm.IsAuth(err) || ctx.Err() != nil {
		return nil, err
	}

	L.Error(ctx, err, "stage failed, escalating to human", "stage", stage)
	return &Outcome{
		IncidentID: incidentID,
		Status:     StatusPendingHuman,
		Resolution: fallbackResolution(),
		Trace:      fmt.Sprintf("=== %s ===\nfailed: %v\n", stage, err),
	}, nil
}

// finalize applies the decision rule: execution implies resolved with
// confidence of at least 0.95, otherwise confidence below threshold
// escalates to a human.
func finalize(o *Outcome, threshold float64) {
	switch {
	case o.Resolution.Executed:
		o.Status = StatusResolved
		if o.Resolution.Confidence < 0.95 {
			o.Resolution.Confidence = 0.95
		}
	case o.Resolution.Confidence < threshold:
		o.Status = StatusPendingHuman
	default:
		o.Status = StatusResolved
	}
}

func stageClassify() StageConfig {
	return StageConfig{
		Name:   "classify",
		System: "You are an incident classifier. You identify what kind of infrastructure incident an alert describes.",
	}
}

func stageRetrieve(ts *tools.Set) StageConfig {
	return StageConfig{
		Name:   "retrieve",
		System: "You are a runbook selector. You find the documented procedures most relevant to an incident.",
		Tools:  ts,
	}
}

func stageAnalyze() StageConfig {
	return StageConfig{
		Name:   "analyze",
		System: "You are a resolution analyzer. You combine incident details with runbook context to produce a structured resolution.",
	}
}

func stageExecute(ts *tools.Set, permitted bool) StageConfig {
	sc := StageConfig{
		Name:   "execute",
		System: "You are a fix executor. You apply documented remediation when it is safe to do so and report the result.",
	}
	if permitted {
		sc.Tools = ts
	}
	return sc
}

func classifyPrompt(al *alert.Alert) string {
	return fmt.Sprintf(`Classify this incident.

Description: %s
Severity: %s
%s
Steps:
1. Read the incident description carefully.
2. Decide if it is most related to: (a) database, (b) network, or (c) application.
3. If multiple categories seem possible, pick the most likely one. Never say "uncertain".
4. Respond with exactly one lowercase word: database, network, or application.

Do not add explanations or extra text.`, al.Description, al.Severity, formatMetrics(al))
}

func retrievePrompt(al *alert.Alert, classification string) string {
	return fmt.Sprintf(`Find runbook context for this incident.

Description: %s
Classification: %s

Steps:
1. Call the search_runbooks tool with a query describing the incident.
2. Return the retrieved excerpts exactly as found.
3. If nothing is found, return {}.

Do not invent runbook content. Rely only on search_runbooks results.`, al.Description, classification)
}

func analyzePrompt(al *alert.Alert, classification, runbook string) string {
	return fmt.Sprintf(`Analyze this incident and produce a resolution.

Description: %s
Severity: %s
Classification: %s
%s
Runbook context:
%s

Think step by step:
1. Identify the issue.
2. Identify the most likely root cause.
3. Assess the business and system impact.
4. Suggest specific, actionable resolution steps.
5. Assign a numeric confidence score between 0 and 1.

Return strict JSON with keys:
{
  "issue": "...",
  "root_cause": "...",
  "impact": "...",
  "resolution": "...",
  "confidence": 0.0
}

No extra text outside the JSON.`, al.Description, al.Severity, classification, formatMetrics(al), runbook)
}

func executePrompt(r *Resolution, permitted bool) string {
	analysis, _ := json.Marshal(r)
	if !permitted {
		return fmt.Sprintf(`The analysis below did not clear the confidence bar for automated execution.

Analysis: %s

Do not attempt any remediation. Return valid JSON:
{ "executed": false, "note": "Skipped due to low confidence" }`, analysis)
	}
	return fmt.Sprintf(`Apply the remediation from this analysis.

Analysis: %s

Steps:
1. Call the run_command tool with the remediation command.
2. Return valid JSON reporting what happened:
   - If executed: { "executed": true, "command_id": "..." }
   - If you could not execute: { "executed": false, "note": "..." }`, analysis)
}

func formatMetrics(al *alert.Alert) string {
	if len(al.Metrics) == 0 {
		return ""
	}
	data, err := json.MarshalIndent(al.Metrics, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Metrics:\n%s\n", data)
}
