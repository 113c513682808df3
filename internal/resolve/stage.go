package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/llm"
	"github.com/linnemanlabs/remedy/internal/tools"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/resolve")

const (
	// maxToolRounds caps how many tool-use turns a single stage may take.
	maxToolRounds = 4

	// responseTokens is the per-call output token budget.
	responseTokens = 4096
)

// RetryPolicy controls how transient upstream failures are retried.
// The wait before retry n is min(Max, Base*2^(n-1)).
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultRetryPolicy returns the standard policy: three attempts,
// one second base, ten second cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Base:     time.Second,
		Max:      10 * time.Second,
	}
}

// wait returns the backoff before the retry following attempt (1-based).
func (p RetryPolicy) wait(attempt int) time.Duration {
	d := p.Base << (attempt - 1)
	if d <= 0 || d > p.Max {
		d = p.Max
	}
	return d
}

// StageConfig describes one pipeline stage: its prompt and the fixed
// set of tools it is permitted to use. The set is decided at stage
// construction and never grows during a run.
type StageConfig struct {
	Name   string
	System string
	Tools  *tools.Set
}

// Runner executes a single stage against the model, driving the tool
// loop and retrying whole-stage transient failures with backoff.
type Runner struct {
	provider llm.Provider
	policy   RetryPolicy
	logger   log.Logger
	metrics  *Metrics
}

// NewRunner creates a stage runner.
func NewRunner(provider llm.Provider, policy RetryPolicy, logger log.Logger, metrics *Metrics) *Runner {
	if policy.Attempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Runner{
		provider: provider,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run executes the stage and returns its final text output. Transient
// upstream failures restart the whole stage, up to the policy's attempt
// budget. Authentication and other non-transient failures return
// immediately without retrying.
func (r *Runner) Run(ctx context.Context, sc StageConfig, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		out, err := r.runOnce(ctx, sc, prompt)
		if err == nil {
			return out, nil
		}
		if !llm.IsTransient(err) {
			return "", fmt.Errorf("stage %s: %w", sc.Name, err)
		}

		lastErr = err
		if attempt == r.policy.Attempts {
			break
		}

		wait := r.policy.wait(attempt)
		r.logger.Warn(ctx, "stage hit transient upstream error, retrying",
			"stage", sc.Name,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err,
		)
		r.metrics.observeRetry(sc.Name)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", fmt.Errorf("stage %s: retries exhausted after %d attempts: %w", sc.Name, r.policy.Attempts, lastErr)
}

// runOnce drives one stage attempt: send the prompt, execute any tool
// calls the model requests, feed results back, and return the final
// text once the model stops asking for tools.
func (r *Runner) runOnce(ctx context.Context, sc StageConfig, prompt string) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: []llm.ContentBlock{
			{Type: "text", Text: prompt},
		}},
	}

	var defs []llm.ToolDef
	if sc.Tools != nil {
		defs = sc.Tools.Defs()
	}

	var final string
	for round := 0; ; round++ {
		if round >= maxToolRounds {
			r.logger.Warn(ctx, "stage hit tool round limit", "stage", sc.Name, "limit", maxToolRounds)
			return final, nil
		}

		resp, err := r.sendTraced(ctx, sc, round, &llm.Request{
			MaxTokens: responseTokens,
			System:    sc.System,
			Messages:  messages,
			Tools:     defs,
		})
		if err != nil {
			return "", err
		}

		messages = append(messages, llm.Message{
			Role:    "assistant",
			Content: resp.Content,
		})
		for _, block := range resp.Content {
			if block.Type == "text" && block.Text != "" {
				final = block.Text
			}
		}

		if resp.StopReason != llm.StopToolUse {
			return final, nil
		}

		var toolResults []llm.ContentBlock
		for _, block := range resp.Content {
			if block.Type != "tool_use" {
				continue
			}

			r.logger.Info(ctx, "executing tool", "stage", sc.Name, "tool", block.Name)

			var (
				tool tools.Tool
				ok   bool
			)
			if sc.Tools != nil {
				tool, ok = sc.Tools.Get(block.Name)
			}
			if !ok {
				toolResults = append(toolResults, llm.ContentBlock{
					Type:      "tool_result",
					ToolUseID: block.ID,
					Content:   fmt.Sprintf("unknown tool: %s", block.Name),
					IsError:   true,
				})
				continue
			}

			output, err := r.executeTraced(ctx, sc, tool, block)
			if err != nil {
				r.logger.Error(ctx, err, "tool execution failed", "stage", sc.Name, "tool", block.Name)
				toolResults = append(toolResults, llm.ContentBlock{
					Type:      "tool_result",
					ToolUseID: block.ID,
					Content:   fmt.Sprintf("tool error: %v", err),
					IsError:   true,
				})
				continue
			}

			toolResults = append(toolResults, llm.ContentBlock{
				Type:      "tool_result",
				ToolUseID: block.ID,
				Content:   string(output),
			})
		}

		messages = append(messages, llm.Message{
			Role:    "user",
			Content: toolResults,
		})
	}
}

// sendTraced wraps one model call in an llm.call span carrying the
// gen_ai semantic attributes and request/response events.
func (r *Runner) sendTraced(ctx context.Context, sc StageConfig, seq int, req *llm.Request) (*llm.Response, error) {
	ctx, span := tracer.Start(ctx, "llm.call", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "llm.call"),
		attribute.String("remedy.stage", sc.Name),
		attribute.Int("remedy.chat.seq", seq),
	))
	defer span.End()

	span.AddEvent("llm.request", trace.WithAttributes(
		attribute.Int("llm.request.messages", len(req.Messages)),
		attribute.Int("llm.request.tools", len(req.Tools)),
	))

	resp, err := r.provider.Send(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	span.AddEvent("llm.response", trace.WithAttributes(
		attribute.String("llm.response.stop_reason", string(resp.StopReason)),
	))
	return resp, nil
}

// executeTraced wraps one tool invocation in a tool.execute span.
func (r *Runner) executeTraced(ctx context.Context, sc StageConfig, tool tools.Tool, block llm.ContentBlock) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "tool.execute"),
		attribute.String("gen_ai.tool.name", block.Name),
		attribute.String("remedy.stage", sc.Name),
		attribute.String("remedy.tool.input", string(block.Input)),
	))
	defer span.End()

	span.AddEvent("tool.request", trace.WithAttributes(
		attribute.String("tool.request.body", string(block.Input)),
	))

	output, err := tool.Execute(ctx, block.Input)
	if err != nil {
		span.SetAttributes(attribute.Bool("remedy.tool.is_error", true))
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool execution failed")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("remedy.tool.is_error", false))
	span.AddEvent("tool.result", trace.WithAttributes(
		attribute.String("tool.result.body", string(output)),
	))
	return output, nil
}
