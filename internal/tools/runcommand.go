package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/remedy/internal/command"
)

// RunCommand lets the model dispatch a remediation command to managed
// infrastructure. It is only offered to the execute stage, and only when
// the analysis confidence clears the configured threshold.
type RunCommand struct {
	executor command.Executor
}

type runCommandInput struct {
	Command string `json:"command"`
}

// NewRunCommand creates a command execution tool backed by the given executor.
func NewRunCommand(e command.Executor) *RunCommand {
	return &RunCommand{executor: e}
}

// Name returns the unique name of the tool, which is used to identify it when the LLM wants to call it.
func (r *RunCommand) Name() string { return "run_command" }

// Description returns an llm-friendly description of the command execution tool.
func (r *RunCommand) Description() string {
	return `Execute a shell command on the affected infrastructure to remediate the incident.
Use this only when the remediation steps are unambiguous and documented in a runbook.
Prefer targeted, reversible actions such as restarting a single service over broad ones.
Returns the identifier of the dispatched command, which can be used to track its outcome.`
}

// Parameters returns the JSON schema for the command execution input.
func (r *RunCommand) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "command": {
                "type": "string",
                "description": "Shell command to run on the affected host. Example: systemctl restart nginx"
            }
        },
        "required": ["command"]
    }`)
}

// Execute dispatches the command and reports its identifier back to the model.
func (r *RunCommand) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input runCommandInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if input.Command == "" {
		return nil, fmt.Errorf("command is required")
	}

	id, err := r.executor.Execute(ctx, input.Command)
	if err != nil {
		return nil, fmt.Errorf("command execution failed: %w", err)
	}

	output := map[string]any{
		"command_id": id,
		"status":     "dispatched",
	}
	return json.Marshal(output)
}
