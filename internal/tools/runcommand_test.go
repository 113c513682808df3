package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeExecutor struct {
	gotCommand string
	id         string
	err        error
}

func (f *fakeExecutor) Execute(_ context.Context, command string) (string, error) {
	f.gotCommand = command
	return f.id, f.err
}

func TestRunCommand_Execute(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{id: "cmd-42"}
	tool := NewRunCommand(exec)

	if tool.Name() != "run_command" {
		t.Errorf("Name() = %q", tool.Name())
	}

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"systemctl restart nginx"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if exec.gotCommand != "systemctl restart nginx" {
		t.Errorf("executor got command %q", exec.gotCommand)
	}

	var result struct {
		CommandID string `json:"command_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if result.CommandID != "cmd-42" {
		t.Errorf("command_id = %q, want cmd-42", result.CommandID)
	}
	if result.Status != "dispatched" {
		t.Errorf("status = %q, want dispatched", result.Status)
	}
}

func TestRunCommand_ExecutorError(t *testing.T) {
	t.Parallel()

	tool := NewRunCommand(&fakeExecutor{err: errors.New("gateway unreachable")})

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"reboot"}`)); err == nil {
		t.Error("expected error from failing executor")
	}
}

func TestRunCommand_BadInput(t *testing.T) {
	t.Parallel()

	tool := NewRunCommand(&fakeExecutor{id: "x"})

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Error("expected error for missing command")
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{broken`)); err == nil {
		t.Error("expected error for malformed params")
	}
}
