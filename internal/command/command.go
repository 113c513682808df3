// Package command provides the remote command execution capability the
// pipeline's execute stage may invoke when confidence is high enough.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const httpTimeout = 60 * time.Second

// Executor runs a remediation command on managed infrastructure and
// returns an identifier for the dispatched command.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Client implements Executor against an SSM-style command gateway.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a command gateway client.
func New(endpoint, apiKey string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

type executeRequest struct {
	Command string `json:"command"`
}

type executeResponse struct {
	CommandID string `json:"command_id"`
}

// Execute dispatches a command and returns its identifier.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	body, err := json.Marshal(executeRequest{Command: command})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/commands", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("command gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.CommandID == "" {
		return "", fmt.Errorf("command gateway returned no command id")
	}
	return out.CommandID, nil
}
