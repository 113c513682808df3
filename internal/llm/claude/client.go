// Package claude implements llm.Provider against the Claude Messages API.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/remedy/internal/llm"
)

const messagesURL = "https://api.anthropic.com/v1/messages"

// Client implements the llm.Provider interface for the Claude API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Claude API client with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: messagesURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type apiRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []llm.Message `json:"messages"`
	Tools     []llm.ToolDef `json:"tools,omitempty"`
}

type apiResponse struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Content    []llm.ContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      llm.Usage          `json:"usage"`
}

// Send sends a request to the Claude API and returns the response.
// HTTP failures are classified into the llm error taxonomy so the stage
// runner can tell retryable rate limits from fatal auth errors.
func (c *Client) Send(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	body, err := json.Marshal(apiRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  req.Messages,
		Tools:     req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", llm.ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var out apiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &llm.Response{
		Content:    out.Content,
		StopReason: llm.StopReason(out.StopReason),
		Usage:      out.Usage,
		Model:      out.Model,
	}, nil
}

// classifyStatus maps an API error status to the llm error taxonomy.
// 529 is the Claude API's "overloaded" status.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: claude api error %d: %s", llm.ErrRateLimited, status, string(body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: claude api error %d: %s", llm.ErrAuth, status, string(body))
	case status >= 500:
		return fmt.Errorf("%w: claude api error %d: %s", llm.ErrUnavailable, status, string(body))
	default:
		return fmt.Errorf("claude api error %d: %s", status, string(body))
	}
}
