// Package reranker implements rag.Reranker against a cross-encoder
// scoring endpoint (text-embeddings-inference style /rerank API).
package reranker

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

const httpTimeout = 30 * time.Second

// Client scores query/document pairs with a remote cross-encoder.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a reranker client.
func New(endpoint string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns one relevance score per document, in input order.
func (c *Client) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: docs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rerank returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	scores := make([]float64, len(docs))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d for %d documents", r.Index, len(docs))
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}
