// Package opensearch implements rag.Searcher against an OpenSearch index
// with a knn_vector field, as populated by the runbook indexing job.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/remedy/internal/rag"
)

const httpTimeout = 30 * time.Second

// Client runs knn searches against one OpenSearch index.
type Client struct {
	endpoint   string
	index      string
	apiKey     string
	httpClient *http.Client
}

// New creates a search client for the given endpoint and index.
func New(endpoint, index, apiKey string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		index:      index,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

// Search returns up to k nearest-neighbour documents for the vector.
func (c *Client) Search(ctx context.Context, vector []float32, k int) ([]rag.Document, error) {
	query := map[string]any{
		"size": k,
		"query": map[string]any{
			"knn": map[string]any{
				"vector_field": map[string]any{
					"vector": vector,
					"k":      k,
				},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.endpoint, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out struct {
		Hits struct {
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					ID      string `json:"id"`
					Content string `json:"content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	docs := make([]rag.Document, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		id := hit.Source.ID
		if id == "" {
			id = hit.ID
		}
		docs = append(docs, rag.Document{ID: id, Content: hit.Source.Content})
	}
	return docs, nil
}
