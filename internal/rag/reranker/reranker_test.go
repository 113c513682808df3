package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("path = %q, want /rerank", r.URL.Path)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "q" || len(req.Texts) != 2 {
			t.Errorf("request = %+v", req)
		}
		// results come back ranked, not in input order
		_ = json.NewEncoder(w).Encode([]rerankResult{
			{Index: 1, Score: 0.9},
			{Index: 0, Score: 0.2},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	scores, err := c.Score(context.Background(), "q", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores[0] != 0.2 || scores[1] != 0.9 {
		t.Errorf("scores = %v, want [0.2 0.9]", scores)
	}
}

func TestScore_OutOfRangeIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]rerankResult{{Index: 5, Score: 0.9}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Score(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
