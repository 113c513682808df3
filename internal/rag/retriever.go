// Package rag implements retrieval-augmented context for the resolution
// pipeline: embed the query, search a vector index for candidates, rerank
// them against the query, and keep the best few.
package rag

import (
	"context"
	"sort"

	"github.com/linnemanlabs/go-core/log"
)

const (
	// searchK is how many nearest-neighbour candidates to request.
	searchK = 10

	// keepTop is how many reranked documents the retriever returns.
	keepTop = 3
)

// Document is one candidate knowledge document from the vector index.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Embedder turns free text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a nearest-neighbour search over a vector index.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]Document, error)
}

// Reranker scores candidate documents against the original query.
// Higher scores are more relevant. It returns one score per document,
// in input order.
type Reranker interface {
	Score(ctx context.Context, query string, docs []string) ([]float64, error)
}

// Retriever is the retrieval service. Every failure along the pipeline
// degrades to an empty result: missing context is evidence, not an error,
// and must never abort the caller's pipeline.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	reranker Reranker
	logger   log.Logger
	metrics  *Metrics
}

// NewRetriever wires the three external model services into a retriever.
func NewRetriever(embedder Embedder, searcher Searcher, reranker Reranker, logger log.Logger, metrics *Metrics) *Retriever {
	if logger == nil {
		logger = log.Nop()
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		reranker: reranker,
		logger:   logger,
		metrics:  metrics,
	}
}

// Retrieve returns an ordered list of document texts relevant to the
// query, at most three, best first. It never returns an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) []string {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn(ctx, "embedding failed, returning empty context", "error", err)
		r.metrics.observeDepth(0)
		return nil
	}
	if len(vector) == 0 {
		r.logger.Warn(ctx, "empty embedding returned for query")
		r.metrics.observeDepth(0)
		return nil
	}

	candidates, err := r.searcher.Search(ctx, vector, searchK)
	if err != nil {
		r.logger.Warn(ctx, "vector search failed, returning empty context", "error", err)
		r.metrics.observeDepth(0)
		return nil
	}
	if len(candidates) == 0 {
		r.logger.Info(ctx, "no documents found for query")
		r.metrics.observeDepth(0)
		return nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	scores, err := r.reranker.Score(ctx, query, docs)
	if err != nil || len(scores) != len(docs) {
		r.logger.Warn(ctx, "rerank failed, returning empty context",
			"error", err, "scores", len(scores), "docs", len(docs))
		r.metrics.observeDepth(0)
		return nil
	}

	ranked := rankDocs(docs, scores)
	if len(ranked) > keepTop {
		ranked = ranked[:keepTop]
	}

	r.metrics.observeDepth(len(ranked))
	r.logger.Info(ctx, "retrieved context documents",
		"candidates", len(candidates), "kept", len(ranked))
	return ranked
}

// rankDocs sorts docs descending by score. Stable so equal-score
// candidates preserve index order.
func rankDocs(docs []string, scores []float64) []string {
	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	out := make([]string, len(docs))
	for i, j := range idx {
		out[i] = docs[j]
	}
	return out
}
