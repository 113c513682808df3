package rag

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for runbook retrieval.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Depth prometheus.Histogram
}

// NewMetrics registers and returns retrieval metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_retrieval_depth",
			Help:    "Documents kept per runbook retrieval.",
			Buckets: []float64{0, 1, 2, 3},
		}),
	}
	reg.MustRegister(m.Depth)
	return m
}

// observeDepth records how many documents one retrieval kept. Degraded
// retrievals observe zero, so failure rate shows up in the low bucket.
func (m *Metrics) observeDepth(kept int) {
	if m == nil {
		return
	}
	m.Depth.Observe(float64(kept))
}
