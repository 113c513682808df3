package resolve

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the resolution pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	StageDuration    *prometheus.HistogramVec
	LLMRetriesTotal  *prometheus.CounterVec
	ExecutionsTotal  prometheus.Counter
	AuditWritesTotal *prometheus.CounterVec
	ApprovalsTotal   *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_runs_total",
			Help: "Total pipeline runs by terminal status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
		}, []string{"stage"}),
		LLMRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_llm_retries_total",
			Help: "Total stage retries caused by transient upstream failures.",
		}, []string{"stage"}),
		ExecutionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_executions_total",
			Help: "Total runs that executed remediation automatically.",
		}),
		AuditWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_audit_writes_total",
			Help: "Total audit trail writes by result.",
		}, []string{"result"}),
		ApprovalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_approvals_total",
			Help: "Total human approval decisions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.LLMRetriesTotal,
		m.ExecutionsTotal,
		m.AuditWritesTotal,
		m.ApprovalsTotal,
	)

	return m
}

func (m *Metrics) observeRetry(stage string) {
	if m == nil {
		return
	}
	m.LLMRetriesTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) observeStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

func (m *Metrics) observeRun(status Status, seconds float64, executed bool) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(status)).Inc()
	m.RunDuration.WithLabelValues(string(status)).Observe(seconds)
	if executed {
		m.ExecutionsTotal.Inc()
	}
}

func (m *Metrics) observeAuditWrite(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AuditWritesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeApproval(approved bool) {
	if m == nil {
		return
	}
	result := "approved"
	if !approved {
		result = "rejected"
	}
	m.ApprovalsTotal.WithLabelValues(result).Inc()
}
