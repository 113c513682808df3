package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config holds all runtime configuration for the service.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ClaudeAPIKey          string
	ClaudeModel           string
	DatabaseURL           string
	SlackWebhookURL       string
	APIToken              string
	EmbeddingEndpoint     string
	EmbeddingAPIKey       string
	SearchEndpoint        string
	SearchIndex           string
	SearchAPIKey          string
	RerankEndpoint        string
	CommandEndpoint       string
	CommandAPIKey         string
	ConfidenceThreshold   float64
	RetryMaxAttempts      int
	RetryBaseSeconds      float64
	RetryMaxSeconds       float64
	PipelineTimeoutSecs   int
	AuditStrict           bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory audit sink)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for escalation notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
	fs.StringVar(&c.EmbeddingEndpoint, "embedding-endpoint", "", "text embedding service endpoint for runbook retrieval")
	fs.StringVar(&c.EmbeddingAPIKey, "embedding-api-key", "", "API key for the embedding service")
	fs.StringVar(&c.SearchEndpoint, "search-endpoint", "", "vector search endpoint for runbook retrieval")
	fs.StringVar(&c.SearchIndex, "search-index", "runbooks", "vector search index holding runbook documents")
	fs.StringVar(&c.SearchAPIKey, "search-api-key", "", "API key for the vector search service")
	fs.StringVar(&c.RerankEndpoint, "rerank-endpoint", "", "cross-encoder rerank service endpoint")
	fs.StringVar(&c.CommandEndpoint, "command-endpoint", "", "remote command gateway endpoint (empty = execution disabled)")
	fs.StringVar(&c.CommandAPIKey, "command-api-key", "", "API key for the command gateway")
	fs.Float64Var(&c.ConfidenceThreshold, "confidence-threshold", 0.8, "confidence required to permit automated execution (0..1)")
	fs.IntVar(&c.RetryMaxAttempts, "llm-retry-attempts", 3, "attempts per pipeline stage before giving up (1..10)")
	fs.Float64Var(&c.RetryBaseSeconds, "llm-retry-base-seconds", 1.0, "base backoff between stage retries")
	fs.Float64Var(&c.RetryMaxSeconds, "llm-retry-max-seconds", 10.0, "backoff cap between stage retries")
	fs.IntVar(&c.PipelineTimeoutSecs, "pipeline-timeout-seconds", 120, "deadline for one whole pipeline run (1..600)")
	fs.BoolVar(&c.AuditStrict, "audit-strict", false, "fail requests whose audit write fails instead of degrading to a warning")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Claude access is required for the pipeline to run at all
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid CONFIDENCE_THRESHOLD %v (must be 0..1)", c.ConfidenceThreshold))
	}
	if c.RetryMaxAttempts <= 0 || c.RetryMaxAttempts > 10 {
		errs = append(errs, fmt.Errorf("invalid LLM_RETRY_ATTEMPTS %d (must be 1..10)", c.RetryMaxAttempts))
	}
	if c.RetryBaseSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid LLM_RETRY_BASE_SECONDS %v (must be > 0)", c.RetryBaseSeconds))
	}
	if c.RetryMaxSeconds < c.RetryBaseSeconds {
		errs = append(errs, fmt.Errorf("LLM_RETRY_MAX_SECONDS %v must be >= LLM_RETRY_BASE_SECONDS %v", c.RetryMaxSeconds, c.RetryBaseSeconds))
	}
	if c.PipelineTimeoutSecs <= 0 || c.PipelineTimeoutSecs > 600 {
		errs = append(errs, fmt.Errorf("invalid PIPELINE_TIMEOUT_SECONDS %d (must be 1..600)", c.PipelineTimeoutSecs))
	}

	// Retrieval endpoints come as a set: either all configured or none.
	ragSet := 0
	for _, ep := range []string{c.EmbeddingEndpoint, c.SearchEndpoint, c.RerankEndpoint} {
		if ep != "" {
			ragSet++
		}
	}
	if ragSet != 0 && ragSet != 3 {
		errs = append(errs, errors.New("EMBEDDING_ENDPOINT, SEARCH_ENDPOINT and RERANK_ENDPOINT must be configured together"))
	}
	if c.SearchIndex == "" {
		errs = append(errs, errors.New("SEARCH_INDEX is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
