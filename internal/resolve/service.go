package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/oklog/ulid/v2"
)

// ErrApprovalRejected marks an approval request with approved=false.
// Surfaced to the caller as a client error, never a server failure.
var ErrApprovalRejected = xerrors.New("resolve: approval rejected")

// Notifier delivers escalation notifications for outcomes that need a
// human. Implementations must be best-effort; failures are logged, not
// propagated.
type Notifier interface {
	Send(ctx context.Context, o *Outcome) error
}

// ServiceConfig tunes the service boundary around the engine.
type ServiceConfig struct {
	// Timeout bounds one whole pipeline run.
	Timeout time.Duration

	// AuditStrict makes a failed audit write fail the request instead
	// of degrading to a warning on the outcome.
	AuditStrict bool
}

// Service is the business boundary for resolution operations. It owns
// incident identity, the run deadline, the audit write, and escalation
// notification.
type Service struct {
	engine   *Engine
	sink     Sink
	notifier Notifier
	cfg      ServiceConfig
	logger   log.Logger
	metrics  *Metrics
}

// NewService creates a resolution service. notifier may be nil.
func NewService(engine *Engine, sink Sink, notifier Notifier, cfg ServiceConfig, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Service{
		engine:   engine,
		sink:     sink,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Process validates the alert, runs the pipeline, and persists exactly
// one audit record for the terminal outcome. The returned outcome always
// carries a status; errors are limited to validation failures, upstream
// auth misconfiguration, and caller cancellation.
func (s *Service) Process(ctx context.Context, al *alert.Alert) (*Outcome, error) {
	if err := al.Validate(); err != nil {
		return nil, err
	}

	incidentID := al.IncidentID
	if incidentID == "" {
		incidentID = ulid.Make().String()
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	outcome, err := s.engine.Run(runCtx, incidentID, al)
	if err != nil {
		if !s.runDeadlineExpired(ctx, err) {
			return nil, err
		}
		// The expired deadline is ours, not the caller's: the incident
		// still gets a terminal outcome and an audit record.
		s.logger.Error(ctx, err, "run deadline expired, escalating to human", "incident_id", incidentID)
		outcome = &Outcome{
			IncidentID: incidentID,
			Status:     StatusPendingHuman,
			Resolution: fallbackResolution(),
			Trace:      fmt.Sprintf("=== deadline ===\nexpired after %s: %v\n", s.cfg.Timeout, err),
		}
	}
	s.metrics.observeRun(outcome.Status, time.Since(start).Seconds(), outcome.Resolution.Executed)

	// Audit and escalation use the caller's context: the run deadline
	// must not cut off the record write.
	if err := s.audit(ctx, outcome); err != nil {
		if s.cfg.AuditStrict {
			return nil, err
		}
		s.logger.Error(ctx, err, "audit write failed, returning outcome anyway", "incident_id", incidentID)
		outcome.Warnings = append(outcome.Warnings, "audit write failed")
	}

	if outcome.Status == StatusPendingHuman {
		s.escalate(ctx, outcome)
	}
	return outcome, nil
}

// runDeadlineExpired reports whether err is the service-owned run
// deadline firing, as opposed to the caller's own context ending.
func (s *Service) runDeadlineExpired(parent context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil
}

// Approve records a human decision on a pending incident. A rejected
// approval returns ErrApprovalRejected and never touches stored state.
func (s *Service) Approve(ctx context.Context, incidentID string, approved bool) error {
	s.metrics.observeApproval(approved)
	if !approved {
		return ErrApprovalRejected
	}
	s.logger.Info(ctx, "incident approved by operator", "incident_id", incidentID)
	return nil
}

// AuditTrail returns the persisted audit records for an incident,
// newest first.
func (s *Service) AuditTrail(ctx context.Context, incidentID string) ([]Record, error) {
	return s.sink.List(ctx, incidentID)
}

func (s *Service) audit(ctx context.Context, o *Outcome) error {
	rec := &Record{
		IncidentID:        o.IncidentID,
		Timestamp:         time.Now().UTC(),
		Resolution:        o.Resolution,
		Trace:             o.Trace,
		HumanIntervention: o.Status == StatusPendingHuman,
	}
	err := s.sink.Put(ctx, rec)
	s.metrics.observeAuditWrite(err)
	return err
}

func (s *Service) escalate(ctx context.Context, o *Outcome) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, o); err != nil {
		s.logger.Warn(ctx, "escalation notification failed", "incident_id", o.IncidentID, "error", err)
	}
}
