// Package alert defines the incoming operational alert entity and its
// validation rules. Validation happens at the API boundary, before the
// resolution pipeline runs.
package alert

import (
	"strings"

	"github.com/linnemanlabs/go-core/xerrors"
)

// Severity is the fixed set of accepted alert severities.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is the input to the resolution pipeline.
type Alert struct {
	IncidentID  string         `json:"incident_id,omitempty"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Metrics     map[string]any `json:"metrics,omitempty"`
}

var (
	// ErrBlankDescription rejects alerts whose description has no
	// non-whitespace content.
	ErrBlankDescription = xerrors.New("alert description must not be blank")

	// ErrInvalidSeverity rejects severities outside low/medium/high.
	ErrInvalidSeverity = xerrors.New("alert severity must be low, medium, or high")
)

// Validate checks the alert against the input contract.
func (a *Alert) Validate() error {
	if strings.TrimSpace(a.Description) == "" {
		return ErrBlankDescription
	}
	switch a.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return ErrInvalidSeverity
	}
	return nil
}
