package resolve

import (
	"context"
	"strconv"
	"time"
)

// Record is one audit trail entry: the full terminal outcome of a
// pipeline run at the moment it completed.
type Record struct {
	IncidentID        string     `json:"incident_id"`
	Timestamp         time.Time  `json:"timestamp"`
	Resolution        Resolution `json:"resolution"`
	Trace             string     `json:"trace,omitempty"`
	HumanIntervention bool       `json:"human_intervention"`
}

// Sink persists audit records. The trail is append-only: records are
// written once and never updated.
type Sink interface {
	// Put appends a record to the trail.
	Put(ctx context.Context, rec *Record) error

	// List returns all records for an incident, newest first.
	List(ctx context.Context, incidentID string) ([]Record, error)
}

// DecimalString renders a float for exact-decimal storage. The shortest
// representation that round-trips is stored, so 0.85 persists as "0.85"
// and reads back bit-identical.
func DecimalString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
