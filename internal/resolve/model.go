package resolve

import (
	"fmt"
	"strings"
)

// Status is the terminal state of a pipeline run.
type Status string

const (
	// StatusResolved means the pipeline reached a confident outcome,
	// possibly after executing remediation.
	StatusResolved Status = "resolved"

	// StatusPendingHuman means the pipeline could not reach sufficient
	// confidence to act autonomously and defers to a human approver.
	StatusPendingHuman Status = "pending_human"
)

// Resolution is the merged outcome record of a pipeline run.
type Resolution struct {
	Issue      string  `json:"issue"`
	RootCause  string  `json:"root_cause"`
	Impact     string  `json:"impact"`
	Resolution string  `json:"resolution"`
	Confidence float64 `json:"confidence"`
	Executed   bool    `json:"executed"`
	CommandID  string  `json:"command_id,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// DefaultResolution is the baseline before any stage contributes.
// Later stages overlay their non-empty fields on top of it.
func DefaultResolution() Resolution {
	return Resolution{
		Issue:      "Unknown",
		RootCause:  "Unknown",
		Impact:     "Unknown",
		Resolution: "Manual investigation required",
		Confidence: 0.7,
		Executed:   false,
	}
}

// Outcome is what a pipeline run hands back to the caller.
type Outcome struct {
	IncidentID string     `json:"incident_id"`
	Status     Status     `json:"status"`
	Resolution Resolution `json:"resolution"`
	Warnings   []string   `json:"warnings,omitempty"`
	Trace      string     `json:"-"`
}

// applyFields overlays recovered model output onto a resolution.
// Unknown keys are ignored, malformed values are skipped, present
// fields always win over what is already there.
func applyFields(r *Resolution, fields map[string]any) {
	for key, val := range fields {
		switch key {
		case "issue":
			if s, ok := val.(string); ok && s != "" {
				r.Issue = s
			}
		case "root_cause":
			if s, ok := val.(string); ok && s != "" {
				r.RootCause = s
			}
		case "impact":
			if s, ok := val.(string); ok && s != "" {
				r.Impact = s
			}
		case "resolution":
			if s, ok := val.(string); ok && s != "" {
				r.Resolution = s
			}
		case "note":
			if s, ok := val.(string); ok && s != "" {
				r.Note = s
			}
		case "confidence":
			if f, ok := asFloat(val); ok {
				r.Confidence = f
			}
		case "executed":
			if b, ok := val.(bool); ok {
				r.Executed = b
			}
		case "command_id":
			if s := flattenCommandID(val); s != "" {
				r.CommandID = s
			}
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// flattenCommandID accepts a single command id or a list of them and
// renders a comma-joined string.
func flattenCommandID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case []any:
		parts := make([]string, 0, len(id))
		for _, item := range id {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	}
	return ""
}
