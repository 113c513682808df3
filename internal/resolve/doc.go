// Package resolve implements the incident resolution pipeline: classify
// the alert, retrieve runbook context, analyze for a structured
// resolution, and conditionally execute remediation when confidence is
// high enough. Every run ends in a terminal outcome, resolved or
// escalated, and every outcome is written to the audit trail.
package resolve
