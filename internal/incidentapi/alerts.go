package incidentapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/resolve"
)

type processResponse struct {
	Status     resolve.Status     `json:"status"`
	IncidentID string             `json:"incident_id"`
	Resolution resolve.Resolution `json:"resolution"`
	Warnings   []string           `json:"warnings,omitempty"`
}

func (a *API) handleProcessAlert(w http.ResponseWriter, r *http.Request) {
	var al alert.Alert
	if err := json.NewDecoder(r.Body).Decode(&al); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if err := al.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	outcome, err := a.svc.Process(r.Context(), &al)
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// Auth misconfiguration, caller cancellation, or strict-mode
		// audit failure. The caller gets a structured error, never a
		// trace.
		a.logger.Error(r.Context(), err, "pipeline run failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("remedy.incident.id", outcome.IncidentID),
		attribute.String("remedy.incident.status", string(outcome.Status)),
	)

	writeJSON(w, http.StatusOK, processResponse{
		Status:     outcome.Status,
		IncidentID: outcome.IncidentID,
		Resolution: outcome.Resolution,
		Warnings:   outcome.Warnings,
	})
}

type approveRequest struct {
	Approved bool           `json:"approved"`
	Tweaks   map[string]any `json:"tweaks,omitempty"`
}

func (a *API) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	if err := a.svc.Approve(r.Context(), id, req.Approved); err != nil {
		if errors.Is(err, resolve.ErrApprovalRejected) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "approval rejected"})
			return
		}
		a.logger.Error(r.Context(), err, "approval failed", "incident_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	tweaks := req.Tweaks
	if tweaks == nil {
		tweaks = map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "approved",
		"incident_id": id,
		"tweaks":      tweaks,
	})
}
