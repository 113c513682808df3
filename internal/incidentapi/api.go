// Package incidentapi exposes the resolution pipeline over HTTP.
package incidentapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/resolve"
)

// ResolutionService defines the business operations incidentapi needs.
type ResolutionService interface {
	Process(ctx context.Context, al *alert.Alert) (*resolve.Outcome, error)
	Approve(ctx context.Context, incidentID string, approved bool) error
	AuditTrail(ctx context.Context, incidentID string) ([]resolve.Record, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    ResolutionService
}

// New creates a new API handler.
func New(logger log.Logger, svc ResolutionService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("resolution service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/alerts", a.handleProcessAlert)
		r.Post("/incidents/{id}/approve", a.handleApprove)
		r.Get("/incidents/{id}", a.handleAuditTrail)
	})
}

func (a *API) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("remedy.incident.id", id))

	records, err := a.svc.AuditTrail(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to read audit trail", "incident_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"incident_id": id,
		"records":     records,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func isValidationError(err error) bool {
	return errors.Is(err, alert.ErrBlankDescription) || errors.Is(err, alert.ErrInvalidSeverity)
}
