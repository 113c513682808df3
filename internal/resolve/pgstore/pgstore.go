// Package pgstore provides a PostgreSQL implementation of resolve.Sink.
// Confidence values are stored in a NUMERIC column as exact decimal
// strings so they round-trip without binary float drift.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/remedy/internal/resolve"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/resolve/pgstore")

//go:embed schema.sql
var schema string

// Sink persists audit records in PostgreSQL. The table is append-only:
// records are inserted once and never updated or deleted.
type Sink struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Sink.
func New(ctx context.Context, pool *pgxpool.Pool) (*Sink, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Sink{pool: pool}, nil
}

// Put appends an audit record.
func (s *Sink) Put(ctx context.Context, rec *resolve.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	const query = `INSERT INTO audit_records
		(incident_id, ts, issue, root_cause, impact, resolution, confidence,
		 executed, command_id, note, trace, human_intervention)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	r := rec.Resolution
	_, err := s.pool.Exec(ctx, query,
		rec.IncidentID,
		rec.Timestamp,
		r.Issue,
		r.RootCause,
		r.Impact,
		r.Resolution,
		resolve.DecimalString(r.Confidence),
		r.Executed,
		r.CommandID,
		r.Note,
		rec.Trace,
		rec.HumanIntervention,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// List returns the incident's audit records, newest first.
func (s *Sink) List(ctx context.Context, incidentID string) ([]resolve.Record, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	const query = `SELECT incident_id, ts, issue, root_cause, impact, resolution,
		confidence::text, executed, command_id, note, trace, human_intervention
		FROM audit_records WHERE incident_id = $1 ORDER BY ts DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, incidentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []resolve.Record
	for rows.Next() {
		var (
			rec        resolve.Record
			confidence string
		)
		if err := rows.Scan(
			&rec.IncidentID,
			&rec.Timestamp,
			&rec.Resolution.Issue,
			&rec.Resolution.RootCause,
			&rec.Resolution.Impact,
			&rec.Resolution.Resolution,
			&confidence,
			&rec.Resolution.Executed,
			&rec.Resolution.CommandID,
			&rec.Resolution.Note,
			&rec.Trace,
			&rec.HumanIntervention,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Resolution.Confidence, err = strconv.ParseFloat(confidence, 64)
		if err != nil {
			return nil, fmt.Errorf("parse confidence %q: %w", confidence, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}
