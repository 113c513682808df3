package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/linnemanlabs/remedy/internal/resolve"
)

func TestPutAndList(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	first := &resolve.Record{
		IncidentID: "inc-1",
		Timestamp:  time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Resolution: resolve.Resolution{Issue: "disk full", Confidence: 0.85},
	}
	second := &resolve.Record{
		IncidentID:        "inc-1",
		Timestamp:         time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC),
		Resolution:        resolve.Resolution{Issue: "disk full again", Confidence: 0.4},
		HumanIntervention: true,
	}
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("Put: %v", err)
	}

	recs, err := s.List(ctx, "inc-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].Resolution.Issue != "disk full again" {
		t.Errorf("newest first violated: %q", recs[0].Resolution.Issue)
	}
	if !recs[0].HumanIntervention {
		t.Error("human_intervention lost in round-trip")
	}
}

func TestConfidenceRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, &resolve.Record{
		IncidentID: "inc-1",
		Resolution: resolve.Resolution{Confidence: 0.85},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	recs, err := s.List(ctx, "inc-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := recs[0].Resolution.Confidence; got != 0.85 {
		t.Errorf("confidence = %v, want exactly 0.85", got)
	}
}

func TestListUnknownIncident(t *testing.T) {
	t.Parallel()

	recs, err := New().List(context.Background(), "missing")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("records = %d, want 0", len(recs))
	}
}

func TestPutCopiesRecord(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	rec := &resolve.Record{IncidentID: "inc-1", Resolution: resolve.Resolution{Issue: "original"}}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec.Resolution.Issue = "mutated after put"

	recs, _ := s.List(ctx, "inc-1")
	if recs[0].Resolution.Issue != "original" {
		t.Error("stored record shares memory with the caller's record")
	}
}
