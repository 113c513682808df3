// Package memstore provides an in-memory implementation of resolve.Sink.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/linnemanlabs/remedy/internal/resolve"
)

// Sink holds audit records in memory. Suitable for dev/testing. Records
// are stored JSON-encoded so reads exercise the same round-trip as a
// durable sink.
type Sink struct {
	mu      sync.RWMutex
	records map[string][][]byte // incident ID -> encoded records, oldest first
}

// New initializes a new in-memory Sink.
func New() *Sink {
	return &Sink{records: make(map[string][][]byte)}
}

// Put appends a record to the incident's trail.
func (s *Sink) Put(_ context.Context, rec *resolve.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("memstore: encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.IncidentID] = append(s.records[rec.IncidentID], data)
	return nil
}

// List returns the incident's records, newest first.
func (s *Sink) List(_ context.Context, incidentID string) ([]resolve.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	encoded := s.records[incidentID]
	out := make([]resolve.Record, 0, len(encoded))
	for i := len(encoded) - 1; i >= 0; i-- {
		var rec resolve.Record
		if err := json.Unmarshal(encoded[i], &rec); err != nil {
			return nil, fmt.Errorf("memstore: decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
