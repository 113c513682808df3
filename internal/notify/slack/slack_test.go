package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/remedy/internal/resolve"
)

func pendingOutcome() *resolve.Outcome {
	return &resolve.Outcome{
		IncidentID: "inc-1",
		Status:     resolve.StatusPendingHuman,
		Resolution: resolve.Resolution{
			Issue:      "LLM unavailable",
			RootCause:  "Rate limited or service error",
			Resolution: "Manual investigation required",
			Confidence: 0.0,
		},
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode webhook payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Send(context.Background(), pendingOutcome()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok || len(blocks) == 0 {
		t.Fatalf("payload has no blocks: %v", got)
	}

	raw, _ := json.Marshal(got)
	for _, want := range []string{"Incident Needs Review", "pending_human", "inc-1", "LLM unavailable"} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestSendNoWebhookConfigured(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.Send(context.Background(), pendingOutcome()); err != nil {
		t.Errorf("Send with empty webhook = %v, want nil", err)
	}
}

func TestSendWebhookFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.Send(context.Background(), pendingOutcome()); err == nil {
		t.Error("expected error for failed webhook")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	long := strings.Repeat("x", 200)
	got := truncate(long, 50)
	if len(got) != 50 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate = %q (len %d)", got, len(got))
	}
}
