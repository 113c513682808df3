package resolve

import "testing"

func TestDefaultResolution(t *testing.T) {
	t.Parallel()

	r := DefaultResolution()
	if r.Issue != "Unknown" || r.RootCause != "Unknown" || r.Impact != "Unknown" {
		t.Errorf("defaults = %+v", r)
	}
	if r.Resolution != "Manual investigation required" {
		t.Errorf("resolution = %q", r.Resolution)
	}
	if r.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", r.Confidence)
	}
	if r.Executed {
		t.Error("executed should default to false")
	}
}

func TestApplyFields(t *testing.T) {
	t.Parallel()

	r := DefaultResolution()
	applyFields(&r, map[string]any{
		"issue":      "disk full",
		"root_cause": "log rotation stopped",
		"impact":     "writes failing",
		"resolution": "rotate and compress logs",
		"confidence": 0.92,
	})

	if r.Issue != "disk full" {
		t.Errorf("issue = %q", r.Issue)
	}
	if r.Confidence != 0.92 {
		t.Errorf("confidence = %v", r.Confidence)
	}
	if r.Executed {
		t.Error("executed must stay false when absent")
	}
}

func TestApplyFieldsLaterStageWins(t *testing.T) {
	t.Parallel()

	r := DefaultResolution()
	applyFields(&r, map[string]any{"issue": "analyzer view", "confidence": 0.85})
	applyFields(&r, map[string]any{"executed": true, "command_id": "cmd-7", "confidence": 0.9})

	if r.Issue != "analyzer view" {
		t.Errorf("issue = %q, earlier field should survive", r.Issue)
	}
	if !r.Executed || r.CommandID != "cmd-7" {
		t.Errorf("executor overlay lost: %+v", r)
	}
	if r.Confidence != 0.9 {
		t.Errorf("confidence = %v, later stage should win", r.Confidence)
	}
}

func TestApplyFieldsSkipsMalformed(t *testing.T) {
	t.Parallel()

	r := DefaultResolution()
	applyFields(&r, map[string]any{
		"issue":      42,
		"confidence": "high",
		"executed":   "yes",
		"unknown":    "ignored",
	})

	if r.Issue != "Unknown" {
		t.Errorf("issue = %q, malformed value must not apply", r.Issue)
	}
	if r.Confidence != 0.7 {
		t.Errorf("confidence = %v", r.Confidence)
	}
	if r.Executed {
		t.Error("executed must not flip on a non-bool")
	}
}

func TestFlattenCommandID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "cmd-1", "cmd-1"},
		{"list", []any{"cmd-1", "cmd-2", "cmd-3"}, "cmd-1,cmd-2,cmd-3"},
		{"empty list", []any{}, ""},
		{"mixed list", []any{"cmd-1", 2}, "cmd-1,2"},
		{"number", 7, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := flattenCommandID(tt.in); got != tt.want {
				t.Errorf("flattenCommandID(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		confidence     float64
		executed       bool
		wantStatus     Status
		wantConfidence float64
	}{
		{"executed raises confidence", 0.6, true, StatusResolved, 0.95},
		{"executed keeps higher confidence", 0.99, true, StatusResolved, 0.99},
		{"low confidence escalates", 0.7, false, StatusPendingHuman, 0.7},
		{"high confidence resolves", 0.85, false, StatusResolved, 0.85},
		{"at threshold resolves", 0.8, false, StatusResolved, 0.8},
		{"zero confidence escalates", 0.0, false, StatusPendingHuman, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := &Outcome{Resolution: Resolution{Confidence: tt.confidence, Executed: tt.executed}}
			finalize(o, 0.8)

			if o.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", o.Status, tt.wantStatus)
			}
			if o.Resolution.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", o.Resolution.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestDecimalString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0.85, "0.85"},
		{0.7, "0.7"},
		{0.95, "0.95"},
		{0, "0"},
		{1, "1"},
	}

	for _, tt := range tests {
		if got := DecimalString(tt.in); got != tt.want {
			t.Errorf("DecimalString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
