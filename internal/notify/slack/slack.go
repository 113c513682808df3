// Package slack sends escalation notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/remedy/internal/resolve"
)

const (
	maxFieldLen = 3000
	httpTimeout = 10 * time.Second
)

// Notifier posts escalated outcomes to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts an outcome to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, o *resolve.Outcome) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(o))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(o *resolve.Outcome) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(o),
			{"type": "divider"},
			fieldsBlock(o),
			{"type": "divider"},
			resolutionBlock(o),
			{"type": "divider"},
			contextBlock(o),
		},
	}
}

func headerBlock(o *resolve.Outcome) map[string]any {
	title := "Incident Needs Review"
	if o.Status == resolve.StatusResolved {
		title = "Incident Resolved"
	}
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s: %s", statusEmoji(o.Status), title, truncate(o.Resolution.Issue, 100)),
		},
	}
}

func fieldsBlock(o *resolve.Outcome) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", o.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.2f", o.Resolution.Confidence),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Executed:* %t", o.Resolution.Executed),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Root cause:* %s", truncate(o.Resolution.RootCause, 200)),
		},
	}
	if o.Resolution.CommandID != "" {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Command:* %s", o.Resolution.CommandID),
		})
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func resolutionBlock(o *resolve.Outcome) map[string]any {
	text := truncate(o.Resolution.Resolution, maxFieldLen)
	if text == "" {
		text = "_No resolution available._"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Resolution*\n\n%s", text),
		},
	}
}

func contextBlock(o *resolve.Outcome) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("remedy • incident %s • %s", o.IncidentID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
		},
	}
	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func statusEmoji(status resolve.Status) string {
	if status == resolve.StatusPendingHuman {
		return "\U0001f7e1" // yellow circle
	}
	return "\U0001f7e2" // green circle
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
