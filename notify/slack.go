// Package notify delivers drift notifications to a Slack-compatible
// webhook. Both drift and no-drift outcomes are notified so operators see
// confirmation of checks as well as alerts.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/infrasync/driftguard/secrets"
	"github.com/infrasync/driftguard/telemetry"
)

// Payload is a Slack block-kit message.
type Payload struct {
	Blocks []Block `json:"blocks"`
}

// Block is one block-kit block. Only the fields used by the block's type
// are populated.
type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Fields   []Text    `json:"fields,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Text is a block-kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Element is a block-kit action element (button).
type Element struct {
	Type string `json:"type"`
	Text Text   `json:"text"`
	URL  string `json:"url"`
}

// PayloadOptions carry the fields of a drift notification.
type PayloadOptions struct {
	Title        string
	ResourceID   string
	ResourceType string
	ChangeType   string
	Status       string
	DetectedAt   string
	DetailURL    string
}

// BuildPayload assembles the notification: a title section, a fixed-order
// fields block, and an optional button linking to the run detail page.
func BuildPayload(opts PayloadOptions) Payload {
	blocks := []Block{
		{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: fmt.Sprintf("*%s*", opts.Title)},
		},
		{
			Type: "section",
			Fields: []Text{
				{Type: "mrkdwn", Text: "*Resource ID:*\n" + opts.ResourceID},
				{Type: "mrkdwn", Text: "*Resource Type:*\n" + opts.ResourceType},
				{Type: "mrkdwn", Text: "*Change Type:*\n" + opts.ChangeType},
				{Type: "mrkdwn", Text: "*Status:*\n" + opts.Status},
				{Type: "mrkdwn", Text: "*Detected At:*\n" + opts.DetectedAt},
			},
		},
	}

	if opts.DetailURL != "" {
		blocks = append(blocks, Block{
			Type: "actions",
			Elements: []Element{
				{
					Type: "button",
					Text: Text{Type: "plain_text", Text: "View in Terraform Cloud"},
					URL:  opts.DetailURL,
				},
			},
		})
	}

	return Payload{Blocks: blocks}
}

// Notifier posts payloads to a webhook whose URL is stored in the secret
// store. The URL is resolved on first send and cached for the notifier's
// lifetime.
type Notifier struct {
	httpClient      *http.Client
	secrets         secrets.Source
	webhookSecretID string
	logger          *telemetry.Logger

	webhookURL string
}

// NewNotifier creates a Notifier. The webhook URL is not fetched until
// first use.
func NewNotifier(source secrets.Source, webhookSecretID string) *Notifier {
	return &Notifier{
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		secrets:         source,
		webhookSecretID: webhookSecretID,
		logger:          telemetry.NewLogger("slack-notifier"),
	}
}

// Send delivers one payload. A non-2xx response or unreachable endpoint is
// a fatal delivery error.
func (n *Notifier) Send(ctx context.Context, payload Payload) error {
	webhook, err := n.resolveWebhook(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(detail))
	}

	n.logger.WithContext(ctx).Info().
		Int("blocks", len(payload.Blocks)).
		Msg("notification delivered")
	return nil
}

func (n *Notifier) resolveWebhook(ctx context.Context) (string, error) {
	if n.webhookURL != "" {
		return n.webhookURL, nil
	}

	url, err := n.secrets.Resolve(ctx, n.webhookSecretID)
	if err != nil {
		return "", fmt.Errorf("resolve webhook url: %w", err)
	}

	n.webhookURL = url
	return n.webhookURL, nil
}
