package slack

import (
	"context"
	"errors"
	"log"

	goslack "github.com/slack-go/slack"
)

// Attachment colors
const (
	ColorGood   = "good"
	ColorDanger = "danger"
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("slack webhook URL not configured")

// Field is one entry in an alert's field table.
type Field struct {
	Title string
	Value string
	Short bool
}

// Notifier posts messages to a Slack incoming webhook. One outbound HTTP call
// per invocation; no retry, no queuing. A dropped notification is simply lost.
type Notifier struct {
	webhookURL string
}

// NewNotifier creates a Slack notifier for the given webhook URL. An empty
// URL produces a notifier that logs and drops every message.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{webhookURL: webhookURL}
}

// Notify sends an informational notification: the title as message text plus
// a single color-coded attachment carrying the body.
func (n *Notifier) Notify(ctx context.Context, title, message, color string) error {
	if color == "" {
		color = ColorGood
	}
	return n.post(ctx, title, &goslack.WebhookMessage{
		Text: title,
		Attachments: []goslack.Attachment{
			{Color: color, Text: message},
		},
	})
}

// Alert sends a high-priority alert: warning prefix, danger color, and an
// optional field table.
func (n *Notifier) Alert(ctx context.Context, title, message string, fields []Field) error {
	attachment := goslack.Attachment{
		Color: ColorDanger,
		Text:  message,
	}
	for _, f := range fields {
		attachment.Fields = append(attachment.Fields, goslack.AttachmentField{
			Title: f.Title,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return n.post(ctx, title, &goslack.WebhookMessage{
		Text:        "🚨 " + title,
		Attachments: []goslack.Attachment{attachment},
	})
}

func (n *Notifier) post(ctx context.Context, title string, msg *goslack.WebhookMessage) error {
	if n.webhookURL == "" {
		log.Printf("[slack] webhook not configured, dropping: %s", title)
		return ErrNotConfigured
	}
	if err := goslack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		log.Printf("[slack] post failed: %v (title: %s)", err, title)
		return err
	}
	return nil
}
