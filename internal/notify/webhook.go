package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type webhookNotifier struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
}

func newWebhookNotifier(cfg NotifierConfig) (Notifier, error) {
	if cfg.Webhook == nil {
		return nil, fmt.Errorf("notifier %q missing webhook configuration", cfg.ID)
	}

	client := resty.New()
	client.SetTimeout(time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second)

	return &webhookNotifier{
		id:      cfg.ID,
		method:  cfg.Webhook.Method,
		url:     cfg.Webhook.URL,
		headers: cfg.Webhook.Headers,
		client:  client,
	}, nil
}

func (w *webhookNotifier) ID() string   { return w.id }
func (w *webhookNotifier) Type() string { return TypeWebhook }

func (w *webhookNotifier) Notify(ctx context.Context, evt Event) error {
	req := w.client.R().
		SetContext(ctx).
		SetBody(evt)

	if len(w.headers) > 0 {
		req.SetHeaders(w.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		snippet := bodySnippet(resp.Body())
		return fmt.Errorf("webhook response status %d: %s", resp.StatusCode(), snippet)
	}
	return nil
}

func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
