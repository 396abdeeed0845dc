package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestWebhookNotifierSuccess(t *testing.T) {
	var received bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Fatalf("missing header, got %s", got)
		}
		var evt Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.Operation != "create" || evt.KeyID != "3" {
			t.Fatalf("unexpected event %+v", evt)
		}
		received = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := newWebhookNotifier(NotifierConfig{
		ID:   "hook",
		Type: TypeWebhook,
		Webhook: &WebhookConfig{
			URL:            srv.URL,
			Method:         http.MethodPost,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	})
	if err != nil {
		t.Fatalf("newWebhookNotifier: %v", err)
	}

	if err := n.Notify(context.Background(), NewEvent("create", "https://host:443/p", "3", "alice")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !received {
		t.Fatalf("server did not receive event")
	}
}

func TestWebhookNotifierErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	n, err := newWebhookNotifier(NotifierConfig{
		ID:   "hook",
		Type: TypeWebhook,
		Webhook: &WebhookConfig{
			URL:            srv.URL,
			Method:         http.MethodPost,
			TimeoutSeconds: 1,
		},
	})
	if err != nil {
		t.Fatalf("newWebhookNotifier: %v", err)
	}

	if err := n.Notify(context.Background(), Event{}); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestLoadConfigs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notifiers.yaml")
	content := `notifiers:
  - id: ops-hook
    type: webhook
    webhook:
      url: https://hooks.example.com/outline
  - id: muted
    type: webhook
    enabled: false
    webhook:
      url: https://hooks.example.com/muted
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 1 {
		t.Fatalf("got %d enabled notifiers, want disabled entries filtered", len(cfgs))
	}
	cfg := cfgs[0]
	if cfg.ID != "ops-hook" {
		t.Errorf("id = %q", cfg.ID)
	}
	if cfg.Webhook.Method != "POST" {
		t.Errorf("method default = %q", cfg.Webhook.Method)
	}
	if cfg.Webhook.TimeoutSeconds != webhookDefaultTimeoutSeconds {
		t.Errorf("timeout default = %d", cfg.Webhook.TimeoutSeconds)
	}
}

func TestLoadConfigsRejectsDuplicatesAndMissingURL(t *testing.T) {
	dir := t.TempDir()

	dup := filepath.Join(dir, "dup.yaml")
	if err := os.WriteFile(dup, []byte(`notifiers:
  - id: a
    type: webhook
    webhook: {url: https://x}
  - id: a
    type: webhook
    webhook: {url: https://y}
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfigs(dup); err == nil {
		t.Fatal("expected duplicate id error")
	}

	missing := filepath.Join(dir, "missing.yaml")
	if err := os.WriteFile(missing, []byte(`notifiers:
  - id: a
    type: webhook
    webhook: {url: ""}
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfigs(missing); err == nil {
		t.Fatal("expected missing url error")
	}
}
