package app

import (
	"context"
	"fmt"
	"os"

	"github.com/outline-tools/outline-admin/internal/config"
	"github.com/outline-tools/outline-admin/internal/journal"
	"github.com/outline-tools/outline-admin/internal/logger"
	"github.com/outline-tools/outline-admin/internal/notify"
	"github.com/outline-tools/outline-admin/pkg/outline"
	"github.com/outline-tools/outline-admin/pkg/transport"
)

// Admin ties the Outline client to the local key journal and the notifier
// fanout. Successful mutations are journaled and announced; read operations
// refresh the journal opportunistically.
type Admin struct {
	cfg     *config.Config
	client  *outline.Client
	journal journal.Journal
	fanout  *notify.Fanout
	log     logger.Logger
}

// NewAdmin builds the admin runtime from config.
func NewAdmin(cfg *config.Config, log logger.Logger) (*Admin, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api_url is not configured")
	}

	var certPEM []byte
	if cfg.APICertFile != "" {
		pem, err := os.ReadFile(cfg.APICertFile)
		if err != nil {
			return nil, fmt.Errorf("read api cert file: %w", err)
		}
		certPEM = pem
	}

	opts := outline.Options{
		Timeout:        cfg.APITimeout,
		Insecure:       cfg.APIInsecure,
		TrustAnchorPEM: certPEM,
		Logger:         logger.S,
	}
	if cfg.APIPooled {
		pooled, err := transport.NewPooled(transport.Options{
			Timeout:        cfg.APITimeout,
			Insecure:       cfg.APIInsecure,
			TrustAnchorPEM: certPEM,
		})
		if err != nil {
			return nil, fmt.Errorf("build pooled transport: %w", err)
		}
		opts.Transport = pooled
	}

	client, err := outline.New(cfg.APIURL, opts)
	if err != nil {
		return nil, fmt.Errorf("build outline client: %w", err)
	}

	jnl, err := journal.New(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}

	fanout := notify.NewFanout(nil)
	if cfg.NotifiersFile != "" {
		cfgs, err := notify.LoadConfigs(cfg.NotifiersFile)
		if err != nil {
			return nil, fmt.Errorf("load notifiers: %w", err)
		}
		notifiers, err := notify.BuildAll(cfgs)
		if err != nil {
			return nil, fmt.Errorf("build notifiers: %w", err)
		}
		fanout = notify.NewFanout(notifiers)
		log.InfoObj("notifiers loaded", "notifiers_meta", map[string]any{
			"count": fanout.Size(),
		})
	}

	return &Admin{
		cfg:     cfg,
		client:  client,
		journal: jnl,
		fanout:  fanout,
		log:     log,
	}, nil
}

// Close releases the client session and the journal. Failures here are
// logged, never escalated.
func (a *Admin) Close() {
	if a == nil {
		return
	}
	if err := a.client.Close(); err != nil {
		a.log.WarnObj("close client session", "error", err.Error())
	}
	if err := a.journal.Close(); err != nil {
		a.log.WarnObj("close journal", "error", err.Error())
	}
}

// ListKeys fetches all access keys and refreshes the journal with them.
func (a *Admin) ListKeys(ctx context.Context) ([]byte, error) {
	raw, err := a.client.AccessKeys(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := outline.ParseAccessKeys(raw)
	if err != nil {
		a.log.WarnObj("journal refresh skipped", "error", err.Error())
		return raw, nil
	}
	for _, key := range keys {
		if err := a.journal.RecordKey(journal.Entry{ID: key.ID, Name: key.Name, Operation: "list"}); err != nil {
			a.log.WarnObj("journal record failed", "error", err.Error())
			break
		}
	}
	return raw, nil
}

// GetKey fetches one access key by id.
func (a *Admin) GetKey(ctx context.Context, id string) ([]byte, error) {
	return a.client.AccessKey(ctx, id)
}

// CreateKey creates an access key, journals it and notifies sinks.
func (a *Admin) CreateKey(ctx context.Context, params outline.KeyParams) ([]byte, error) {
	raw, err := a.client.CreateAccessKey(ctx, params)
	if err != nil {
		return nil, err
	}
	key, err := outline.ParseAccessKey(raw)
	if err == nil {
		a.record(ctx, "create", key.ID, key.Name)
	}
	return raw, nil
}

// UpdateKey updates an access key, journals it and notifies sinks.
func (a *Admin) UpdateKey(ctx context.Context, id string, params outline.KeyParams) ([]byte, error) {
	raw, err := a.client.UpdateAccessKey(ctx, id, params)
	if err != nil {
		return nil, err
	}
	name := ""
	if key, err := outline.ParseAccessKey(raw); err == nil {
		name = key.Name
	}
	a.record(ctx, "update", id, name)
	return raw, nil
}

// DeleteKey removes an access key, forgets it and notifies sinks.
func (a *Admin) DeleteKey(ctx context.Context, id string) error {
	if err := a.client.DeleteAccessKey(ctx, id); err != nil {
		return err
	}
	if err := a.journal.DeleteKey(id); err != nil {
		a.log.WarnObj("journal delete failed", "error", err.Error())
	}
	a.announce(ctx, "delete", id, "")
	return nil
}

// SetLimit caps the key's transfer volume.
func (a *Admin) SetLimit(ctx context.Context, id string, limitBytes int64) error {
	if err := a.client.SetDataLimit(ctx, id, limitBytes); err != nil {
		return err
	}
	a.announce(ctx, "set-limit", id, "")
	return nil
}

// ClearLimit lifts the key's transfer cap.
func (a *Admin) ClearLimit(ctx context.Context, id string) error {
	if err := a.client.RemoveDataLimit(ctx, id); err != nil {
		return err
	}
	a.announce(ctx, "clear-limit", id, "")
	return nil
}

// ServerInfo fetches the server record.
func (a *Admin) ServerInfo(ctx context.Context) ([]byte, error) {
	return a.client.Server(ctx)
}

// RenameServer sets the server's display name.
func (a *Admin) RenameServer(ctx context.Context, name string) error {
	if err := a.client.RenameServer(ctx, name); err != nil {
		return err
	}
	a.announce(ctx, "rename-server", "", name)
	return nil
}

// Metrics fetches per-key transfer counters.
func (a *Admin) Metrics(ctx context.Context) ([]byte, error) {
	return a.client.TransferMetrics(ctx)
}

// OfflineKeys lists the journaled keys without touching the API.
func (a *Admin) OfflineKeys() ([]journal.Entry, error) {
	return a.journal.Keys()
}

// record journals a mutation and announces it.
func (a *Admin) record(ctx context.Context, operation, id, name string) {
	if err := a.journal.RecordKey(journal.Entry{ID: id, Name: name, Operation: operation}); err != nil {
		a.log.WarnObj("journal record failed", "error", err.Error())
	}
	a.announce(ctx, operation, id, name)
}

// announce fans the event out to notifiers; failures are logged only.
func (a *Admin) announce(ctx context.Context, operation, id, name string) {
	if a.fanout.Size() == 0 {
		return
	}
	evt := notify.NewEvent(operation, a.client.BaseURL(), id, name)
	if _, err := a.fanout.Notify(ctx, evt); err != nil {
		a.log.WarnObj("notify failed", "error", err.Error())
	}
}
