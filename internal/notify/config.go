package notify

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported notifier types.
	TypeWebhook = "webhook"

	webhookDefaultMethod         = "POST"
	webhookDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the notifiers configuration file.
type configFile struct {
	Notifiers []NotifierConfig `yaml:"notifiers"`
}

// NotifierConfig represents a single notifier entry declared in the config file.
type NotifierConfig struct {
	ID      string         `yaml:"id"`
	Type    string         `yaml:"type"`
	Enabled *bool          `yaml:"enabled"`
	Webhook *WebhookConfig `yaml:"webhook"`
}

// WebhookConfig holds HTTP sink settings.
type WebhookConfig struct {
	URL            string            `yaml:"url"`
	Method         string            `yaml:"method"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

// LoadConfigs reads and validates the notifiers file, returning only the
// enabled entries.
func LoadConfigs(path string) ([]NotifierConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("notifiers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notifiers file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode notifiers file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Notifiers))
	enabled := make([]NotifierConfig, 0, len(file.Notifiers))
	for i := range file.Notifiers {
		cfg := sanitizeConfig(file.Notifiers[i])
		if err := validateConfig(cfg); err != nil {
			return nil, fmt.Errorf("notifiers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate notifier id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		if *cfg.Enabled {
			enabled = append(enabled, cfg)
		}
	}

	return enabled, nil
}

// BuildAll constructs notifiers from the given configs.
func BuildAll(cfgs []NotifierConfig) ([]Notifier, error) {
	notifiers := make([]Notifier, 0, len(cfgs))
	for _, cfg := range cfgs {
		switch cfg.Type {
		case TypeWebhook:
			n, err := newWebhookNotifier(cfg)
			if err != nil {
				return nil, fmt.Errorf("build notifier %q: %w", cfg.ID, err)
			}
			notifiers = append(notifiers, n)
		default:
			return nil, fmt.Errorf("unsupported notifier type %q", cfg.Type)
		}
	}
	return notifiers, nil
}

// sanitizeConfig trims and normalizes the notifier config fields.
func sanitizeConfig(cfg NotifierConfig) NotifierConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.Webhook != nil {
		c := *cfg.Webhook
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = webhookDefaultMethod
		}
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = webhookDefaultTimeoutSeconds
		}
		cfg.Webhook = &c
	}

	return cfg
}

// validateConfig checks that required fields are present.
func validateConfig(cfg NotifierConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.Type == "" {
		return fmt.Errorf("type is required for notifier %q", cfg.ID)
	}
	if cfg.Type == TypeWebhook {
		if cfg.Webhook == nil {
			return fmt.Errorf("notifier %q missing webhook configuration", cfg.ID)
		}
		if cfg.Webhook.URL == "" {
			return fmt.Errorf("notifier %q missing webhook url", cfg.ID)
		}
	}
	return nil
}
