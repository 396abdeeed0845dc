package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIURL            string        `mapstructure:"api_url"`
	APICertFile       string        `mapstructure:"api_cert_file"`
	APITimeoutSeconds int64         `mapstructure:"api_timeout_seconds"`
	APITimeout        time.Duration `mapstructure:"-"`
	APIInsecure       bool          `mapstructure:"api_insecure"`
	APIPooled         bool          `mapstructure:"api_pooled"`

	JournalPath   string `mapstructure:"journal_path"`
	NotifiersFile string `mapstructure:"notifiers_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "outline-admin")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_url", "")
	v.SetDefault("api_cert_file", "")
	v.SetDefault("api_timeout_seconds", 15)
	v.SetDefault("api_insecure", false)
	v.SetDefault("api_pooled", false)
	v.SetDefault("journal_path", "")
	v.SetDefault("notifiers_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.APITimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid api_timeout_seconds (must not be negative)")
	}
	cfg.APITimeout = time.Duration(cfg.APITimeoutSeconds) * time.Second

	return &cfg, nil
}
