package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dkoval/newsherald/pkg/classify"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  []SourceConfig `yaml:"sources" validate:"dive"`
	Classify ClassifyConfig `yaml:"classify"`
	Push     PushConfig     `yaml:"push"`
	Summary  SummaryConfig  `yaml:"summary"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LoggingConfig configures the console logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// ScheduleConfig configures poll cadence and fetch bounds.
type ScheduleConfig struct {
	PollInterval string `yaml:"poll_interval"`
	FetchTimeout string `yaml:"fetch_timeout"`
	MaxInFlight  int    `yaml:"max_in_flight" validate:"gte=0"`
	DedupTTL     string `yaml:"dedup_ttl"`
}

// ParsePollInterval returns the poll interval as time.Duration.
func (s ScheduleConfig) ParsePollInterval() time.Duration {
	d, err := time.ParseDuration(s.PollInterval)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ParseFetchTimeout returns the per-source fetch timeout.
func (s ScheduleConfig) ParseFetchTimeout() time.Duration {
	d, err := time.ParseDuration(s.FetchTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ParseDedupTTL returns the dedup retention window.
func (s ScheduleConfig) ParseDedupTTL() time.Duration {
	d, err := time.ParseDuration(s.DedupTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// SourceConfig seeds one feed source at startup.
type SourceConfig struct {
	Name         string `yaml:"name" validate:"required"`
	URL          string `yaml:"url" validate:"required,url"`
	Category     string `yaml:"category"`
	Priority     int    `yaml:"priority"`
	PollInterval int    `yaml:"poll_interval_secs"`
}

// ClassifyConfig overrides the default classifier rule data. Lists
// are loaded once here and immutable afterwards.
type ClassifyConfig struct {
	UrgencyKeywords   []classify.LocaleKeywords `yaml:"urgency_keywords"`
	AuthoritySources  []string                  `yaml:"authority_sources"`
	ExchangeSources   []string                  `yaml:"exchange_sources"`
	AuthorityPatterns []string                  `yaml:"authority_patterns"`
}

// PushConfig configures the per-user push channels.
type PushConfig struct {
	Telegram    TelegramConfig `yaml:"telegram"`
	Webhook     WebhookConfig  `yaml:"webhook"`
	MaxInFlight int            `yaml:"max_in_flight" validate:"gte=0"`
}

// TelegramConfig for Telegram bot push delivery.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// WebhookConfig for generic webhook push delivery.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"omitempty,url"`
	Secret  string `yaml:"secret"`
}

// SummaryConfig configures the optional LLM digest summarizer.
type SummaryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider" validate:"omitempty,oneof=openai anthropic"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./newsherald.db"},
		Logging:  LoggingConfig{Level: "info"},
		Schedule: ScheduleConfig{
			PollInterval: "5m",
			FetchTimeout: "30s",
			MaxInFlight:  8,
			DedupTTL:     "24h",
		},
		Push:    PushConfig{MaxInFlight: 16},
		Summary: SummaryConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Server:  ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file, applies env var
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEWSHERALD_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Push.Telegram.Token = v
		cfg.Push.Telegram.Enabled = true
	}
	if v := os.Getenv("PUSH_WEBHOOK_URL"); v != "" {
		cfg.Push.Webhook.URL = v
		cfg.Push.Webhook.Enabled = true
	}
	if v := os.Getenv("PUSH_WEBHOOK_SECRET"); v != "" {
		cfg.Push.Webhook.Secret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Summary.APIKey = v
		cfg.Summary.Enabled = true
		cfg.Summary.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Summary.APIKey = v
		cfg.Summary.Enabled = true
		cfg.Summary.Provider = "anthropic"
	}
}
