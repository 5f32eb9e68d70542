package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "./newsherald.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if got := cfg.Schedule.ParsePollInterval(); got != 5*time.Minute {
		t.Errorf("poll interval = %v", got)
	}
	if got := cfg.Schedule.ParseFetchTimeout(); got != 30*time.Second {
		t.Errorf("fetch timeout = %v", got)
	}
	if got := cfg.Schedule.ParseDedupTTL(); got != 24*time.Hour {
		t.Errorf("dedup ttl = %v", got)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/herald.db
logging:
  level: debug
schedule:
  poll_interval: 2m
  dedup_ttl: 48h
sources:
  - name: Example Wire
    url: https://example.com/rss
    category: regulation
    priority: 5
push:
  telegram:
    enabled: true
    token: tok-123
server:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/var/lib/herald.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if got := cfg.Schedule.ParsePollInterval(); got != 2*time.Minute {
		t.Errorf("poll interval = %v", got)
	}
	if got := cfg.Schedule.ParseDedupTTL(); got != 48*time.Hour {
		t.Errorf("dedup ttl = %v", got)
	}
	// Unset fields keep their defaults.
	if got := cfg.Schedule.ParseFetchTimeout(); got != 30*time.Second {
		t.Errorf("fetch timeout = %v", got)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name != "Example Wire" || cfg.Sources[0].Priority != 5 {
		t.Errorf("sources = %+v", cfg.Sources)
	}
	if !cfg.Push.Telegram.Enabled || cfg.Push.Telegram.Token != "tok-123" {
		t.Errorf("telegram = %+v", cfg.Push.Telegram)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEWSHERALD_DB_PATH", "/tmp/override.db")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if !cfg.Push.Telegram.Enabled || cfg.Push.Telegram.Token != "env-token" {
		t.Errorf("telegram = %+v", cfg.Push.Telegram)
	}
	if !cfg.Summary.Enabled || cfg.Summary.Provider != "anthropic" || cfg.Summary.APIKey != "sk-ant-test" {
		t.Errorf("summary = %+v", cfg.Summary)
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log level", "logging:\n  level: verbose\n"},
		{"source missing url", "sources:\n  - name: broken\n"},
		{"source bad url", "sources:\n  - name: broken\n    url: not-a-url\n"},
		{"bad summary provider", "summary:\n  provider: cohere\n"},
		{"port out of range", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
