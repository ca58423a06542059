package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
logger:
  level: debug
http_client:
  retry_count: 3
  timeout: 10s
scanner:
  threads: 8
  suppress_commented: true
refactor:
  project_prefixes:
    - LegacyApp
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logger.Level)
	}
	if cfg.HTTPClient.RetryCount != 3 {
		t.Errorf("expected retry_count 3, got %d", cfg.HTTPClient.RetryCount)
	}
	if cfg.HTTPClient.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.HTTPClient.Timeout)
	}
	if !cfg.Scanner.SuppressCommented {
		t.Error("expected suppress_commented to be set")
	}
	if len(cfg.Refactor.ProjectPrefixes) != 1 || cfg.Refactor.ProjectPrefixes[0] != "LegacyApp" {
		t.Errorf("unexpected project prefixes: %v", cfg.Refactor.ProjectPrefixes)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := Default()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	cfg.HTTPClient.RetryCount = 99
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for out-of-range retry_count")
	}

	cfg = Default()
	cfg.Scanner.Extensions = []string{"html"}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for extension without dot")
	}

	cfg = Default()
	cfg.HTTPClient.Proxy = Proxy{Host: "proxy.local", Port: 3128}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("valid proxy rejected: %v", err)
	}
	if cfg.HTTPClient.Proxy.Host != "http://proxy.local" {
		t.Errorf("expected scheme added to proxy host, got %q", cfg.HTTPClient.Proxy.Host)
	}
}
