package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.BaseURL != "http://localhost:8000" {
		t.Errorf("service.base_url = %q", cfg.Service.BaseURL)
	}
	if cfg.Service.Timeout() != 30*time.Second {
		t.Errorf("service timeout = %v", cfg.Service.Timeout())
	}
	if cfg.Service.MaxRetries != 2 {
		t.Errorf("service.max_retries = %d", cfg.Service.MaxRetries)
	}
	if cfg.Cache.Backend != "json" {
		t.Errorf("cache.backend = %q", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL() != 30*24*time.Hour {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL())
	}
	if !cfg.LLM.TestMode() {
		t.Error("test mode should be on without an API key")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Errorf("log config = %+v", cfg.Log)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hercule.yaml")
	content := []byte(`
service:
  base_url: http://analysis.internal:9000
  timeout_ms: 5000
cache:
  backend: sqlite
  ttl_days: 7
log:
  level: debug
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "http://analysis.internal:9000" {
		t.Errorf("service.base_url = %q", cfg.Service.BaseURL)
	}
	if cfg.Service.Timeout() != 5*time.Second {
		t.Errorf("service timeout = %v", cfg.Service.Timeout())
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("cache.backend = %q", cfg.Cache.Backend)
	}
	if cfg.Cache.TTLDays != 7 {
		t.Errorf("cache.ttl_days = %d", cfg.Cache.TTLDays)
	}
	// Unset keys keep their defaults.
	if cfg.Service.MaxRetries != 2 {
		t.Errorf("service.max_retries = %d", cfg.Service.MaxRetries)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HERCULE_SERVICE_BASE_URL", "http://override:8001")
	t.Setenv("HERCULE_CACHE_TTL_DAYS", "14")
	t.Setenv("HERCULE_LLM_API_KEY", "sk-test-1234567890abcdefghij")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "http://override:8001" {
		t.Errorf("service.base_url = %q", cfg.Service.BaseURL)
	}
	if cfg.Cache.TTLDays != 14 {
		t.Errorf("cache.ttl_days = %d", cfg.Cache.TTLDays)
	}
	if cfg.LLM.TestMode() {
		t.Error("test mode should be off with an API key")
	}
}

func TestLoadBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("service: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := NewLoader().WithConfigFile(path).Load(); err == nil {
		t.Fatal("Load succeeded on malformed YAML")
	}
}
