package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimit != 100 {
		t.Errorf("expected default rate limit 100, got %d", cfg.RateLimit)
	}
	if cfg.ClaimTTLMinutes != 30 {
		t.Errorf("expected default claim ttl 30, got %d", cfg.ClaimTTLMinutes)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server_url: http://localhost:8787\norg: acme\nproject: widgets\nrate_limit: 50\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8787" {
		t.Errorf("unexpected server url %q", cfg.ServerURL)
	}
	if cfg.Org != "acme" || cfg.Project != "widgets" {
		t.Errorf("unexpected scope %q/%q", cfg.Org, cfg.Project)
	}
	if cfg.RateLimit != 50 {
		t.Errorf("expected rate limit 50, got %d", cfg.RateLimit)
	}
	// Values the file omits keep their defaults.
	if cfg.ClaimTTLMinutes != 30 {
		t.Errorf("expected default claim ttl, got %d", cfg.ClaimTTLMinutes)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("token: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AGENT_COORD_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token != "from-env" {
		t.Errorf("env must win over file, got %q", cfg.Token)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\t not yaml ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
