// Package config loads the agent-coord configuration file and environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds connection and policy settings for the coordination core.
type Config struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
	Org       string `yaml:"org"`
	Project   string `yaml:"project"`

	// RateLimit is the per-process write-class call ceiling.
	RateLimit int `yaml:"rate_limit"`
	// ClaimTTLMinutes is the default claim lifetime.
	ClaimTTLMinutes int `yaml:"claim_ttl_minutes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:       "https://api.memfleet.dev",
		RateLimit:       100,
		ClaimTTLMinutes: 30,
	}
}

// Path returns the config file location: $AGENT_COORD_CONFIG or
// ~/.agent-coord/config.yaml.
func Path() string {
	if env := os.Getenv("AGENT_COORD_CONFIG"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agent-coord", "config.yaml")
}

// Load reads the config file at path (a missing file is fine) and applies
// environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AGENT_COORD_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("AGENT_COORD_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("AGENT_COORD_ORG"); v != "" {
		cfg.Org = v
	}
	if v := os.Getenv("AGENT_COORD_PROJECT"); v != "" {
		cfg.Project = v
	}
}
