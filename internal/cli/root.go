// Package cli implements the agent-coord CLI commands. Each command renders
// one coordination operation as JSON for the agent-facing tool layer.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/config"
	"github.com/memfleet/agent-coord/internal/ratelimit"
	"github.com/memfleet/agent-coord/internal/store"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "agent-coord",
	Short: "Coordination core for shared agent memory",
	Long:  "Write admission and coordination for a shared agent memory store: claims, capacity checks, rate limiting, session handoff, and memory health.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: $AGENT_COORD_CONFIG or ~/.agent-coord/config.yaml)")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("AGENT_COORD_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newStore(cfg config.Config) store.Store {
	return store.NewClient(cfg.ServerURL, cfg.Token, cfg.Org, cfg.Project, newLogger())
}

// newLimiter builds the per-process write counter. CLI invocations are
// separate processes, so each starts fresh; long-lived hosts embed the
// packages directly and keep one counter per session.
func newLimiter(cfg config.Config) *ratelimit.Counter {
	return ratelimit.New(cfg.RateLimit)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
