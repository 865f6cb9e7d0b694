package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/capacity"
	"github.com/memfleet/agent-coord/internal/model"
	"github.com/memfleet/agent-coord/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin. New non-expiring memories pass the capacity check first.",
		Run:   runPut,
	}

	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().IntP("priority", "p", 0, "Priority")
	cmd.Flags().String("meta", "", "JSON metadata")
	cmd.Flags().Duration("ttl", 0, "Expiry relative to now (0 = never)")

	cmd.MarkFlagRequired("key")

	RootCmd.AddCommand(cmd)
}

// putResponse is the structured admission outcome for a store attempt.
type putResponse struct {
	Stored   bool          `json:"stored"`
	Memory   *model.Memory `json:"memory,omitempty"`
	Warning  string        `json:"warning,omitempty"`
	Guidance string        `json:"guidance,omitempty"`
}

func runPut(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	tagsStr, _ := cmd.Flags().GetString("tags")
	priority, _ := cmd.Flags().GetInt("priority")
	metaStr, _ := cmd.Flags().GetString("meta")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	var meta map[string]any
	if metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
			exitErr("parse meta", err)
		}
	}

	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}

	cfg := loadConfig()
	s := newStore(cfg)
	ctx := cmd.Context()

	limiter := newLimiter(cfg)
	if allowed, warning := limiter.Check(); !allowed {
		printJSON(putResponse{Stored: false, Warning: warning})
		return
	}

	exists, err := memoryExists(ctx, s, key)
	if err != nil {
		exitErr("check key", err)
	}

	guidance := ""
	if !exists && expires == nil {
		dec, err := capacity.NewGovernor(s).Check(ctx)
		if err != nil {
			exitErr("capacity check", err)
		}
		if dec.IsFull {
			printJSON(putResponse{Stored: false, Guidance: dec.Guidance})
			return
		}
		if dec.IsSoftFull || dec.IsApproaching {
			guidance = dec.Guidance
		}
	}

	mem, err := s.Put(ctx, store.PutParams{
		Key:       key,
		Content:   strings.TrimSpace(content),
		Metadata:  meta,
		Tags:      splitList(tagsStr),
		Priority:  priority,
		ExpiresAt: expires,
	})
	if err != nil {
		exitErr("put", err)
	}
	limiter.Increment()

	printJSON(putResponse{Stored: true, Memory: mem, Guidance: guidance})
}

// memoryExists probes key existence with a point read. Only the exact key
// counts: a prefix match on a sibling key must not reclassify an update as a
// new write.
func memoryExists(ctx context.Context, s store.Store, key string) (bool, error) {
	if _, err := s.Get(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
