package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/claims"
	"github.com/memfleet/agent-coord/internal/ratelimit"
)

func init() {
	cmd := &cobra.Command{
		Use:   "claim <key>...",
		Short: "Advertise intent to touch memory keys",
		Long:  "Advisory claim: declares that this session intends to touch the given keys for the TTL. Other sessions see it via the conflicts command; nothing is locked.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runClaim,
	}

	cmd.Flags().StringP("session", "s", "", "Session id (required)")
	cmd.Flags().Duration("ttl", 0, "Claim lifetime (default 30m)")

	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

// claimRejection is the structured admission rejection for a claim.
type claimRejection struct {
	Claimed bool   `json:"claimed"`
	Warning string `json:"warning"`
}

func runClaim(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	cfg := loadConfig()
	s := newStore(cfg)
	if ttl <= 0 {
		ttl = time.Duration(cfg.ClaimTTLMinutes) * time.Minute
	}

	registry := claims.NewRegistry(s, newLimiter(cfg))
	res, err := registry.Claim(cmd.Context(), sessionID, args, ttl)
	if err != nil {
		var limitErr *ratelimit.LimitError
		if errors.As(err, &limitErr) {
			printJSON(claimRejection{Claimed: false, Warning: limitErr.Warning})
			return
		}
		exitErr("claim", err)
	}

	printJSON(res)
}
