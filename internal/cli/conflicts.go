package cli

import (
	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/claims"
)

func init() {
	cmd := &cobra.Command{
		Use:   "conflicts <key>...",
		Short: "Check other sessions' claims for conflicts",
		Args:  cobra.MinimumNArgs(1),
		Run:   runConflicts,
	}

	cmd.Flags().StringP("session", "s", "", "Own session id to exclude")

	RootCmd.AddCommand(cmd)
}

func runConflicts(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")

	cfg := loadConfig()
	s := newStore(cfg)

	registry := claims.NewRegistry(s, newLimiter(cfg))
	res, err := registry.Check(cmd.Context(), args, sessionID)
	if err != nil {
		exitErr("conflicts", err)
	}

	printJSON(res)
}
