package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := newStore(cfg)

	mem, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	// Expired entries are lazily deleted; treat them as gone.
	if mem.Expired(time.Now()) {
		exitErr("get", fmt.Errorf("memory %q has expired", args[0]))
	}

	printJSON(mem)
}
