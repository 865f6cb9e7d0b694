package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/capacity"
	"github.com/memfleet/agent-coord/internal/health"
)

func init() {
	rate := &cobra.Command{
		Use:   "rate-status",
		Short: "Show write rate-limit usage for this process",
		Run:   runRateStatus,
	}

	capCmd := &cobra.Command{
		Use:   "capacity",
		Short: "Show capacity admission guidance",
		Run:   runCapacity,
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Score memories and surface cleanup candidates",
		Run:   runHealth,
	}

	RootCmd.AddCommand(rate, capCmd, healthCmd)
}

func runRateStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	printJSON(newLimiter(cfg).Status())
}

func runCapacity(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := newStore(cfg)

	dec, err := capacity.NewGovernor(s).Check(cmd.Context())
	if err != nil {
		exitErr("capacity", err)
	}

	printJSON(dec)
}

func runHealth(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := newStore(cfg)

	rep, err := health.BuildReport(cmd.Context(), s, time.Now())
	if err != nil {
		exitErr("health", err)
	}

	printJSON(rep)
}
