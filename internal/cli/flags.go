package cli

import (
	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/store"
)

func init() {
	pin := &cobra.Command{
		Use:   "pin <key>",
		Short: "Pin a memory (exempt from staleness)",
		Args:  cobra.ExactArgs(1),
		Run:   runFlagPatch("pinned", func(p *store.PatchParams, v bool) { p.Pinned = &v }),
	}
	pin.Flags().Bool("remove", false, "Unpin instead")

	archive := &cobra.Command{
		Use:   "archive <key>",
		Short: "Archive a memory (excluded from capacity and health)",
		Args:  cobra.ExactArgs(1),
		Run:   runFlagPatch("archived", func(p *store.PatchParams, v bool) { p.Archived = &v }),
	}
	archive.Flags().Bool("remove", false, "Unarchive instead")

	feedback := &cobra.Command{
		Use:   "feedback <key>",
		Short: "Record whether a memory was helpful",
		Args:  cobra.ExactArgs(1),
		Run:   runFeedback,
	}
	feedback.Flags().Bool("unhelpful", false, "Record an unhelpful vote")

	RootCmd.AddCommand(pin, archive, feedback)
}

func runFlagPatch(name string, set func(*store.PatchParams, bool)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		remove, _ := cmd.Flags().GetBool("remove")

		cfg := loadConfig()
		s := newStore(cfg)

		var p store.PatchParams
		set(&p, !remove)
		mem, err := s.Patch(cmd.Context(), args[0], p)
		if err != nil {
			exitErr(name, err)
		}
		printJSON(mem)
	}
}

func runFeedback(cmd *cobra.Command, args []string) {
	unhelpful, _ := cmd.Flags().GetBool("unhelpful")

	cfg := loadConfig()
	s := newStore(cfg)

	helpful := !unhelpful
	mem, err := s.Patch(cmd.Context(), args[0], store.PatchParams{Helpful: &helpful})
	if err != nil {
		exitErr("feedback", err)
	}
	printJSON(mem)
}
