package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().StringP("query", "q", "", "Search query")
	cmd.Flags().String("prefix", "", "Filter by key prefix")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("keys-only", false, "Only output keys")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	query, _ := cmd.Flags().GetString("query")
	prefix, _ := cmd.Flags().GetString("prefix")
	tagsStr, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	cfg := loadConfig()
	s := newStore(cfg)

	memories, err := s.List(cmd.Context(), store.ListParams{
		Query:  query,
		Prefix: prefix,
		Tags:   splitList(tagsStr),
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if keysOnly {
		for _, m := range memories {
			fmt.Println(m.Key)
		}
		return
	}

	printJSON(memories)
}
