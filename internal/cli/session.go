package cli

import (
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/memfleet/agent-coord/internal/gitctx"
	"github.com/memfleet/agent-coord/internal/session"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Session lifecycle: start, end, history",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a session and inherit context from the previous one",
		Run:   runSessionStart,
	}
	start.Flags().StringP("session", "s", "", "Session id (default: generated)")
	start.Flags().Bool("no-git", false, "Skip git context extraction")
	start.Flags().String("dir", "", "Repository directory (default: cwd)")

	end := &cobra.Command{
		Use:   "end",
		Short: "End a session with a summary",
		Run:   runSessionEnd,
	}
	end.Flags().StringP("session", "s", "", "Session id (required)")
	end.Flags().String("summary", "", "What happened this session (required)")
	end.Flags().String("keys-read", "", "Comma-separated keys read")
	end.Flags().String("keys-written", "", "Comma-separated keys written")
	end.Flags().String("tools", "", "Comma-separated tools used")
	end.MarkFlagRequired("session")
	end.MarkFlagRequired("summary")

	history := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions, newest first",
		Run:   runSessionHistory,
	}
	history.Flags().IntP("limit", "l", 10, "Max sessions (capped at 50)")

	sessionCmd.AddCommand(start, end, history)
	RootCmd.AddCommand(sessionCmd)
}

func newLedger(cmd *cobra.Command) *session.Ledger {
	cfg := loadConfig()
	s := newStore(cfg)

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return session.NewLedger(s, gitctx.Exec{Dir: dir}, newLogger())
}

func runSessionStart(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	noGit, _ := cmd.Flags().GetBool("no-git")
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	res, err := newLedger(cmd).Start(cmd.Context(), sessionID, !noGit)
	if err != nil {
		exitErr("session start", err)
	}

	printJSON(res)
}

func runSessionEnd(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	summary, _ := cmd.Flags().GetString("summary")
	keysRead, _ := cmd.Flags().GetString("keys-read")
	keysWritten, _ := cmd.Flags().GetString("keys-written")
	tools, _ := cmd.Flags().GetString("tools")

	cfg := loadConfig()
	ledger := session.NewLedger(newStore(cfg), nil, newLogger())

	res, err := ledger.End(cmd.Context(), sessionID, summary,
		splitList(keysRead), splitList(keysWritten), splitList(tools))
	if err != nil {
		exitErr("session end", err)
	}

	printJSON(res)
}

func runSessionHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	ledger := session.NewLedger(newStore(cfg), nil, newLogger())

	rows, err := ledger.History(cmd.Context(), limit)
	if err != nil {
		exitErr("session history", err)
	}

	printJSON(rows)
}
