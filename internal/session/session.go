// Package session implements the session ledger: start/end records persisted
// through the memory store, handoff summaries from the previous session, and
// best-effort git context extraction for a newly started session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/memfleet/agent-coord/internal/gitctx"
	"github.com/memfleet/agent-coord/internal/model"
	"github.com/memfleet/agent-coord/internal/store"
)

const (
	// Prefix is the reserved key prefix for session log rows.
	Prefix = "agent/sessions/"
	// Tag marks a memory as a session log row.
	Tag = "session-log"

	gitContextPrefix = "agent/context/git/"
	todoPrefix       = "agent/context/todos/"

	gitContextTTL = 7 * 24 * time.Hour
	todoTTL       = 14 * 24 * time.Hour

	// rowTTL bounds session row retention. Rows always carry an expiry so
	// the ledger keeps working at the org cap, which blocks only new
	// non-expiring writes.
	rowTTL = 90 * 24 * time.Hour

	handoffScan = 5
	historyMax  = 50
	commitLimit = 20

	// listWindow is the fetch size for session rows. The store orders by
	// update time, so the window must cover every retained row before the
	// ledger re-sorts by start time.
	listWindow = 500
)

// Ledger records session lifecycles through the shared memory store.
type Ledger struct {
	store  store.Store
	git    gitctx.Inspector
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger creates a ledger. A nil inspector disables git extraction.
func NewLedger(s store.Store, git gitctx.Inspector, logger *slog.Logger) *Ledger {
	if git == nil {
		git = gitctx.Noop{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ledger{store: s, git: git, logger: logger, now: time.Now}
}

// Handoff summarizes the previous session for a newly started one.
type Handoff struct {
	PreviousSessionID string     `json:"previous_session_id"`
	Summary           string     `json:"summary,omitempty"`
	Branch            string     `json:"branch,omitempty"`
	KeysWritten       []string   `json:"keys_written,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

// StartResult is the response to a session start.
type StartResult struct {
	SessionID  string   `json:"session_id"`
	Branch     string   `json:"branch,omitempty"`
	Handoff    *Handoff `json:"handoff"`
	GitContext bool     `json:"git_context_stored"`
	TodosFound int      `json:"todos_found"`
}

// Start upserts the session row, resolves the current branch, and builds a
// handoff from the most recent prior session (nil when none exists). With
// autoGit set it additionally extracts recent commits, a diff stat, and TODO
// markers into two short-lived memories. Any failure in the git path degrades
// to "no git context" rather than failing the start.
func (l *Ledger) Start(ctx context.Context, sessionID string, autoGit bool) (*StartResult, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	now := l.now()

	branch := ""
	if b, err := l.git.Branch(ctx); err == nil {
		branch = b
	} else {
		l.logger.Debug("branch lookup failed", "error", err)
	}

	prev := l.previousSession(ctx, sessionID)

	row := l.loadRow(ctx, sessionID)
	if row.StartedAt.IsZero() {
		row.StartedAt = now
	}
	row.SessionID = sessionID
	row.Branch = branch
	if err := l.putRow(ctx, row); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	res := &StartResult{SessionID: sessionID, Branch: branch, Handoff: handoffFrom(prev)}
	if autoGit {
		res.GitContext, res.TodosFound = l.extractGitContext(ctx, sessionID, prev)
	}
	return res, nil
}

// EndResult is the response to a session end.
type EndResult struct {
	SessionID string    `json:"session_id"`
	EndedAt   time.Time `json:"ended_at"`
	Message   string    `json:"message"`
}

// End records the session summary and usage. Ending a session that was never
// started is treated as an upsert, not an error.
func (l *Ledger) End(ctx context.Context, sessionID, summary string, keysRead, keysWritten, toolsUsed []string) (*EndResult, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if summary == "" {
		return nil, errors.New("summary is required")
	}
	now := l.now()

	row := l.loadRow(ctx, sessionID)
	if row.StartedAt.IsZero() {
		row.StartedAt = now
	}
	row.SessionID = sessionID
	row.Summary = summary
	row.KeysRead = keysRead
	row.KeysWritten = keysWritten
	row.ToolsUsed = toolsUsed
	row.EndedAt = &now
	if err := l.putRow(ctx, row); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &EndResult{
		SessionID: sessionID,
		EndedAt:   now,
		Message:   fmt.Sprintf("session %s ended", sessionID),
	}, nil
}

// History returns the most recent sessions, newest first. The limit is
// clamped to 50; malformed rows are skipped.
func (l *Ledger) History(ctx context.Context, limit int) ([]model.SessionLog, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > historyMax {
		limit = historyMax
	}
	rows, err := l.listRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// previousSession returns the most recent session other than the current
// one, or nil. Failures degrade to "no handoff".
func (l *Ledger) previousSession(ctx context.Context, sessionID string) *model.SessionLog {
	rows, err := l.listRows(ctx)
	if err != nil {
		l.logger.Debug("previous session lookup failed", "error", err)
		return nil
	}
	if len(rows) > handoffScan {
		rows = rows[:handoffScan]
	}
	for i := range rows {
		if rows[i].SessionID != sessionID {
			return &rows[i]
		}
	}
	return nil
}

func handoffFrom(prev *model.SessionLog) *Handoff {
	if prev == nil {
		return nil
	}
	return &Handoff{
		PreviousSessionID: prev.SessionID,
		Summary:           prev.Summary,
		Branch:            prev.Branch,
		KeysWritten:       prev.KeysWritten,
		EndedAt:           prev.EndedAt,
	}
}

// extractGitContext runs the bounded extraction sequence and persists what it
// finds as short-lived memories. Every sub-step is optional.
func (l *Ledger) extractGitContext(ctx context.Context, sessionID string, prev *model.SessionLog) (stored bool, todoCount int) {
	var since *time.Time
	if prev != nil && prev.EndedAt != nil {
		since = prev.EndedAt
	}

	commits, err := l.git.CommitsSince(ctx, since, commitLimit)
	if err != nil {
		l.logger.Debug("commit log unavailable", "error", err)
	}
	stat, err := l.git.DiffStat(ctx)
	if err != nil {
		l.logger.Debug("diff stat unavailable", "error", err)
	}
	todos, err := l.git.FindTodos(ctx)
	if err != nil {
		l.logger.Debug("todo scan unavailable", "error", err)
	}

	now := l.now()
	if len(commits) > 0 || stat != "" {
		expires := now.Add(gitContextTTL)
		_, err := l.store.Put(ctx, store.PutParams{
			Key:       gitContextPrefix + sessionID,
			Content:   formatGitContext(commits, stat),
			Tags:      []string{"auto:git", "session-context"},
			ExpiresAt: &expires,
		})
		if err != nil {
			l.logger.Warn("store git context failed", "error", err)
		} else {
			stored = true
		}
	}
	if len(todos) > 0 {
		expires := now.Add(todoTTL)
		_, err := l.store.Put(ctx, store.PutParams{
			Key:       todoPrefix + sessionID,
			Content:   formatTodos(todos),
			Tags:      []string{"auto:git", "todos"},
			ExpiresAt: &expires,
		})
		if err != nil {
			l.logger.Warn("store todos failed", "error", err)
		} else {
			todoCount = len(todos)
		}
	}
	return stored, todoCount
}

func formatGitContext(commits []gitctx.Commit, stat string) string {
	var b strings.Builder
	if len(commits) > 0 {
		b.WriteString("Recent commits:\n")
		for _, c := range commits {
			fmt.Fprintf(&b, "- %s %s\n", c.Hash, c.Subject)
		}
	}
	if stat != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Diff stat (last 10 commits):\n")
		b.WriteString(stat)
		b.WriteString("\n")
	}
	return b.String()
}

func formatTodos(todos []gitctx.Todo) string {
	var b strings.Builder
	for _, t := range todos {
		fmt.Fprintf(&b, "%s:%d: %s\n", t.File, t.Line, t.Text)
	}
	return b.String()
}

// loadRow fetches and decodes the session row, or returns a zero row when it
// does not exist or cannot be parsed.
func (l *Ledger) loadRow(ctx context.Context, sessionID string) *model.SessionLog {
	var row model.SessionLog
	m, err := l.store.Get(ctx, Prefix+sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.logger.Debug("session row lookup failed", "error", err)
		}
		return &row
	}
	if !decodeRow(m.Content, &row) {
		return &model.SessionLog{}
	}
	return &row
}

func (l *Ledger) putRow(ctx context.Context, row *model.SessionLog) error {
	row.Schema = model.SessionLogSchema
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	expires := l.now().Add(rowTTL)
	_, err = l.store.Put(ctx, store.PutParams{
		Key:       Prefix + row.SessionID,
		Content:   string(b),
		Tags:      []string{Tag},
		ExpiresAt: &expires,
	})
	return err
}

func (l *Ledger) listRows(ctx context.Context) ([]model.SessionLog, error) {
	memories, err := l.store.List(ctx, store.ListParams{Prefix: Prefix, Tags: []string{Tag}, Limit: listWindow})
	if err != nil {
		return nil, err
	}
	now := l.now()
	var rows []model.SessionLog
	for i := range memories {
		if memories[i].Expired(now) {
			continue
		}
		var row model.SessionLog
		if !decodeRow(memories[i].Content, &row) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StartedAt.After(rows[j].StartedAt)
	})
	return rows, nil
}

func decodeRow(content string, row *model.SessionLog) bool {
	if err := json.Unmarshal([]byte(content), row); err != nil {
		return false
	}
	return row.SessionID != ""
}
