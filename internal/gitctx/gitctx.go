// Package gitctx extracts recent version-control activity for session
// handoff. Everything here is best-effort glue around an external tool:
// callers treat errors as "no git context" and move on.
package gitctx

import (
	"context"
	"time"
)

// Commit is one recent commit in short form.
type Commit struct {
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
}

// Todo is one TODO/FIXME marker found in a recently touched file.
type Todo struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Inspector is the narrow view of version control the session ledger needs.
type Inspector interface {
	// Branch resolves the current branch name.
	Branch(ctx context.Context) (string, error)
	// CommitsSince returns up to limit recent commits, optionally bounded to
	// those after since.
	CommitsSince(ctx context.Context, since *time.Time, limit int) ([]Commit, error)
	// DiffStat summarizes changes over the recent commit window.
	DiffStat(ctx context.Context) (string, error)
	// FindTodos scans recently touched files for TODO/FIXME markers.
	FindTodos(ctx context.Context) ([]Todo, error)
}

// Noop is an Inspector for environments without version control. Every call
// succeeds with an empty result.
type Noop struct{}

func (Noop) Branch(ctx context.Context) (string, error) { return "", nil }

func (Noop) CommitsSince(ctx context.Context, since *time.Time, limit int) ([]Commit, error) {
	return nil, nil
}

func (Noop) DiffStat(ctx context.Context) (string, error) { return "", nil }

func (Noop) FindTodos(ctx context.Context) ([]Todo, error) { return nil, nil }
