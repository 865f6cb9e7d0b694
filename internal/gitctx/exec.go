package gitctx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// commandTimeout bounds each git invocation so a hung external tool
	// cannot stall session start.
	commandTimeout = 3 * time.Second

	diffStatDepth = 10
	todoFileDepth = 5

	maxTodoFiles    = 20
	maxTodosPerFile = 5
)

// Exec inspects the repository at Dir by shelling out to git. Each command
// runs under its own timeout.
type Exec struct {
	Dir string
}

func (e Exec) Branch(ctx context.Context) (string, error) {
	out, err := e.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (e Exec) CommitsSince(ctx context.Context, since *time.Time, limit int) ([]Commit, error) {
	args := []string{"log", fmt.Sprintf("-%d", limit), "--pretty=format:%h\t%s"}
	if since != nil {
		args = append(args, "--since="+since.UTC().Format(time.RFC3339))
	}
	out, err := e.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseCommits(out), nil
}

func (e Exec) DiffStat(ctx context.Context) (string, error) {
	// Shallow histories make HEAD~N fail; the caller degrades to no stat.
	out, err := e.run(ctx, "diff", "--stat", fmt.Sprintf("HEAD~%d..HEAD", diffStatDepth))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (e Exec) FindTodos(ctx context.Context) ([]Todo, error) {
	out, err := e.run(ctx, "diff", "--name-only", fmt.Sprintf("HEAD~%d..HEAD", todoFileDepth))
	if err != nil {
		return nil, err
	}
	files := splitLines(out)
	if len(files) > maxTodoFiles {
		files = files[:maxTodoFiles]
	}
	var todos []Todo
	for _, f := range files {
		todos = append(todos, scanTodos(filepath.Join(e.Dir, f), f)...)
	}
	return todos, nil
}

func (e Exec) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = e.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func parseCommits(out string) []Commit {
	var commits []Commit
	for _, line := range splitLines(out) {
		hash, subject, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		commits = append(commits, Commit{Hash: hash, Subject: subject})
	}
	return commits
}

// scanTodos reads one file and collects up to maxTodosPerFile marker lines.
// Unreadable files (deleted, binary garbage) are skipped.
func scanTodos(path, rel string) []Todo {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var todos []Todo
	for i, line := range strings.Split(string(data), "\n") {
		if len(todos) >= maxTodosPerFile {
			break
		}
		if strings.Contains(line, "TODO") || strings.Contains(line, "FIXME") {
			todos = append(todos, Todo{File: rel, Line: i + 1, Text: strings.TrimSpace(line)})
		}
	}
	return todos
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
