// Package vcs wraps the git subprocess invocations the REST collaborators
// need to describe a working directory's version-control state: whether it
// is a repository, its root and current branch, the full branch list, and a
// structured unified diff against the index.
package vcs

import (
	"context"
	"strings"

	"devagent/internal/subprocess"
)

// Repository queries a single working directory's git state via subprocess
// invocations, matching `git` exactly rather than a Go git implementation.
type Repository struct {
	runner *subprocess.Runner
}

// NewRepository constructs a Repository backed by runner.
func NewRepository(runner *subprocess.Runner) *Repository {
	return &Repository{runner: runner}
}

// IsRepo reports whether dir lies inside a git working tree.
func (r *Repository) IsRepo(ctx context.Context, dir string) bool {
	_, err := r.runner.RunIn(ctx, dir, "git", "rev-parse", "--git-dir")
	return err == nil
}

// Root returns dir's git toplevel, or dir itself if that cannot be
// determined (mirroring the fallback a non-repo caller would otherwise have
// to special-case).
func (r *Repository) Root(ctx context.Context, dir string) string {
	out, err := r.runner.RunIn(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return dir
	}
	return strings.TrimSpace(out)
}

// Branch returns dir's current branch name, or "unknown" if it cannot be
// determined (e.g. detached HEAD in some git versions, or not a repo).
func (r *Repository) Branch(ctx context.Context, dir string) string {
	out, err := r.runner.RunIn(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out)
}

// Branches is the local/remote branch listing for a repository, alongside
// its current branch.
type Branches struct {
	Local   []string `json:"local"`
	Remote  []string `json:"remote"`
	Current string   `json:"current"`
}

// AllBranches lists dir's local and remote branches.
func (r *Repository) AllBranches(ctx context.Context, dir string) Branches {
	result := Branches{Current: r.Branch(ctx, dir)}

	if out, err := r.runner.RunIn(ctx, dir, "git", "branch", "--format=%(refname:short)"); err == nil {
		result.Local = splitNonEmptyLines(out, nil)
	}

	if out, err := r.runner.RunIn(ctx, dir, "git", "branch", "-r", "--format=%(refname:short)"); err == nil {
		result.Remote = splitNonEmptyLines(out, func(line string) bool {
			return !strings.HasSuffix(line, "/HEAD")
		})
	}

	return result
}

// Checkout switches dir's repository to branch.
func (r *Repository) Checkout(ctx context.Context, dir, branch string) error {
	_, err := r.runner.RunIn(ctx, dir, "git", "checkout", branch)
	return err
}

func splitNonEmptyLines(s string, keep func(string) bool) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			continue
		}
		if keep != nil && !keep(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}
