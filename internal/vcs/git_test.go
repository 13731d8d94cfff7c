package vcs

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"devagent/internal/logging"
	"devagent/internal/subprocess"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com", "HOME="+dir)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	run("commit", "--allow-empty", "-q", "-m", "initial")
	return dir
}

func TestRepository_IsRepo(t *testing.T) {
	dir := initRepo(t)
	repo := NewRepository(subprocess.New(logging.NopLogger()))

	if !repo.IsRepo(context.Background(), dir) {
		t.Error("expected IsRepo true for initialized repo")
	}
	if repo.IsRepo(context.Background(), t.TempDir()) {
		t.Error("expected IsRepo false for non-repo directory")
	}
}

func TestRepository_RootFallsBackToDirWhenNotARepo(t *testing.T) {
	repo := NewRepository(subprocess.New(logging.NopLogger()))
	dir := t.TempDir()
	if got := repo.Root(context.Background(), dir); got != dir {
		t.Fatalf("Root() = %q, want %q", got, dir)
	}
}

func TestRepository_RootAndBranch(t *testing.T) {
	dir := initRepo(t)
	repo := NewRepository(subprocess.New(logging.NopLogger()))

	root := repo.Root(context.Background(), dir)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		if rootResolved, err2 := filepath.EvalSymlinks(root); err2 == nil && rootResolved != resolved {
			t.Fatalf("Root() = %q, want %q", rootResolved, resolved)
		}
	}

	if got := repo.Branch(context.Background(), dir); got != "main" {
		t.Fatalf("Branch() = %q, want main", got)
	}
}

func TestRepository_BranchUnknownForNonRepo(t *testing.T) {
	repo := NewRepository(subprocess.New(logging.NopLogger()))
	if got := repo.Branch(context.Background(), t.TempDir()); got != "unknown" {
		t.Fatalf("Branch() = %q, want unknown", got)
	}
}

func TestRepository_CheckoutCreatesAndSwitchesBranch(t *testing.T) {
	dir := initRepo(t)
	repo := NewRepository(subprocess.New(logging.NopLogger()))

	cmd := exec.Command("git", "checkout", "-b", "feature/test")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git checkout -b: %v: %s", err, out)
	}
	cmd = exec.Command("git", "checkout", "main")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git checkout main: %v: %s", err, out)
	}

	if err := repo.Checkout(context.Background(), dir, "feature/test"); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if got := repo.Branch(context.Background(), dir); got != "feature/test" {
		t.Fatalf("Branch() after checkout = %q, want feature/test", got)
	}
}

func TestRepository_AllBranches(t *testing.T) {
	dir := initRepo(t)
	repo := NewRepository(subprocess.New(logging.NopLogger()))

	cmd := exec.Command("git", "branch", "other")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git branch other: %v: %s", err, out)
	}

	branches := repo.AllBranches(context.Background(), dir)
	if branches.Current != "main" {
		t.Fatalf("Current = %q, want main", branches.Current)
	}
	found := false
	for _, b := range branches.Local {
		if b == "other" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Local = %v, want to contain 'other'", branches.Local)
	}
}
