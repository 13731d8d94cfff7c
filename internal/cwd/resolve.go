// Package cwd resolves the working directory of the shell attached to a
// terminal session, following a priority chain that works whether or not
// the session is wrapped in a multiplexer: a live multiplexer pane path
// takes precedence, then the wrapper script's CWD probe file, then a
// /proc-based traversal of the server's child processes, finally falling
// back to $HOME.
package cwd

import (
	"context"
	"os"
	"strconv"
	"strings"

	"devagent/internal/subprocess"
)

// ProbeFile is the well-known path the wrapper script's precmd/PROMPT_COMMAND
// hook writes $PWD to on every prompt.
const ProbeFile = "/tmp/devagent_cwd"

// PaneLocator resolves the current working directory of a multiplexer pane
// attached to clientTTY, or "" if none can be determined. Backed by
// internal/tmux in production.
type PaneLocator func(ctx context.Context, clientTTY string) (string, error)

// Resolver implements the CWD priority chain.
type Resolver struct {
	runner     *subprocess.Runner
	probeFile  string
	paneLocate PaneLocator
}

// NewResolver constructs a Resolver using probeFile as the CWD probe path
// and paneLocate (which may be nil) to query the multiplexer pane path.
func NewResolver(runner *subprocess.Runner, probeFile string, paneLocate PaneLocator) *Resolver {
	if probeFile == "" {
		probeFile = ProbeFile
	}
	return &Resolver{runner: runner, probeFile: probeFile, paneLocate: paneLocate}
}

// Resolve returns the best-known current working directory for clientTTY
// (which may be empty if no client TTY has been observed yet).
func (r *Resolver) Resolve(ctx context.Context, clientTTY string) string {
	if clientTTY != "" && r.paneLocate != nil {
		if path, err := r.paneLocate(ctx, clientTTY); err == nil && path != "" {
			return path
		}
	}

	if content, err := os.ReadFile(r.probeFile); err == nil {
		if path := strings.TrimSpace(string(content)); path != "" {
			return path
		}
	}

	if path := r.childProcessCWD(ctx); path != "" {
		return path
	}

	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return "/tmp"
}

// childProcessCWD walks /proc/<pid>/cwd for the server's direct children and
// their children (tmux wraps the shell one level deeper), returning the
// first readable cwd link it finds.
func (r *Resolver) childProcessCWD(ctx context.Context) string {
	if _, err := os.Stat("/proc"); err != nil {
		return ""
	}

	myPID := strconv.Itoa(os.Getpid())
	children := r.pgrep(ctx, myPID)
	for _, pid := range children {
		if path := readProcCWD(pid); path != "" {
			return path
		}
		for _, grandchild := range r.pgrep(ctx, pid) {
			if path := readProcCWD(grandchild); path != "" {
				return path
			}
		}
	}
	return ""
}

func (r *Resolver) pgrep(ctx context.Context, parentPID string) []string {
	out, err := r.runner.Run(ctx, "pgrep", "-P", parentPID)
	if err != nil {
		return nil
	}
	var pids []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			pids = append(pids, line)
		}
	}
	return pids
}

func readProcCWD(pid string) string {
	target, err := os.Readlink("/proc/" + pid + "/cwd")
	if err != nil {
		return ""
	}
	return target
}
